package services

import (
	"context"
	"testing"

	"github.com/restan/tethbox/internal/tethbox"
	"github.com/stretchr/testify/assert"
)

func TestLinkService_GetMessageLinks(t *testing.T) {
	svc := NewLinkService()
	msg := tethbox.Message{
		Key:     "k1",
		Fetched: true,
		HTML: `<p>Confirm <a href="https://example.com/confirm?t=1">here</a>,
write to <a href="mailto:help@example.com">support</a>
or grab <a href="ftp://files.example.com/x.zip">the file</a>.</p>`,
	}

	links := svc.GetMessageLinks(msg)
	assert.Equal(t, []LinkInfo{
		{Index: 1, URL: "https://example.com/confirm?t=1", Text: "here", Type: "html"},
		{Index: 2, URL: "mailto:help@example.com", Text: "support", Type: "email"},
		{Index: 3, URL: "ftp://files.example.com/x.zip", Text: "the file", Type: "file"},
	}, links)

	assert.Empty(t, svc.GetMessageLinks(tethbox.Message{Key: "summary-only"}))
}

func TestLinkService_ValidateURL(t *testing.T) {
	svc := NewLinkService()
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com", false},
		{"http://example.com/a?b=c", false},
		{"mailto:a@example.com", false},
		{"ftp://example.com/file", false},
		{"", true},
		{"   ", true},
		{"example.com", true},
		{"javascript:alert(1)", true},
		{"file:///etc/passwd", true},
	}
	for _, tt := range tests {
		err := svc.ValidateURL(tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
		} else {
			assert.NoError(t, err, tt.url)
		}
	}
}

func TestLinkService_OpenLinkRejectsInvalid(t *testing.T) {
	err := NewLinkService().OpenLink(context.Background(), "javascript:alert(1)")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
