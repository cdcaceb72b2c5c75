package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookPathOnly(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestClipboardService_Command(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		available []string
		wantName  string
		wantArgs  []string
		wantErr   error
	}{
		{"darwin", "darwin", nil, "pbcopy", nil, nil},
		{"windows", "windows", nil, "clip", nil, nil},
		{"linux_xclip", "linux", []string{"xclip", "xsel"}, "xclip", []string{"-selection", "clipboard"}, nil},
		{"linux_xsel", "linux", []string{"xsel"}, "xsel", []string{"--clipboard", "--input"}, nil},
		{"linux_wayland", "linux", []string{"wl-copy"}, "wl-copy", nil, nil},
		{"linux_none", "linux", nil, "", nil, ErrNoClipboard},
		{"plan9", "plan9", nil, "", nil, ErrUnsupportedOS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &ClipboardServiceImpl{goos: tt.goos, lookPath: lookPathOnly(tt.available...)}
			name, args, err := svc.command()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestClipboardService_CopyEmpty(t *testing.T) {
	err := NewClipboardService().Copy(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClipboardService_CopyWithoutTool(t *testing.T) {
	svc := &ClipboardServiceImpl{goos: "linux", lookPath: lookPathOnly()}
	err := svc.Copy(context.Background(), "box1@tethbox.test")
	assert.ErrorIs(t, err, ErrNoClipboard)
}
