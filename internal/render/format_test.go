package render

import (
	"strings"
	"testing"

	"github.com/restan/tethbox/internal/tethbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPlainTextLinks(t *testing.T) {
	body := "Check this https://example.com/page?x=1#sec and this http://foo.bar"
	links, replaced := detectPlainTextLinks(body)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if !strings.Contains(replaced, "[1]") || !strings.Contains(replaced, "[2]") {
		t.Fatalf("replaced body should contain [1] and [2], got: %s", replaced)
	}
	assert.Equal(t, "https://example.com/page?x=1#sec", links[0].URL)
}

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "a—b… “q”\u200b • item x", "a-b... \"q\" - item x"},
		{"bullet list", "• one\n• two", "- one - two"},
		{"bullet without space", "•tight", "-tight"},
		{"nbsp", "a\u00a0b", "a b"},
		{"zero width", "x\u200by\ufeff", "xy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeForTerminal(tt.in))
		})
	}
}

func TestRenderHTMLToText(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		want      string
		wantLinks []string
	}{
		{
			name:      "paragraphs and anchors",
			html:      `<html><head><style>p{color:red}</style><title>x</title></head><body><p>Hello <a href="https://example.com">site</a></p><p>Bye</p></body></html>`,
			want:      "Hello site [1]\n\nBye",
			wantLinks: []string{"https://example.com"},
		},
		{
			name: "table cells",
			html: `<table><tr><td>a</td><td>b</td></tr></table>`,
			want: "a | b",
		},
		{
			name: "blockquote",
			html: `<p>reply</p><blockquote>quoted text</blockquote>`,
			want: "reply\n\n> quoted text",
		},
		{
			name: "mailto with address label is inlined",
			html: `<a href="mailto:bob@example.com">bob@example.com</a>`,
			want: "bob@example.com",
		},
		{
			name: "list and image alt",
			html: `<ul><li>one</li><li>two</li></ul><img alt="logo">`,
			want: "- one\n- two\n[image: logo]",
		},
		{
			name: "script dropped",
			html: `<div>visible<script>alert(1)</script></div>`,
			want: "visible",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, links, err := renderHTMLToText(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			var urls []string
			for _, l := range links {
				urls = append(urls, l.URL)
			}
			assert.Equal(t, tt.wantLinks, urls)
		})
	}
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "one two\nthree\nfour", WrapText("one two three four", 9))
	assert.Equal(t, "> aaa\n> bbb\n> ccc", WrapText("> aaa bbb ccc", 7))
	assert.Equal(t, "untouched line", WrapText("untouched line", 0))

	long := "https://example.com/a/very/long/path/that/should/not/split"
	assert.Equal(t, "see\n"+long, WrapText("see "+long, 20))
}

func TestFormatMessageForTerminal(t *testing.T) {
	msg := tethbox.Message{
		Key:         "k1",
		HTML:        "<p>Visit https://x.io now • thanks</p>",
		Attachments: []tethbox.Attachment{{Key: "a1", Filename: "a.pdf", Size: 1500}, {Key: "a2", Size: 12}},
	}
	out := FormatMessageForTerminal(msg, FormatOptions{WrapWidth: 80})

	assert.Contains(t, out, "[BODY]\nVisit [1] now - thanks")
	assert.Contains(t, out, "[ATTACHMENTS]\n1. a.pdf (1.5 kB)\n2. (attachment) (12 B)\n")
	assert.Contains(t, out, "[LINKS]\n(1) https://x.io\n")
	assert.NotContains(t, out, "�")
}

func TestFormatMessageForTerminal_Summary(t *testing.T) {
	out := FormatMessageForTerminal(tethbox.Message{Key: "k1", Subject: "hi"}, FormatOptions{})
	assert.Equal(t, "[BODY]\n(no content)\n\n[ATTACHMENTS]\nNone\n\n[LINKS]\nNone\n", out)
}

func TestFormatMessageForTerminal_AnchorLinks(t *testing.T) {
	msg := tethbox.Message{HTML: `<p><a href="https://a.io">A</a> and <a href="https://b.io">B</a></p>`}
	out := FormatMessageForTerminal(msg, FormatOptions{})

	assert.Contains(t, out, "A [1] and B [2]")
	assert.Contains(t, out, "(1) https://a.io\n(2) https://b.io\n")
}

func TestExtractLinks(t *testing.T) {
	assert.Empty(t, ExtractLinks(tethbox.Message{Key: "k1"}))

	links := ExtractLinks(tethbox.Message{HTML: `<a href="https://a.io">A</a> https://ignored.io`})
	require.Len(t, links, 1)
	assert.Equal(t, LinkRef{Index: 1, URL: "https://a.io", Text: "A"}, links[0])

	links = ExtractLinks(tethbox.Message{HTML: `plain https://b.io`})
	require.Len(t, links, 1)
	assert.Equal(t, "https://b.io", links[0].URL)
}

func TestPlainText(t *testing.T) {
	msg := tethbox.Message{HTML: `<p>one two three</p><p>see <a href="https://a.io">here</a></p>`}
	assert.Equal(t, "one two three\n\nsee here [1]", PlainText(msg, 0))
	assert.Equal(t, "one two\nthree\n\nsee here\n[1]", PlainText(msg, 8))
}
