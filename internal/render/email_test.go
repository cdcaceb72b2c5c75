package render

import (
	"strings"
	"testing"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/restan/tethbox/internal/config"
	"github.com/restan/tethbox/internal/tethbox"
	"github.com/stretchr/testify/assert"
)

func fixedRenderer(now time.Time) *MessageRenderer {
	mr := NewMessageRenderer()
	mr.now = func() time.Time { return now }
	return mr
}

func TestFormatMessageRow(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	mr := fixedRenderer(now)

	msg := tethbox.Message{
		Key:           "k1",
		SenderAddress: "alice@example.com",
		SenderName:    "Alice",
		Subject:       "Welcome",
		Date:          now.Add(-5 * time.Minute).Unix(),
	}
	row, color := mr.FormatMessageRow(msg, 80)

	assert.Equal(t, 80, runewidth.StringWidth(row))
	assert.True(t, strings.HasPrefix(row, "Alice "))
	assert.Contains(t, row, "| Welcome ")
	assert.True(t, strings.HasSuffix(strings.TrimRight(row, " "), "| 5m"))
	assert.Equal(t, mr.Colorer().UnreadColor, color)

	msg.Read = true
	_, color = mr.FormatMessageRow(msg, 80)
	assert.Equal(t, mr.Colorer().ReadColor, color)
}

func TestFormatMessageRow_Fallbacks(t *testing.T) {
	mr := fixedRenderer(time.Now())

	row, _ := mr.FormatMessageRow(tethbox.Message{Key: "k", Date: time.Now().Unix()}, 60)
	assert.Contains(t, row, "(No sender)")
	assert.Contains(t, row, "(No subject)")

	// narrow terminals clamp to 40 columns and keep 10 for the subject
	row, _ = mr.FormatMessageRow(tethbox.Message{Key: "k", Date: time.Now().Unix()}, 10)
	assert.Equal(t, 46, runewidth.StringWidth(row))

	long := tethbox.Message{SenderAddress: strings.Repeat("x", 40) + "@example.com", Date: time.Now().Unix()}
	row, _ = mr.FormatMessageRow(long, 80)
	assert.Contains(t, row, "...")
}

func TestFormatHeaderPlain(t *testing.T) {
	mr := NewMessageRenderer()
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local).Unix()

	got := mr.FormatHeaderPlain(tethbox.Message{SenderAddress: "a@x.io", SenderName: "Al", Subject: "Hi", Date: ts}, "box1@tethbox.test")
	assert.Equal(t, "Subject: Hi\nFrom: Al <a@x.io>\nTo: box1@tethbox.test\nDate: 2024-03-09 14:05:07", got)

	got = mr.FormatHeaderPlain(tethbox.Message{SenderAddress: "a@x.io", Date: ts}, "")
	assert.Equal(t, "Subject: \nFrom: a@x.io\nDate: 2024-03-09 14:05:07", got)
}

func TestFormatCountdown(t *testing.T) {
	mr := NewMessageRenderer()
	c := mr.Colorer()

	text, color := mr.FormatCountdown(&tethbox.Account{Email: "box1@tethbox.test", ExpireIn: 599})
	assert.Equal(t, "box1@tethbox.test  9:59", text)
	assert.Equal(t, c.NormalColor, color)

	_, color = mr.FormatCountdown(&tethbox.Account{Email: "box1@tethbox.test", ExpireIn: 30})
	assert.Equal(t, c.WarningColor, color)

	_, color = mr.FormatCountdown(&tethbox.Account{Email: "box1@tethbox.test", ExpireIn: 0})
	assert.Equal(t, c.ExpiredColor, color)

	text, color = mr.FormatCountdown(nil)
	assert.Contains(t, text, "expired")
	assert.Equal(t, c.ExpiredColor, color)
}

func TestFormatAttachmentRow(t *testing.T) {
	mr := NewMessageRenderer()
	row := mr.FormatAttachmentRow(tethbox.Attachment{Filename: "report.pdf", Size: 1500}, 40)

	assert.Equal(t, 40, runewidth.StringWidth(row))
	assert.True(t, strings.HasPrefix(row, "report.pdf "))
	assert.True(t, strings.HasSuffix(row, " 1.5 kB"))
}

func TestUpdateFromConfig(t *testing.T) {
	mr := NewMessageRenderer()
	colors := config.DefaultColors()
	colors.Mail.UnreadColor = config.NewColor("#ff0000")
	mr.UpdateFromConfig(colors)

	assert.Equal(t, tcell.GetColor("#ff0000").TrueColor(), mr.Colorer().UnreadColor)
	mr.UpdateFromConfig(nil)
	assert.Equal(t, tcell.GetColor("#ff0000").TrueColor(), mr.Colorer().UnreadColor)
}

func TestFitWidth(t *testing.T) {
	assert.Equal(t, "abc  ", fitWidth("abc", 5))
	assert.Equal(t, "ab...", fitWidth("abcdefgh", 5))
	assert.Equal(t, "", fitWidth("abc", 0))
	assert.Equal(t, "  abc", rightFit("abc", 5))
}
