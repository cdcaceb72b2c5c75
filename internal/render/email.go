package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/restan/tethbox/internal/config"
	"github.com/restan/tethbox/internal/tethbox"
)

// warningThreshold is when the countdown switches to the warning color
const warningThreshold = 60

// MessageColorer picks colors for message rows and the countdown
type MessageColorer struct {
	UnreadColor    tcell.Color
	ReadColor      tcell.Color
	NormalColor    tcell.Color
	WarningColor   tcell.Color
	ExpiredColor   tcell.Color
	AttachmentMark string
}

// NewMessageColorer creates a colorer with default colors
func NewMessageColorer() *MessageColorer {
	return &MessageColorer{
		UnreadColor:    tcell.ColorOrange,
		ReadColor:      tcell.ColorGray,
		NormalColor:    tcell.ColorGreen,
		WarningColor:   tcell.ColorYellow,
		ExpiredColor:   tcell.ColorRed,
		AttachmentMark: "📎",
	}
}

// RowColor returns the list color for a message
func (mc *MessageColorer) RowColor(m tethbox.Message) tcell.Color {
	if m.Read {
		return mc.ReadColor
	}
	return mc.UnreadColor
}

// CountdownColor returns the color for the seconds left on an account
func (mc *MessageColorer) CountdownColor(expireIn int) tcell.Color {
	switch {
	case expireIn <= 0:
		return mc.ExpiredColor
	case expireIn < warningThreshold:
		return mc.WarningColor
	}
	return mc.NormalColor
}

// UpdateFromStyles updates colors from configuration
func (mc *MessageColorer) UpdateFromStyles(colors *config.ColorsConfig) {
	if colors == nil {
		return
	}
	mc.UnreadColor = colors.Mail.UnreadColor.Color()
	mc.ReadColor = colors.Mail.ReadColor.Color()
	mc.NormalColor = colors.Countdown.NormalColor.Color()
	mc.WarningColor = colors.Countdown.WarningColor.Color()
	mc.ExpiredColor = colors.Countdown.ExpiredColor.Color()
}

// MessageRenderer handles list rows, headers and the countdown line
type MessageRenderer struct {
	colorer *MessageColorer
	now     func() time.Time
}

// NewMessageRenderer creates a new message renderer
func NewMessageRenderer() *MessageRenderer {
	return &MessageRenderer{
		colorer: NewMessageColorer(),
		now:     time.Now,
	}
}

// Colorer exposes the renderer colors
func (mr *MessageRenderer) Colorer() *MessageColorer { return mr.colorer }

// UpdateFromConfig updates the renderer with new configuration
func (mr *MessageRenderer) UpdateFromConfig(colors *config.ColorsConfig) {
	mr.colorer.UpdateFromStyles(colors)
}

// FormatMessageRow formats a message as fixed columns: Sender | Subject | Date
func (mr *MessageRenderer) FormatMessageRow(m tethbox.Message, maxWidth int) (string, tcell.Color) {
	sender := m.Sender()
	if sender == "" {
		sender = "(No sender)"
	}
	subject := m.Subject
	if subject == "" {
		subject = "(No subject)"
	}
	date := FormatRelativeTime(m.Time(), mr.now())

	// Keep a minimum width for usability
	if maxWidth < 40 {
		maxWidth = 40
	}
	senderWidth := 22
	dateWidth := 8
	suffix := ""
	if len(m.Attachments) > 0 {
		suffix = " " + mr.colorer.AttachmentMark
	}
	// separators " | " twice
	subjectWidth := maxWidth - senderWidth - dateWidth - 6 - runewidth.StringWidth(suffix)
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	row := fmt.Sprintf("%s | %s%s | %s",
		fitWidth(sender, senderWidth),
		fitWidth(subject, subjectWidth),
		suffix,
		fitWidth(date, dateWidth))
	return row, mr.colorer.RowColor(m)
}

// FormatHeaderPlain returns the message header without markup
func (mr *MessageRenderer) FormatHeaderPlain(m tethbox.Message, to string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	if m.SenderName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\n", m.SenderName, m.SenderAddress)
	} else {
		fmt.Fprintf(&b, "From: %s\n", m.SenderAddress)
	}
	if strings.TrimSpace(to) != "" {
		fmt.Fprintf(&b, "To: %s\n", to)
	}
	fmt.Fprintf(&b, "Date: %s", FormatTimestamp(m.Date))
	return b.String()
}

// FormatHeaderStyled wraps the plain header in tview color tags
func (mr *MessageRenderer) FormatHeaderStyled(m tethbox.Message, to string) string {
	return "[green]" + mr.FormatHeaderPlain(m, to) + "[-]\n\n"
}

// FormatCountdown renders the account line ("box1@tethbox.test  9:59") and its color.
// A nil account renders the expired notice.
func (mr *MessageRenderer) FormatCountdown(acct *tethbox.Account) (string, tcell.Color) {
	if acct == nil {
		return "Mailbox expired. Press the new account key to start over.", mr.colorer.ExpiredColor
	}
	return fmt.Sprintf("%s  %s", acct.Email, ReadableTimedelta(acct.ExpireIn)), mr.colorer.CountdownColor(acct.ExpireIn)
}

// FormatAttachmentRow renders "name   1.5 kB" with the size right-aligned
func (mr *MessageRenderer) FormatAttachmentRow(a tethbox.Attachment, maxWidth int) string {
	name := a.Filename
	if name == "" {
		name = "(attachment)"
	}
	if maxWidth < 20 {
		maxWidth = 20
	}
	sizeWidth := 10
	return fitWidth(name, maxWidth-sizeWidth-1) + " " + rightFit(ReadableFileSize(a.Size), sizeWidth)
}

// fitWidth truncates and pads on the right to fit a fixed width
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	// Truncate by display width with ellipsis
	s = runewidth.Truncate(s, width, "...")
	pad := width - runewidth.StringWidth(s)
	if pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// rightFit truncates and right-aligns to width
func rightFit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "")
	pad := width - runewidth.StringWidth(s)
	if pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}
