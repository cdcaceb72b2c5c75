package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/render"
	"github.com/restan/tethbox/internal/session"
	"github.com/restan/tethbox/internal/tethbox"
	"go.uber.org/zap"
)

// renderAccount updates the account line. Runs on the UI goroutine.
func (a *App) renderAccount(acct *tethbox.Account) {
	countdown, ok := a.views["countdown"].(*tview.TextView)
	if !ok {
		return
	}
	if acct != nil {
		rotated := a.accountEmail != "" && acct.Email != a.accountEmail
		a.accountEmail = acct.Email
		if rotated {
			a.accountRotated()
		}
	}
	if acct == nil && a.phase == session.PhaseUninitialized {
		countdown.SetText("Connecting to " + a.Config.BaseURL + "...")
		countdown.SetTextColor(a.getTitleColor())
		return
	}
	line, color := a.renderer.FormatCountdown(acct)
	countdown.SetText(line)
	countdown.SetTextColor(color)
}

// renderMessages replaces the inbox rows, keeping the selection on the same
// message key when it survives. Runs on the UI goroutine.
func (a *App) renderMessages(msgs []tethbox.Message) {
	list, ok := a.views["list"].(*tview.Table)
	if !ok {
		return
	}

	selectedKey := ""
	if row, _ := list.GetSelection(); row >= 0 && row < len(a.rowKeys) {
		selectedKey = a.rowKeys[row]
	}

	a.messages = msgs
	a.rowKeys = a.rowKeys[:0]
	list.Clear()

	if len(msgs) == 0 {
		list.SetCell(0, 0, tview.NewTableCell("No messages yet").
			SetTextColor(a.getBorderColor()).
			SetSelectable(false).
			SetExpansion(1))
		list.SetTitle(" 📬 Inbox ")
		return
	}

	selectedRow := 0
	width := a.listWidth()
	for i, m := range msgs {
		line, color := a.renderer.FormatMessageRow(m, width)
		list.SetCell(i, 0, tview.NewTableCell(tview.Escape(line)).
			SetTextColor(color).
			SetExpansion(1))
		a.rowKeys = append(a.rowKeys, m.Key)
		if m.Key == selectedKey {
			selectedRow = i
		}
	}
	list.Select(selectedRow, 0)

	unread := 0
	for _, m := range msgs {
		if !m.Read {
			unread++
		}
	}
	if unread > 0 {
		list.SetTitle(fmt.Sprintf(" 📬 Inbox (%d unread) ", unread))
	} else {
		list.SetTitle(" 📬 Inbox ")
	}
}

// reformatListItems re-renders the rows after a resize or theme change
func (a *App) reformatListItems() {
	if a.messages != nil {
		a.renderMessages(a.messages)
	}
}

func (a *App) listWidth() int {
	// borders and cell padding
	return a.screenWidth - 4
}

// openMessageAt opens the message shown on a table row
func (a *App) openMessageAt(row int) {
	if row < 0 || row >= len(a.rowKeys) {
		return
	}
	key := a.rowKeys[row]
	go a.openMessage(key)
}

// openMessage fetches (or reuses) the detail of key and shows it. Called off the UI goroutine.
func (a *App) openMessage(key string) {
	msg, err := a.ctrl.OpenMessage(a.ctx, key)
	switch {
	case err == nil:
		a.queueUpdate(func() { a.showMessage(msg, "") })
	case errors.Is(err, context.Canceled), errors.Is(err, session.ErrStale):
		a.logger.Debug("message open dropped", zap.String("key", key), zap.Error(err))
	case errors.Is(err, tethbox.ErrMessageNotFound), errors.Is(err, tethbox.ErrForbidden):
		a.GetErrorHandler().HandleError(a.ctx, err, "Message is no longer available")
	default:
		a.GetErrorHandler().HandleError(a.ctx, err, "Could not open message")
	}
}

// showMessage renders a message into the content pane. to overrides the
// recipient shown in the header (archived messages keep their mailbox).
// Runs on the UI goroutine.
func (a *App) showMessage(msg tethbox.Message, to string) {
	if to == "" {
		if acct := a.ctrl.Store().Account(); acct != nil {
			to = acct.Email
		}
	}
	m := msg
	a.currentMessage = &m
	a.viewingArchive = false
	a.showHelp = false

	if header, ok := a.views["header"].(*tview.TextView); ok {
		header.SetText("[green]" + tview.Escape(a.renderer.FormatHeaderPlain(msg, to)) + "[-]")
	}
	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.SetText(render.FormatMessageForTerminal(msg, render.FormatOptions{WrapWidth: a.textWidth()}))
		text.ScrollToBeginning()
	}
	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		subject := msg.Subject
		if subject == "" {
			subject = "(No subject)"
		}
		tc.SetTitle(" 📄 " + tview.Escape(subject) + " ")
	}
	if a.sidePanel == "" {
		a.focusView("text")
	}
}

// clearMessageView drops the open message and resets the content pane
func (a *App) clearMessageView() {
	a.currentMessage = nil
	a.viewingArchive = false
	if header, ok := a.views["header"].(*tview.TextView); ok {
		header.Clear()
	}
	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.Clear()
	}
	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		tc.SetTitle(" 📄 Message ")
	}
}

func (a *App) textWidth() int {
	w := a.screenWidth - 4
	if a.sidePanel != "" {
		w /= 2
	}
	if w < 20 {
		return 0
	}
	return w
}

// closeMailboxViews closes what belongs to the previous mailbox. Archive
// and theme panels survive.
func (a *App) closeMailboxViews() {
	switch a.sidePanel {
	case "forward", "attachments", "links":
		a.closeSidePanel("list")
	}
	if a.currentMessage != nil && !a.viewingArchive {
		a.clearMessageView()
	}
}

// accountRotated runs when the server hands out a different address
func (a *App) accountRotated() {
	a.closeMailboxViews()
	if a.currentMessage == nil {
		a.showWelcomeScreen(false)
	}
}

// handlePhase reacts to session lifecycle transitions. Runs on the UI goroutine.
func (a *App) handlePhase(p session.Phase) {
	prev := a.phase
	a.phase = p

	switch p {
	case session.PhaseExpired:
		a.closeMailboxViews()
		a.accountEmail = ""
		a.renderAccount(nil)
		if a.currentMessage == nil {
			a.showWelcomeScreen(false)
		}
		a.GetErrorHandler().ShowWarning(a.ctx, "Mailbox expired")
	case session.PhaseActive:
		if prev != session.PhaseActive && a.currentMessage == nil {
			a.showWelcomeScreen(false)
		}
	}
}
