package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// bindKeys installs the global key handler
func (a *App) bindKeys() {
	a.SetInputCapture(a.handleKey)
}

// handleKey routes global shortcuts. Widgets that take text or own their
// own navigation (inputs, forms, picker lists) receive every key.
func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch a.GetFocus().(type) {
	case *tview.InputField, *tview.Form, *tview.List, *tview.Button:
		return event
	}

	switch event.Key() {
	case tcell.KeyEscape:
		if a.sidePanel != "" {
			a.closeSidePanel(a.restoreFocusTarget())
			return nil
		}
		if a.currentFocus == "text" {
			a.focusView("list")
			return nil
		}
		return event
	case tcell.KeyTab:
		if a.currentFocus == "list" {
			a.focusView("text")
		} else {
			a.focusView("list")
		}
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch string(event.Rune()) {
	case a.Keys.Quit:
		a.Stop()
		return nil
	case a.Keys.Help:
		a.toggleHelp()
		return nil
	case a.Keys.NewAccount:
		a.runAction("New address", func(ctx context.Context) error {
			return a.ctrl.CreateAccount(ctx)
		}, "New mailbox created")
		return nil
	case a.Keys.ExtendTime:
		a.runAction("Extend time", func(ctx context.Context) error {
			return a.ctrl.ExtendTime(ctx)
		}, "Time extended")
		return nil
	case a.Keys.Refresh:
		a.runAction("Refresh", func(ctx context.Context) error {
			return a.ctrl.CheckInbox(ctx)
		}, "")
		return nil
	case a.Keys.Forward:
		a.openForwardForm()
		return nil
	case a.Keys.Attachments:
		a.openAttachmentPicker()
		return nil
	case a.Keys.Links:
		a.openLinkPicker()
		return nil
	case a.Keys.SaveArchive:
		a.saveCurrentToArchive()
		return nil
	case a.Keys.ShowArchive:
		a.openArchivePicker()
		return nil
	case a.Keys.CopyAddress:
		a.copyAddress()
		return nil
	case a.Keys.Theme:
		a.openThemePicker()
		return nil
	}
	return event
}

// restoreFocusTarget is where focus goes when a panel closes
func (a *App) restoreFocusTarget() string {
	if a.currentMessage != nil {
		return "text"
	}
	return "list"
}

// toggleHelp shows the key reference in the content pane, or restores the message
func (a *App) toggleHelp() {
	a.showHelp = !a.showHelp
	text, ok := a.views["text"].(*tview.TextView)
	if !ok {
		return
	}
	if !a.showHelp {
		if a.currentMessage != nil {
			msg, archived := *a.currentMessage, a.viewingArchive
			a.showMessage(msg, a.headerRecipient())
			a.viewingArchive = archived
		} else {
			a.showWelcomeScreen(false)
		}
		return
	}
	if header, ok := a.views["header"].(*tview.TextView); ok {
		header.Clear()
	}
	text.SetText(a.generateHelpText())
	text.ScrollToBeginning()
	a.focusView("text")
}

// headerRecipient returns the mailbox shown as "To:" for the current message
func (a *App) headerRecipient() string {
	if a.viewingArchive && a.archiveAccount != "" {
		return a.archiveAccount
	}
	return ""
}

// generateHelpText lists every binding using the configured keys
func (a *App) generateHelpText() string {
	rows := []struct{ key, desc string }{
		{"Enter", "Open selected message"},
		{"Tab", "Switch between inbox and message"},
		{"Esc", "Close panel / back to inbox"},
		{keyLabel(a.Keys.NewAccount, "n"), "Create a new address"},
		{keyLabel(a.Keys.ExtendTime, "e"), "Extend mailbox lifetime"},
		{keyLabel(a.Keys.Refresh, "R"), "Check inbox now"},
		{keyLabel(a.Keys.Forward, "f"), "Forward open message"},
		{keyLabel(a.Keys.Attachments, "A"), "Download attachments"},
		{keyLabel(a.Keys.Links, "L"), "Open links"},
		{keyLabel(a.Keys.CopyAddress, "y"), "Copy address to clipboard"},
		{keyLabel(a.Keys.SaveArchive, "s"), "Save open message to archive"},
		{keyLabel(a.Keys.ShowArchive, "S"), "Browse archive"},
		{keyLabel(a.Keys.Theme, "T"), "Change theme"},
		{keyLabel(a.Keys.Help, "?"), "Toggle this help"},
		{keyLabel(a.Keys.Quit, "q"), "Quit"},
	}

	var b strings.Builder
	b.WriteString("Keyboard shortcuts\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "  %-8s %s\n", r.key, r.desc)
	}
	b.WriteString("\nIn the archive: d deletes an entry, x exports everything as mbox.\n")
	b.WriteString("In attachments: o downloads and opens the file.\n")
	b.WriteString("In links: y copies the URL.\n")
	return b.String()
}
