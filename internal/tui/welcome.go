package tui

import (
	"fmt"
	"strings"

	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/session"
)

// showWelcomeScreen renders the welcome content into the message content
// area. Runs on the UI goroutine (or before the loop starts).
func (a *App) showWelcomeScreen(loading bool) {
	if header, ok := a.views["header"].(*tview.TextView); ok {
		header.Clear()
	}
	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.Clear()
		text.SetText(a.buildWelcomeText(loading))
		text.ScrollToBeginning()
	}
}

// buildWelcomeText constructs the welcome content for the current phase
func (a *App) buildWelcomeText(loading bool) string {
	var b strings.Builder

	b.WriteString("📨 tethbox: a disposable mailbox in your terminal\n\n")

	switch {
	case loading:
		b.WriteString("⏳ Connecting to " + a.Config.BaseURL + "...\n\n")
	case a.phase == session.PhaseExpired:
		b.WriteString("This mailbox has expired and its messages are gone.\n")
		fmt.Fprintf(&b, "Press %s to get a new address.\n\n", keyLabel(a.Keys.NewAccount, "n"))
	case a.accountEmail != "":
		fmt.Fprintf(&b, "Your address: %s\n\n", a.accountEmail)
		b.WriteString("Mail sent there shows up above. Select a message and press Enter to read it.\n\n")
	}

	b.WriteString("Quick actions: " + a.getWelcomeShortcuts() + "\n")
	return b.String()
}

// getWelcomeShortcuts lists the most useful keys using the configured bindings
func (a *App) getWelcomeShortcuts() string {
	if a.phase == session.PhaseExpired {
		return fmt.Sprintf("[%s New address]  [%s Archive]  [%s Help]  [%s Quit]",
			keyLabel(a.Keys.NewAccount, "n"),
			keyLabel(a.Keys.ShowArchive, "S"),
			keyLabel(a.Keys.Help, "?"),
			keyLabel(a.Keys.Quit, "q"))
	}
	return fmt.Sprintf("[%s Extend]  [%s New address]  [%s Copy address]  [%s Help]  [%s Quit]",
		keyLabel(a.Keys.ExtendTime, "e"),
		keyLabel(a.Keys.NewAccount, "n"),
		keyLabel(a.Keys.CopyAddress, "y"),
		keyLabel(a.Keys.Help, "?"),
		keyLabel(a.Keys.Quit, "q"))
}
