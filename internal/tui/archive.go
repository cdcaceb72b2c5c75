package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/render"
	"github.com/restan/tethbox/internal/services"
)

// archiveListLimit caps how many archived messages the picker loads
const archiveListLimit = 500

// saveCurrentToArchive keeps the open message after its mailbox expires
func (a *App) saveCurrentToArchive() {
	if a.archiveService == nil {
		a.GetErrorHandler().ShowWarning(a.ctx, "Archive is disabled")
		return
	}
	if a.currentMessage == nil || a.viewingArchive {
		a.GetErrorHandler().ShowWarning(a.ctx, "Open a message to archive it")
		return
	}
	if a.accountEmail == "" {
		a.GetErrorHandler().ShowWarning(a.ctx, "No active mailbox")
		return
	}
	msg, account := *a.currentMessage, a.accountEmail

	go func() {
		if err := a.archiveService.SaveMessage(a.ctx, account, msg); err != nil {
			a.GetErrorHandler().HandleError(a.ctx, err, archiveErrorMessage(err, "Could not archive message"))
			return
		}
		a.GetErrorHandler().ShowSuccess(a.ctx, "Message archived")
	}()
}

// openArchivePicker lists archived messages of every mailbox, newest first
func (a *App) openArchivePicker() {
	if a.archiveService == nil {
		a.GetErrorHandler().ShowWarning(a.ctx, "Archive is disabled")
		return
	}

	go func() {
		entries, err := a.archiveService.ListMessages(a.ctx, "", archiveListLimit)
		if err != nil {
			a.GetErrorHandler().HandleError(a.ctx, err, archiveErrorMessage(err, "Could not load archive"))
			return
		}
		if len(entries) == 0 {
			a.GetErrorHandler().ShowInfo(a.ctx, "Archive is empty")
			return
		}
		a.queueUpdate(func() { a.showArchivePicker(entries) })
	}()
}

// showArchivePicker mounts the archive list. Runs on the UI goroutine.
func (a *App) showArchivePicker(entries []*services.ArchiveEntry) {
	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(false)
	a.configureList(list)

	now := time.Now()
	for _, e := range entries {
		entry := e
		subject := entry.Message.Subject
		if subject == "" {
			subject = "(No subject)"
		}
		secondary := fmt.Sprintf("%s | %s | saved %s",
			entry.Message.Sender(), entry.AccountEmail, render.FormatRelativeTime(entry.SavedAt, now))
		list.AddItem(tview.Escape(subject), tview.Escape(secondary), 0, func() {
			a.showArchivedMessage(entry)
		})
	}

	list.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		if e.Key() == tcell.KeyEscape {
			a.closeSidePanel(a.restoreFocusTarget())
			return nil
		}
		if e.Key() != tcell.KeyRune {
			return e
		}
		switch e.Rune() {
		case 'd':
			idx := list.GetCurrentItem()
			if idx < 0 || idx >= len(entries) {
				return nil
			}
			entry := entries[idx]
			go a.deleteArchived(entry)
			return nil
		case 'x':
			go a.exportArchive()
			return nil
		}
		return e
	})

	a.openSidePanel("archive", fmt.Sprintf(" 🗄️ Archive (%d) ", len(entries)), list, list)
}

// showArchivedMessage renders an archived copy in the content pane
func (a *App) showArchivedMessage(entry *services.ArchiveEntry) {
	a.archiveAccount = entry.AccountEmail
	a.showMessage(entry.Message, entry.AccountEmail)
	a.viewingArchive = true
	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		subject := entry.Message.Subject
		if subject == "" {
			subject = "(No subject)"
		}
		tc.SetTitle(" 🗄️ " + tview.Escape(subject) + " ")
	}
}

// deleteArchived removes an entry and reloads the picker. Called off the UI goroutine.
func (a *App) deleteArchived(entry *services.ArchiveEntry) {
	if err := a.archiveService.DeleteMessage(a.ctx, entry.AccountEmail, entry.Message.Key); err != nil {
		a.GetErrorHandler().HandleError(a.ctx, err, archiveErrorMessage(err, "Could not delete archived message"))
		return
	}
	a.GetErrorHandler().ShowSuccess(a.ctx, "Archived message deleted")

	entries, err := a.archiveService.ListMessages(a.ctx, "", archiveListLimit)
	if err != nil {
		a.GetErrorHandler().HandleError(a.ctx, err, "Could not reload archive")
		return
	}
	a.queueUpdate(func() {
		if a.viewingArchive && a.currentMessage != nil && a.currentMessage.Key == entry.Message.Key &&
			a.archiveAccount == entry.AccountEmail {
			a.clearMessageView()
			a.showWelcomeScreen(false)
		}
		if a.sidePanel != "archive" {
			return
		}
		if len(entries) == 0 {
			a.closeSidePanel("list")
			return
		}
		a.showArchivePicker(entries)
	})
}

// exportArchive writes every archived message to an mbox file in the
// download directory. Called off the UI goroutine.
func (a *App) exportArchive() {
	dir := a.Config.GetDownloadPath()
	if a.attachmentService != nil {
		dir = a.attachmentService.GetDefaultDownloadPath()
	}
	path := filepath.Join(dir, "tethbox-archive-"+time.Now().Format("20060102-150405")+".mbox")

	n, err := a.archiveService.ExportMboxFile(a.ctx, path, "")
	if err != nil {
		a.GetErrorHandler().HandleError(a.ctx, err, archiveErrorMessage(err, "Export failed"))
		return
	}
	a.GetErrorHandler().ShowSuccess(a.ctx, fmt.Sprintf("Exported %d messages to %s", n, path))
}

func archiveErrorMessage(err error, fallback string) string {
	if errors.Is(err, services.ErrArchiveDisabled) {
		return "Archive is disabled"
	}
	return fallback
}
