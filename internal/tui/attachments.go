package tui

import (
	"fmt"
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/services"
	"github.com/restan/tethbox/internal/tethbox"
)

// openAttachmentPicker shows a picker for downloading attachments of the open message
func (a *App) openAttachmentPicker() {
	if a.currentMessage == nil || a.viewingArchive {
		a.GetErrorHandler().ShowError(a.ctx, "No message open")
		return
	}
	if a.attachmentService == nil {
		a.GetErrorHandler().ShowError(a.ctx, "Attachment service not available")
		return
	}
	all := a.currentMessage.Attachments
	if len(all) == 0 {
		a.GetErrorHandler().ShowInfo(a.ctx, "No attachments in this message")
		return
	}

	input := tview.NewInputField().
		SetLabel("🔍 Search: ").
		SetFieldWidth(30)
	a.configureInputField(input)
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(false)
	a.configureList(list)

	var visible []tethbox.Attachment

	reload := func(filter string) {
		list.Clear()
		visible = visible[:0]
		filter = strings.ToLower(strings.TrimSpace(filter))
		for _, att := range all {
			if filter != "" {
				if typeFilter, ok := strings.CutPrefix(filter, "type:"); ok {
					if !strings.Contains(services.CategorizeAttachment(att.Filename), typeFilter) {
						continue
					}
				} else if !strings.Contains(strings.ToLower(att.Filename), filter) {
					continue
				}
			}
			visible = append(visible, att)
			row := a.renderer.FormatAttachmentRow(att, a.textWidth()-4)
			display := fmt.Sprintf("%s %s", attachmentIcon(services.CategorizeAttachment(att.Filename)), row)

			att := att
			list.AddItem(display, "", 0, func() {
				a.closeSidePanel("text")
				go a.downloadAttachment(att, false)
			})
		}
		if len(visible) != len(all) {
			input.SetLabel(fmt.Sprintf("🔍 Search (%d/%d): ", len(visible), len(all)))
		} else {
			input.SetLabel("🔍 Search: ")
		}
	}

	input.SetChangedFunc(func(text string) { reload(text) })
	input.SetDoneFunc(func(k tcell.Key) {
		switch k {
		case tcell.KeyEscape:
			a.closeSidePanel("text")
		case tcell.KeyEnter, tcell.KeyDown, tcell.KeyTab:
			a.SetFocus(list)
		}
	})
	list.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		switch {
		case e.Key() == tcell.KeyEscape:
			a.closeSidePanel("text")
			return nil
		case e.Key() == tcell.KeyRune && e.Rune() == '/':
			a.SetFocus(input)
			return nil
		case e.Key() == tcell.KeyRune && e.Rune() == 'o':
			if idx := list.GetCurrentItem(); idx >= 0 && idx < len(visible) {
				att := visible[idx]
				a.closeSidePanel("text")
				go a.downloadAttachment(att, true)
			}
			return nil
		}
		return e
	})

	container := tview.NewFlex().SetDirection(tview.FlexRow)
	container.SetBackgroundColor(a.getBackgroundColor())
	container.AddItem(input, 1, 0, false)
	container.AddItem(list, 0, 1, true)

	reload("")
	a.openSidePanel("attachments", fmt.Sprintf(" 📎 Attachments (%d) ", len(all)), container, list)
}

// downloadAttachment saves att into the download directory and optionally
// opens it. Called off the UI goroutine.
func (a *App) downloadAttachment(att tethbox.Attachment, open bool) {
	name := att.Filename
	if name == "" {
		name = "attachment"
	}
	a.GetErrorHandler().ShowProgress(a.ctx, "Downloading "+name+"...")
	path, err := a.attachmentService.DownloadAttachment(a.ctx, att, "")
	a.GetErrorHandler().ClearProgress()
	if err != nil {
		a.GetErrorHandler().HandleError(a.ctx, err, "Download of "+name+" failed")
		return
	}
	if !open {
		a.GetErrorHandler().ShowSuccess(a.ctx, "Saved to "+path)
		return
	}
	if err := a.attachmentService.OpenAttachment(a.ctx, path); err != nil {
		a.GetErrorHandler().HandleError(a.ctx, err, "Saved to "+path+" but could not open it")
		return
	}
	a.GetErrorHandler().ShowSuccess(a.ctx, "Opened "+path)
}

// attachmentIcon returns an icon for an attachment category
func attachmentIcon(category string) string {
	switch category {
	case "image":
		return "🖼️"
	case "document":
		return "📄"
	case "spreadsheet":
		return "📊"
	case "archive":
		return "🗜️"
	case "audio":
		return "🎵"
	case "video":
		return "🎬"
	case "calendar":
		return "📅"
	}
	return "📎"
}
