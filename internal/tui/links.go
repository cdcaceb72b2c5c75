package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/services"
)

// openLinkPicker shows a picker for opening links of the open message
func (a *App) openLinkPicker() {
	if a.currentMessage == nil {
		a.GetErrorHandler().ShowError(a.ctx, "No message open")
		return
	}
	if a.linkService == nil {
		a.GetErrorHandler().ShowError(a.ctx, "Link service not available")
		return
	}
	all := a.linkService.GetMessageLinks(*a.currentMessage)
	if len(all) == 0 {
		a.GetErrorHandler().ShowInfo(a.ctx, "No links in this message")
		return
	}

	input := tview.NewInputField().
		SetLabel("🔍 Search: ").
		SetFieldWidth(30)
	a.configureInputField(input)
	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(false)
	a.configureList(list)

	var visible []services.LinkInfo

	reload := func(filter string) {
		list.Clear()
		visible = visible[:0]
		filter = strings.ToLower(strings.TrimSpace(filter))
		for _, link := range all {
			if filter != "" {
				if domain, ok := strings.CutPrefix(filter, "domain:"); ok {
					if !strings.Contains(strings.ToLower(link.URL), domain) {
						continue
					}
				} else if !strings.Contains(strings.ToLower(link.URL), filter) &&
					!strings.Contains(strings.ToLower(link.Text), filter) {
					continue
				}
			}
			visible = append(visible, link)

			icon := "🔗"
			switch link.Type {
			case "email":
				icon = "📧"
			case "file":
				icon = "📁"
			}
			text := link.Text
			if text == "" || text == link.URL {
				text = link.URL
			}
			display := fmt.Sprintf("%s [%d] %s", icon, link.Index, text)

			url := link.URL
			list.AddItem(display, url, 0, func() {
				a.closeSidePanel("text")
				go a.openLink(url)
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
		case e.Key() == tcell.KeyRune && e.Rune() == 'y':
			if idx := list.GetCurrentItem(); idx >= 0 && idx < len(visible) {
				go a.copyToClipboard(visible[idx].URL, "Link copied")
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
	a.openSidePanel("links", fmt.Sprintf(" 🔗 Links (%d) ", len(all)), container, list)
}

// openLink opens url in the system browser. Called off the UI goroutine.
func (a *App) openLink(url string) {
	if err := a.linkService.OpenLink(a.ctx, url); err != nil {
		a.GetErrorHandler().HandleError(a.ctx, err, "Could not open link")
		return
	}
	a.GetErrorHandler().ShowInfo(a.ctx, "Opened "+url)
}

// copyAddress copies the mailbox address to the clipboard
func (a *App) copyAddress() {
	if a.accountEmail == "" {
		a.GetErrorHandler().ShowWarning(a.ctx, "No active mailbox")
		return
	}
	address := a.accountEmail
	go a.copyToClipboard(address, "Copied "+address)
}

// flashDuration is how long copy confirmations stay on screen
const flashDuration = 3 * time.Second

// copyToClipboard copies text and reports success. Called off the UI goroutine.
func (a *App) copyToClipboard(text, success string) {
	if a.clipboardService == nil {
		a.GetErrorHandler().ShowError(a.ctx, "Clipboard not available")
		return
	}
	if err := a.clipboardService.Copy(a.ctx, text); err != nil {
		msg := "Copy failed"
		if errors.Is(err, services.ErrNoClipboard) {
			msg = "No clipboard tool found (install xclip, xsel or wl-clipboard)"
		}
		a.GetErrorHandler().HandleError(a.ctx, err, msg)
		return
	}
	a.GetErrorHandler().ShowFlashMessage(a.ctx, success, LogLevelSuccess, flashDuration)
}
