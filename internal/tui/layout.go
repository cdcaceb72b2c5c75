package tui

import (
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// ForceFilledBorderFlex forces a Flex container to use a filled background by replacing
// its internal Box with a fresh Box (dontClear=false) and reapplying styling.
// This ensures borders appear solid like Table borders instead of hollow.
func ForceFilledBorderFlex(f *tview.Flex) {
	backgroundColor := f.GetBackgroundColor()
	borderColor := f.GetBorderColor()
	borderAttributes := f.GetBorderAttributes()
	title := f.GetTitle()

	f.Box = tview.NewBox()

	f.SetBackgroundColor(backgroundColor)
	f.SetBorder(true)
	f.SetBorderColor(borderColor)
	f.SetBorderAttributes(borderAttributes)
	f.SetTitle(title)
}

// initComponents initializes the main UI components
func (a *App) initComponents() {
	bg := a.getBackgroundColor()

	// Account line: address and countdown
	countdown := tview.NewTextView().SetDynamicColors(false).SetTextAlign(tview.AlignCenter)
	countdown.SetBackgroundColor(bg)

	// Inbox as a Table to support per-row colors
	list := tview.NewTable().SetSelectable(true, false)
	list.SetBackgroundColor(bg)
	list.SetBorder(true).
		SetBorderColor(a.getBorderColor()).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" 📬 Inbox ").
		SetTitleColor(a.getTitleColor()).
		SetTitleAlign(tview.AlignCenter)
	list.SetSelectedStyle(a.getSelectionStyle())
	list.SetSelectedFunc(func(row, _ int) {
		a.openMessageAt(row)
	})

	header := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	header.SetBackgroundColor(bg)
	header.SetBorder(false)

	text := tview.NewTextView().SetDynamicColors(false).SetWrap(true).SetScrollable(true)
	text.SetBackgroundColor(bg)
	text.SetBorder(false)

	textContainer := tview.NewFlex().SetDirection(tview.FlexRow)
	textContainer.SetBackgroundColor(bg)
	textContainer.SetBorder(true).
		SetBorderColor(a.getBorderColor()).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" 📄 Message ").
		SetTitleColor(a.getTitleColor()).
		SetTitleAlign(tview.AlignCenter)
	ForceFilledBorderFlex(textContainer)
	textContainer.SetTitleColor(a.getTitleColor()).SetTitleAlign(tview.AlignCenter)
	// Subject, From, To, Date and a blank line
	textContainer.AddItem(header, 5, 0, false)
	textContainer.AddItem(text, 0, 1, false)

	// Contextual panel for pickers and the forward form (hidden by default)
	sidePanel := tview.NewFlex().SetDirection(tview.FlexRow)
	sidePanel.SetBackgroundColor(bg)
	sidePanel.SetBorder(true).
		SetBorderColor(a.getBorderColor()).
		SetBorderAttributes(tcell.AttrBold).
		SetTitleColor(a.getTitleColor()).
		SetTitleAlign(tview.AlignCenter)
	ForceFilledBorderFlex(sidePanel)
	sidePanel.SetTitleColor(a.getTitleColor()).SetTitleAlign(tview.AlignCenter)

	status := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft).
		SetText(a.statusBaseline())
	status.SetBackgroundColor(bg)

	// Short-lived confirmations, right of the status bar
	flash := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	flash.SetBackgroundColor(bg)

	a.views["countdown"] = countdown
	a.views["list"] = list
	a.views["header"] = header
	a.views["text"] = text
	a.views["textContainer"] = textContainer
	a.views["sidePanel"] = sidePanel
	a.views["status"] = status
	a.views["flash"] = flash
}

// initViews mounts the main layout into the pages
func (a *App) initViews() {
	// Background page paints the full screen; containers don't paint their border areas
	background := tview.NewBox().SetBackgroundColor(a.getBackgroundColor())
	a.views["background"] = background
	a.Pages.AddPage("background", background, true, true)
	a.Pages.AddPage("main", a.createMainLayout(), true, true)
	a.updateFocusIndicators("list")
}

// createMainLayout stacks the account line, inbox, message pane and status bar
func (a *App) createMainLayout() tview.Primitive {
	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	mainFlex.SetBackgroundColor(a.getBackgroundColor())

	mainFlex.AddItem(a.views["countdown"], 1, 0, false)
	mainFlex.AddItem(a.views["list"], 0, 40, true)

	// Message content | contextual panel (weight 0 = hidden)
	contentSplit := tview.NewFlex().SetDirection(tview.FlexColumn)
	contentSplit.SetBackgroundColor(a.getBackgroundColor())
	contentSplit.AddItem(a.views["textContainer"], 0, 1, false)
	contentSplit.AddItem(a.views["sidePanel"], 0, 0, false)
	a.views["contentSplit"] = contentSplit
	mainFlex.AddItem(contentSplit, 0, 60, false)

	statusBar := tview.NewFlex().SetDirection(tview.FlexColumn)
	statusBar.SetBackgroundColor(a.getBackgroundColor())
	statusBar.AddItem(a.views["status"], 0, 3, false)
	statusBar.AddItem(a.views["flash"], 0, 2, false)
	mainFlex.AddItem(statusBar, 1, 0, false)

	a.views["mainFlex"] = mainFlex
	return mainFlex
}

// updateFocusIndicators highlights the border of the focused pane
func (a *App) updateFocusIndicators(focusedView string) {
	unfocused := a.getBorderColor()
	focused := a.getFocusColor()

	if list, ok := a.views["list"].(*tview.Table); ok {
		list.SetBorderColor(unfocused)
	}
	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		tc.SetBorderColor(unfocused)
	}
	if sp, ok := a.views["sidePanel"].(*tview.Flex); ok {
		sp.SetBorderColor(unfocused)
	}

	switch focusedView {
	case "list":
		if list, ok := a.views["list"].(*tview.Table); ok {
			list.SetBorderColor(focused)
		}
	case "text":
		if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
			tc.SetBorderColor(focused)
		}
	case "side":
		if sp, ok := a.views["sidePanel"].(*tview.Flex); ok {
			sp.SetBorderColor(focused)
		}
	}
	a.currentFocus = focusedView
}

// focusView moves keyboard focus to a named pane
func (a *App) focusView(name string) {
	target := map[string]string{"list": "list", "text": "text", "side": "sidePanel"}[name]
	if v, ok := a.views[target]; ok {
		a.SetFocus(v)
	}
	a.updateFocusIndicators(name)
}

// openSidePanel mounts content into the contextual panel and focuses focusTarget
func (a *App) openSidePanel(kind, title string, content tview.Primitive, focusTarget tview.Primitive) {
	sp, ok := a.views["sidePanel"].(*tview.Flex)
	if !ok {
		return
	}
	sp.Clear()
	sp.SetTitle(title)
	sp.AddItem(content, 0, 1, true)
	if split, ok := a.views["contentSplit"].(*tview.Flex); ok {
		split.ResizeItem(sp, 0, 1)
	}
	a.sidePanel = kind
	a.updateFocusIndicators("side")
	if focusTarget != nil {
		a.SetFocus(focusTarget)
	}
}

// closeSidePanel hides the contextual panel and returns focus to restoreFocus
func (a *App) closeSidePanel(restoreFocus string) {
	sp, ok := a.views["sidePanel"].(*tview.Flex)
	if !ok {
		return
	}
	sp.Clear()
	if split, ok := a.views["contentSplit"].(*tview.Flex); ok {
		split.ResizeItem(sp, 0, 0)
	}
	a.sidePanel = ""
	if restoreFocus == "" {
		restoreFocus = "list"
	}
	a.focusView(restoreFocus)
}
