package tui

import (
	"fmt"
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// openThemePicker shows a side panel picker for switching themes
func (a *App) openThemePicker() {
	if a.themeService == nil {
		a.GetErrorHandler().ShowError(a.ctx, "Theme service not available")
		return
	}

	go func() {
		themes, err := a.themeService.ListAvailableThemes(a.ctx)
		if err != nil {
			a.GetErrorHandler().HandleError(a.ctx, err, "No themes found in "+a.Config.GetThemeDir())
			return
		}
		current, _ := a.themeService.GetCurrentTheme(a.ctx)
		a.queueUpdate(func() { a.showThemePicker(themes, current) })
	}()
}

// showThemePicker mounts the theme list. Runs on the UI goroutine.
func (a *App) showThemePicker(themes []string, current string) {
	input := tview.NewInputField().
		SetLabel("🔍 Search: ").
		SetFieldWidth(30)
	a.configureInputField(input)
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(false)
	a.configureList(list)

	reload := func(filter string) {
		list.Clear()
		for _, name := range themes {
			if filter != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(filter)) {
				continue
			}
			display := "○ " + name
			if name == current {
				display = "✅ " + name
			}
			themeName := name
			list.AddItem(display, "", 0, func() {
				a.closeSidePanel(a.restoreFocusTarget())
				go a.applyThemeFromPicker(themeName)
			})
		}
	}

	input.SetChangedFunc(func(text string) { reload(strings.TrimSpace(text)) })
	input.SetDoneFunc(func(k tcell.Key) {
		switch k {
		case tcell.KeyEscape:
			a.closeSidePanel(a.restoreFocusTarget())
		case tcell.KeyEnter, tcell.KeyDown, tcell.KeyTab:
			a.SetFocus(list)
		}
	})
	list.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		switch {
		case e.Key() == tcell.KeyEscape:
			a.closeSidePanel(a.restoreFocusTarget())
			return nil
		case e.Key() == tcell.KeyRune && e.Rune() == '/':
			a.SetFocus(input)
			return nil
		}
		return e
	})

	container := tview.NewFlex().SetDirection(tview.FlexRow)
	container.SetBackgroundColor(a.getBackgroundColor())
	container.AddItem(input, 1, 0, false)
	container.AddItem(list, 0, 1, true)

	reload("")
	a.openSidePanel("themes", fmt.Sprintf(" 🎨 Themes (%d) ", len(themes)), container, list)
}

// applyThemeFromPicker switches theme and remembers the choice in the config
// file. Called off the UI goroutine.
func (a *App) applyThemeFromPicker(name string) {
	if err := a.themeService.ApplyTheme(a.ctx, name); err != nil {
		a.GetErrorHandler().HandleError(a.ctx, err, "Could not apply theme "+name)
		return
	}
	a.GetErrorHandler().ShowSuccess(a.ctx, "Theme: "+name)

	a.mu.Lock()
	a.Config.Layout.CurrentTheme = name
	path := a.configPath
	a.mu.Unlock()
	if path == "" {
		return
	}
	if err := a.Config.SaveConfig(path); err != nil {
		a.logger.Warn("theme choice not saved", zap.String("path", path), zap.Error(err))
	}
}

// SetConfigPath makes UI preference changes persist to path
func (a *App) SetConfigPath(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configPath = path
}
