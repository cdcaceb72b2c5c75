package tui

import (
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/config"
	"go.uber.org/zap"
)

// applyTheme loads the configured theme before the components are built and
// subscribes the App to later theme switches. Any failure leaves the
// built-in colors in place.
func (a *App) applyTheme() {
	a.currentTheme = config.DefaultColors()
	if a.themeService == nil {
		a.renderer.UpdateFromConfig(a.currentTheme)
		return
	}

	if name := a.Config.Layout.CurrentTheme; name != "" {
		if err := a.themeService.ApplyTheme(a.ctx, name); err != nil {
			a.logger.Warn("theme not applied, using defaults", zap.String("theme", name), zap.Error(err))
		}
	}
	if current := a.themeService.GetCurrentThemeConfig(); current != nil {
		a.currentTheme = current
	}
	a.renderer.UpdateFromConfig(a.currentTheme)

	// Later switches arrive from picker goroutines
	if err := a.themeService.RegisterComponent("tui", func(colors *config.ColorsConfig) error {
		a.queueUpdate(func() { a.applyThemeConfig(colors) })
		return nil
	}); err != nil {
		a.logger.Warn("theme registration failed", zap.Error(err))
	}
}

// applyThemeConfig recolors every component. Runs on the UI goroutine.
func (a *App) applyThemeConfig(colors *config.ColorsConfig) {
	if colors == nil {
		return
	}
	a.currentTheme = colors
	a.renderer.UpdateFromConfig(colors)

	bg := colors.Body.BgColor.Color()
	fg := colors.Body.FgColor.Color()
	tview.Styles.PrimitiveBackgroundColor = bg
	tview.Styles.PrimaryTextColor = fg

	for _, name := range []string{"background", "countdown", "list", "header", "text", "textContainer", "sidePanel", "contentSplit", "mainFlex", "status", "flash"} {
		if v, ok := a.views[name]; ok {
			if box, ok := v.(interface{ SetBackgroundColor(tcell.Color) *tview.Box }); ok {
				box.SetBackgroundColor(bg)
			}
		}
	}
	if list, ok := a.views["list"].(*tview.Table); ok {
		list.SetTitleColor(colors.Frame.TitleColor.Color())
		list.SetSelectedStyle(a.getSelectionStyle())
	}
	if tc, ok := a.views["textContainer"].(*tview.Flex); ok {
		tc.SetTitleColor(colors.Frame.TitleColor.Color())
	}
	if text, ok := a.views["text"].(*tview.TextView); ok {
		text.SetTextColor(fg)
	}
	if status, ok := a.views["status"].(*tview.TextView); ok {
		status.SetTextColor(fg)
	}

	a.updateFocusIndicators(a.currentFocus)
	a.renderAccount(a.ctrl.Store().Account())
	a.reformatListItems()
}

// getBorderColor returns the unfocused border color
func (a *App) getBorderColor() tcell.Color {
	if a.currentTheme == nil {
		return tcell.ColorGray
	}
	return a.currentTheme.Frame.BorderColor.Color()
}

// getFocusColor returns the border color of the focused pane
func (a *App) getFocusColor() tcell.Color {
	if a.currentTheme == nil {
		return tcell.ColorBlue
	}
	return a.currentTheme.Frame.FocusColor.Color()
}

// getTitleColor returns the pane title color
func (a *App) getTitleColor() tcell.Color {
	if a.currentTheme == nil {
		return tcell.ColorYellow
	}
	return a.currentTheme.Frame.TitleColor.Color()
}

// getBackgroundColor returns the body background color
func (a *App) getBackgroundColor() tcell.Color {
	if a.currentTheme == nil {
		return tcell.ColorDefault
	}
	return a.currentTheme.Body.BgColor.Color()
}

func (a *App) getSelectionStyle() tcell.Style {
	if a.currentTheme == nil {
		return tcell.StyleDefault.Reverse(true)
	}
	return tcell.StyleDefault.
		Foreground(a.currentTheme.Table.HeaderFgColor.Color()).
		Background(a.currentTheme.Frame.FocusColor.Color())
}

// getStatusColor maps a feedback level onto the theme palette
func (a *App) getStatusColor(level LogLevel) tcell.Color {
	if a.currentTheme == nil {
		switch level {
		case LogLevelWarning:
			return tcell.ColorYellow
		case LogLevelError:
			return tcell.ColorRed
		case LogLevelSuccess:
			return tcell.ColorGreen
		}
		return tcell.ColorBlue
	}
	switch level {
	case LogLevelWarning:
		return a.currentTheme.Countdown.WarningColor.Color()
	case LogLevelError:
		return a.currentTheme.Countdown.ExpiredColor.Color()
	case LogLevelSuccess:
		return a.currentTheme.Countdown.NormalColor.Color()
	}
	return a.currentTheme.Frame.TitleColor.Color()
}

// configureList applies the theme to a picker list
func (a *App) configureList(list *tview.List) {
	list.SetBackgroundColor(a.getBackgroundColor())
	list.SetMainTextColor(tview.Styles.PrimaryTextColor)
	list.SetSelectedBackgroundColor(a.getFocusColor())
}

// configureInputField applies the theme to an input field
func (a *App) configureInputField(input *tview.InputField) {
	input.SetLabelColor(a.getTitleColor())
	input.SetFieldBackgroundColor(a.getBackgroundColor())
	input.SetFieldTextColor(tview.Styles.PrimaryTextColor)
	input.SetBackgroundColor(a.getBackgroundColor())
}
