package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/session"
	"github.com/restan/tethbox/internal/tethbox"
)

// openForwardForm asks for an address and forwards the open message to it.
// The form stays open after sending so the result can be read.
func (a *App) openForwardForm() {
	if a.currentMessage == nil || a.viewingArchive {
		a.GetErrorHandler().ShowWarning(a.ctx, "Open a message to forward it")
		return
	}
	key := a.currentMessage.Key
	subject := a.currentMessage.Subject

	input := tview.NewInputField().
		SetLabel("To: ").
		SetFieldWidth(0).
		SetPlaceholder("someone@example.com")
	a.configureInputField(input)

	result := tview.NewTextView().SetDynamicColors(false).SetWrap(true)
	result.SetBackgroundColor(a.getBackgroundColor())

	about := tview.NewTextView().SetDynamicColors(false).SetWrap(true)
	about.SetBackgroundColor(a.getBackgroundColor())
	about.SetText("Forward \"" + subject + "\"\nEnter sends, Esc closes.")

	// Visual hint only; the server decides
	input.SetChangedFunc(func(text string) {
		switch {
		case strings.TrimSpace(text) == "":
			input.SetLabelColor(a.getTitleColor())
		case isPlausibleAddress(text):
			input.SetLabelColor(a.renderer.Colorer().NormalColor)
		default:
			input.SetLabelColor(a.renderer.Colorer().WarningColor)
		}
	})

	input.SetDoneFunc(func(k tcell.Key) {
		switch k {
		case tcell.KeyEscape:
			a.closeSidePanel(a.restoreFocusTarget())
		case tcell.KeyEnter:
			address := strings.TrimSpace(input.GetText())
			result.SetTextColor(a.getTitleColor())
			result.SetText("Forwarding...")
			go a.forward(key, address, result)
		}
	})

	container := tview.NewFlex().SetDirection(tview.FlexRow)
	container.SetBackgroundColor(a.getBackgroundColor())
	container.AddItem(about, 3, 0, false)
	container.AddItem(input, 1, 0, true)
	container.AddItem(result, 0, 1, false)

	a.openSidePanel("forward", " ✉️ Forward ", container, input)
}

// forward sends the request and reports into result. Called off the UI goroutine.
func (a *App) forward(key, address string, result *tview.TextView) {
	err := a.ctrl.Forward(a.ctx, key, address)
	if errors.Is(err, context.Canceled) {
		return
	}

	msg, color := "Email forwarded successfully.", a.renderer.Colorer().NormalColor
	if err != nil {
		color = a.renderer.Colorer().ExpiredColor
		var verr *tethbox.ValidationError
		switch {
		case errors.As(err, &verr):
			// Reason is shown verbatim
			msg = verr.Reason
		case errors.Is(err, tethbox.ErrNoAccount), errors.Is(err, session.ErrStale):
			msg = "The mailbox is gone; nothing was forwarded."
		case errors.Is(err, tethbox.ErrMessageNotFound), errors.Is(err, tethbox.ErrForbidden):
			msg = "Message is no longer available."
		default:
			msg = "Forwarding failed. Try again."
		}
		a.GetErrorHandler().HandleError(a.ctx, err, msg)
	} else {
		a.GetErrorHandler().ShowSuccess(a.ctx, "Forwarded to "+address)
	}

	a.queueUpdate(func() {
		if a.sidePanel != "forward" {
			return
		}
		result.SetTextColor(color)
		result.SetText(msg)
	})
}
