package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// LogLevel represents the severity of a message
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelSuccess
)

// statusTTL is how long a transient status message stays up
const statusTTL = 5 * time.Second

// ErrorHandler provides consistent error handling and user feedback
type ErrorHandler struct {
	mu         sync.RWMutex
	app        *tview.Application
	appRef     *App // Reference to main App for baseline status
	statusView *tview.TextView
	flashView  *tview.TextView
	logger     *zap.Logger

	// queue runs fn on the UI goroutine; nil means QueueUpdateDraw on app
	queue func(fn func())

	// Status message state
	currentStatus    string
	persistentStatus string
	statusTimer      *time.Timer
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(app *tview.Application, appRef *App, statusView *tview.TextView, flashView *tview.TextView, logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		app:        app,
		appRef:     appRef,
		statusView: statusView,
		flashView:  flashView,
		logger:     logger,
	}
}

// HandleError logs err and shows userMsg in the status bar
func (eh *ErrorHandler) HandleError(ctx context.Context, err error, userMsg string) {
	if err == nil {
		return
	}

	eh.log().Error("operation failed", zap.String("message", userMsg), zap.Error(err))

	if userMsg == "" {
		userMsg = "An error occurred"
	}
	eh.ShowMessage(ctx, userMsg, LogLevelError)
}

// ShowMessage displays a transient message to the user
func (eh *ErrorHandler) ShowMessage(ctx context.Context, msg string, level LogLevel) {
	if strings.TrimSpace(msg) == "" {
		return
	}

	formattedMsg := eh.formatMessage(msg, level)
	eh.log().Debug("status", zap.String("level", eh.levelToString(level)), zap.String("message", msg))

	eh.dispatch(func() {
		eh.updateStatusMessage(formattedMsg, level)
	})
}

// ShowPersistentMessage shows a status message that stays until cleared
func (eh *ErrorHandler) ShowPersistentMessage(ctx context.Context, msg string, level LogLevel) {
	formattedMsg := eh.formatMessage(msg, level)
	eh.dispatch(func() {
		eh.updatePersistentStatus(formattedMsg)
	})
}

// ClearPersistentMessage clears the persistent status message
func (eh *ErrorHandler) ClearPersistentMessage() {
	eh.dispatch(func() {
		eh.updatePersistentStatus("")
	})
}

// ShowFlashMessage shows a temporary flash message
func (eh *ErrorHandler) ShowFlashMessage(ctx context.Context, msg string, level LogLevel, duration time.Duration) {
	if eh.flashView == nil {
		eh.ShowMessage(ctx, msg, level)
		return
	}

	formattedMsg := eh.formatMessage(msg, level)
	eh.dispatch(func() {
		eh.flashView.SetText(formattedMsg)
		eh.flashView.SetTextColor(eh.levelToColor(level))
		time.AfterFunc(duration, func() {
			eh.dispatch(func() {
				if strings.TrimSpace(eh.flashView.GetText(false)) == formattedMsg {
					eh.flashView.SetText("")
				}
			})
		})
	})
}

// dispatch hands fn to the UI goroutine. Without an application (tests)
// fn runs inline.
func (eh *ErrorHandler) dispatch(fn func()) {
	switch {
	case eh.queue != nil:
		eh.queue(fn)
	case eh.app != nil:
		eh.app.QueueUpdateDraw(fn)
	default:
		fn()
	}
}

func (eh *ErrorHandler) log() *zap.Logger {
	if eh.logger == nil {
		return zap.NewNop()
	}
	return eh.logger
}

// formatMessage prefixes a message with the icon of its level
func (eh *ErrorHandler) formatMessage(msg string, level LogLevel) string {
	var icon string

	switch level {
	case LogLevelInfo:
		icon = "ℹ️"
	case LogLevelWarning:
		icon = "⚠️"
	case LogLevelError:
		icon = "❌"
	case LogLevelSuccess:
		icon = "✅"
	default:
		icon = "•"
	}

	return fmt.Sprintf("%s %s", icon, msg)
}

func (eh *ErrorHandler) levelToString(level LogLevel) string {
	switch level {
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// levelToColor maps a level onto the countdown palette of the current theme
func (eh *ErrorHandler) levelToColor(level LogLevel) tcell.Color {
	if eh.appRef == nil {
		switch level {
		case LogLevelWarning:
			return tcell.ColorYellow
		case LogLevelError:
			return tcell.ColorRed
		case LogLevelSuccess:
			return tcell.ColorGreen
		default:
			return tcell.ColorBlue
		}
	}
	return eh.appRef.getStatusColor(level)
}

// updateStatusMessage updates the status message and schedules its removal
func (eh *ErrorHandler) updateStatusMessage(msg string, level LogLevel) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	if eh.statusTimer != nil {
		eh.statusTimer.Stop()
	}

	eh.currentStatus = msg
	eh.refreshStatusDisplay()

	expected := msg
	eh.statusTimer = time.AfterFunc(statusTTL, func() {
		eh.clearCurrentStatusSafely(expected)
	})
}

// clearCurrentStatusSafely clears the status only if no newer message replaced it
func (eh *ErrorHandler) clearCurrentStatusSafely(expectedMsg string) {
	eh.dispatch(func() {
		eh.mu.Lock()
		defer eh.mu.Unlock()
		if eh.currentStatus == expectedMsg {
			eh.currentStatus = ""
			eh.refreshStatusDisplay()
		}
	})
}

func (eh *ErrorHandler) updatePersistentStatus(msg string) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.persistentStatus = msg
	eh.refreshStatusDisplay()
}

// refreshStatusDisplay shows the transient message, else the persistent one, else the baseline
func (eh *ErrorHandler) refreshStatusDisplay() {
	if eh.statusView == nil {
		return
	}

	var displayText string
	if eh.currentStatus != "" {
		displayText = eh.currentStatus
	} else if eh.persistentStatus != "" {
		displayText = eh.persistentStatus
	} else {
		displayText = eh.getBaselineStatus()
	}

	eh.statusView.SetText(displayText)
}

func (eh *ErrorHandler) getBaselineStatus() string {
	if eh.appRef != nil {
		return eh.appRef.statusBaseline()
	}
	return "tethbox | ? help | q quit"
}

// ShowInfo shows an info message
func (eh *ErrorHandler) ShowInfo(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelInfo)
}

// ShowWarning shows a warning message
func (eh *ErrorHandler) ShowWarning(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelWarning)
}

// ShowError shows an error message
func (eh *ErrorHandler) ShowError(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelError)
}

// ShowSuccess shows a success message
func (eh *ErrorHandler) ShowSuccess(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelSuccess)
}

// ShowProgress shows a progress message
func (eh *ErrorHandler) ShowProgress(ctx context.Context, msg string) {
	eh.ShowPersistentMessage(ctx, msg, LogLevelInfo)
}

// ClearProgress clears any progress message
func (eh *ErrorHandler) ClearProgress() {
	eh.ClearPersistentMessage()
}
