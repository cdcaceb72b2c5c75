package tui

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/config"
	"github.com/restan/tethbox/internal/render"
	"github.com/restan/tethbox/internal/services"
	"github.com/restan/tethbox/internal/session"
	"github.com/restan/tethbox/internal/tethbox"
	"go.uber.org/zap"
)

// forwardAddressRe mirrors the server's address check. It only colors the
// input; the server has the final word.
var forwardAddressRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// Services bundles the helpers the UI delegates to
type Services struct {
	Attachments services.AttachmentService
	Links       services.LinkService
	Clipboard   services.ClipboardService
	Archive     services.ArchiveService
	Theme       services.ThemeService
}

// App is the terminal UI. It observes the session store and controller and
// forwards user actions to the controller.
type App struct {
	*tview.Application
	Pages  *tview.Pages
	Config *config.Config
	Keys   config.KeyBindings

	configPath string

	ctrl   *session.Controller
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu    sync.RWMutex
	views map[string]tview.Primitive

	renderer     *render.MessageRenderer
	currentTheme *config.ColorsConfig
	errorHandler *ErrorHandler

	// State owned by the UI goroutine
	phase          session.Phase
	accountEmail   string
	messages       []tethbox.Message
	rowKeys        []string // message key per table row
	currentMessage *tethbox.Message
	viewingArchive bool   // currentMessage came from the archive
	archiveAccount string // mailbox of the archived message on screen
	currentFocus   string
	sidePanel      string // "", "attachments", "links", "archive", "themes", "forward"
	showHelp       bool
	screenWidth    int

	attachmentService services.AttachmentService
	linkService       services.LinkService
	clipboardService  services.ClipboardService
	archiveService    services.ArchiveService
	themeService      services.ThemeService

	unsubscribe []func()

	// queueUpdate runs fn on the UI goroutine; tests replace it
	queueUpdate func(fn func())
}

// NewApp builds the UI around a session controller
func NewApp(cfg *config.Config, ctrl *session.Controller, svc Services, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Application:       tview.NewApplication(),
		Pages:             tview.NewPages(),
		Config:            cfg,
		Keys:              cfg.Keys,
		ctrl:              ctrl,
		ctx:               ctx,
		cancel:            cancel,
		logger:            logger.Named("tui"),
		views:             make(map[string]tview.Primitive),
		renderer:          render.NewMessageRenderer(),
		currentFocus:      "list",
		screenWidth:       80,
		attachmentService: svc.Attachments,
		linkService:       svc.Links,
		clipboardService:  svc.Clipboard,
		archiveService:    svc.Archive,
		themeService:      svc.Theme,
	}
	app.queueUpdate = func(fn func()) { app.QueueUpdateDraw(fn) }

	// Theme first so components pick up the colors
	app.applyTheme()

	app.initComponents()
	app.initViews()
	app.initErrorHandler()
	app.bindKeys()

	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		w, _ := screen.Size()
		if w != app.screenWidth {
			app.screenWidth = w
			app.reformatListItems()
		}
		return false
	})

	app.subscribe()
	return app
}

// subscribe registers the presentation observers. They may run on any
// goroutine, so they only capture values and hop to the UI goroutine.
func (a *App) subscribe() {
	store := a.ctrl.Store()
	a.unsubscribe = append(a.unsubscribe,
		store.OnAccountChanged(func(acct *tethbox.Account) {
			a.queueUpdate(func() { a.renderAccount(acct) })
		}),
		store.OnMessagesChanged(func(msgs []tethbox.Message) {
			a.queueUpdate(func() { a.renderMessages(msgs) })
		}),
	)
	a.ctrl.OnPhaseChanged(func(p session.Phase) {
		a.queueUpdate(func() { a.handlePhase(p) })
	})
}

// Run initializes the session in the background and blocks on the UI loop
func (a *App) Run() error {
	a.SetRoot(a.Pages, true)
	a.SetFocus(a.views["list"])
	a.showWelcomeScreen(true)

	go func() {
		if err := a.ctrl.Init(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.GetErrorHandler().HandleError(a.ctx, err, "Could not reach the mailbox server")
		}
	}()

	err := a.Application.Run()
	a.Close()
	return err
}

// Close cancels in-flight actions and detaches observers. Safe to call twice.
func (a *App) Close() {
	a.cancel()
	a.mu.Lock()
	unsubs := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

func (a *App) initErrorHandler() {
	status, _ := a.views["status"].(*tview.TextView)
	flash, _ := a.views["flash"].(*tview.TextView)
	a.errorHandler = NewErrorHandler(a.Application, a, status, flash, a.logger)
	a.errorHandler.queue = func(fn func()) { a.queueUpdate(fn) }
}

// GetErrorHandler returns the status bar feedback component
func (a *App) GetErrorHandler() *ErrorHandler {
	return a.errorHandler
}

// GetController returns the session controller
func (a *App) GetController() *session.Controller {
	return a.ctrl
}

// runAction runs a controller call off the UI goroutine and reports the outcome
func (a *App) runAction(name string, fn func(ctx context.Context) error, success string) {
	go func() {
		err := fn(a.ctx)
		switch {
		case err == nil:
			if success != "" {
				a.GetErrorHandler().ShowSuccess(a.ctx, success)
			}
		case errors.Is(err, context.Canceled):
		case errors.Is(err, session.ErrStale):
			a.logger.Debug("dropped stale action", zap.String("action", name))
		case errors.Is(err, tethbox.ErrNoAccount):
			a.GetErrorHandler().ShowWarning(a.ctx, "No active mailbox. Press "+keyLabel(a.Keys.NewAccount, "n")+" to create one")
		case tethbox.IsValidation(err):
			var verr *tethbox.ValidationError
			errors.As(err, &verr)
			a.GetErrorHandler().HandleError(a.ctx, err, verr.Reason)
		default:
			a.GetErrorHandler().HandleError(a.ctx, err, name+" failed")
		}
	}()
}

// statusBaseline is the status bar text when nothing else is shown
func (a *App) statusBaseline() string {
	return "tethbox | " + keyLabel(a.Keys.Help, "?") + " help | " + keyLabel(a.Keys.Quit, "q") + " quit"
}

func keyLabel(key, fallback string) string {
	if key == "" {
		return fallback
	}
	return key
}

// isPlausibleAddress reports whether s looks like an email address
func isPlausibleAddress(s string) bool {
	return forwardAddressRe.MatchString(s)
}
