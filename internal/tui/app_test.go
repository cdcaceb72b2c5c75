package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/derailed/tview"
	"github.com/restan/tethbox/internal/config"
	"github.com/restan/tethbox/internal/services"
	"github.com/restan/tethbox/internal/session"
	"github.com/restan/tethbox/internal/tethbox"
	"github.com/restan/tethbox/internal/tethbox/tethboxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires an App to a fake mailbox server. Queued UI updates run on a
// single loop goroutine, the way the tview event loop would run them.
type testApp struct {
	*App
	srv     *tethboxtest.Server
	mu      sync.Mutex
	updates chan func()
	stop    chan struct{}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	srv := tethboxtest.NewServer(tethbox.RoutesLegacy)
	t.Cleanup(srv.Close)

	client, err := tethbox.NewClient(srv.URL, tethbox.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	ctrl := session.NewController(client, session.Options{})
	t.Cleanup(ctrl.Close)

	cfg := config.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Layout.CurrentTheme = ""

	ta := &testApp{
		srv:     srv,
		updates: make(chan func(), 1024),
		stop:    make(chan struct{}),
	}
	ta.App = NewApp(cfg, ctrl, Services{Links: services.NewLinkService()}, nil)
	ta.App.queueUpdate = func(fn func()) {
		select {
		case ta.updates <- fn:
		case <-ta.stop:
		}
	}
	go ta.loop()
	t.Cleanup(func() {
		ta.App.Close()
		close(ta.stop)
	})
	return ta
}

func (ta *testApp) loop() {
	for {
		select {
		case fn := <-ta.updates:
			ta.mu.Lock()
			fn()
			ta.mu.Unlock()
		case <-ta.stop:
			return
		}
	}
}

// ui waits for every update queued so far, then runs fn with the loop paused
func (ta *testApp) ui(fn func()) {
	done := make(chan struct{})
	ta.updates <- func() { close(done) }
	<-done
	ta.mu.Lock()
	defer ta.mu.Unlock()
	fn()
}

func (ta *testApp) text(name string) string {
	var out string
	ta.ui(func() {
		if tv, ok := ta.views[name].(*tview.TextView); ok {
			out = textOf(tv)
		}
	})
	return out
}

// deliver drops msg into the live inbox and polls it in
func (ta *testApp) deliver(t *testing.T, msg tethbox.Message) {
	t.Helper()
	ta.srv.AddMessage(msg)
	require.NoError(t, ta.ctrl.CheckInbox(context.Background()))
}

type fakeClipboard struct {
	mu     sync.Mutex
	copied []string
}

func (c *fakeClipboard) Copy(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = append(c.copied, text)
	return nil
}

func (c *fakeClipboard) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.copied...)
}

func welcomeMessage() tethbox.Message {
	return tethbox.Message{
		Key:           "m1",
		SenderAddress: "alice@example.com",
		SenderName:    "Alice",
		Subject:       "Welcome aboard",
		Date:          time.Now().Add(-2 * time.Minute).Unix(),
		HTML:          `<p>Hello <a href="https://example.com/start">start here</a></p>`,
		Attachments:   []tethbox.Attachment{{Key: "a1", Filename: "guide.pdf", Size: 1500}},
	}
}

func TestIsPlausibleAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"bob@example.com", true},
		{"a.b+c@sub.example.org", true},
		{"bob@example", false},
		{"bob", false},
		{"@example.com", false},
		{"bob@@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, isPlausibleAddress(tt.in))
		})
	}
}

func TestApp_InitRendersAccountAndInbox(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))
	ta.deliver(t, welcomeMessage())

	acct := ta.srv.Account()
	require.NotNil(t, acct)
	assert.Contains(t, ta.text("countdown"), acct.Email)

	ta.ui(func() {
		assert.Equal(t, session.PhaseActive, ta.phase)
		assert.Equal(t, []string{"m1"}, ta.rowKeys)
		list := ta.views["list"].(*tview.Table)
		assert.Contains(t, list.GetCell(0, 0).Text, "Welcome")
		assert.Contains(t, list.GetCell(0, 0).Text, "Alice")
		assert.Contains(t, list.GetTitle(), "1 unread")
	})
}

func TestApp_EmptyInboxShowsPlaceholder(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))

	ta.ui(func() {
		assert.Empty(t, ta.rowKeys)
		list := ta.views["list"].(*tview.Table)
		assert.Equal(t, "No messages yet", list.GetCell(0, 0).Text)
	})
}

func TestApp_OpenMessageShowsBodyAndMarksRead(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))
	ta.deliver(t, welcomeMessage())

	ta.openMessage("m1")

	body := ta.text("text")
	assert.Contains(t, body, "[BODY]\nHello start here [1]")
	assert.Contains(t, body, "1. guide.pdf (1.5 kB)")
	assert.Contains(t, body, "(1) https://example.com/start")
	assert.Contains(t, ta.text("header"), "Subject: Welcome aboard")

	ta.ui(func() {
		require.NotNil(t, ta.currentMessage)
		assert.Equal(t, "m1", ta.currentMessage.Key)
		assert.False(t, ta.viewingArchive)
		list := ta.views["list"].(*tview.Table)
		assert.NotContains(t, list.GetTitle(), "unread")
	})

	// Second open is served from the store
	ta.openMessage("m1")
	assert.Equal(t, 1, ta.srv.Hits("/message/m1"))
}

func TestApp_ExpiryClosesMailboxViews(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))
	ta.deliver(t, welcomeMessage())
	ta.openMessage("m1")

	ta.ui(func() {
		ta.openForwardForm()
		assert.Equal(t, "forward", ta.sidePanel)
	})

	ta.srv.Expire()
	// the background ticker may notice first, in which case this reports ErrNoAccount
	_ = ta.ctrl.CheckInbox(context.Background())

	ta.ui(func() {
		assert.Equal(t, session.PhaseExpired, ta.phase)
		assert.Empty(t, ta.sidePanel)
		assert.Nil(t, ta.currentMessage)
		assert.Empty(t, ta.rowKeys)
	})
	assert.Contains(t, ta.text("countdown"), "Mailbox expired")
	assert.Contains(t, ta.text("text"), "This mailbox has expired")
}

func TestApp_ArchivePanelSurvivesExpiry(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))

	entry := &services.ArchiveEntry{
		AccountEmail: "old@tethbox.test",
		SavedAt:      time.Now(),
		Message:      welcomeMessage(),
	}
	ta.ui(func() {
		ta.showArchivePicker([]*services.ArchiveEntry{entry})
		ta.showArchivedMessage(entry)
	})

	ta.srv.Expire()
	// the background ticker may notice first, in which case this reports ErrNoAccount
	_ = ta.ctrl.CheckInbox(context.Background())

	ta.ui(func() {
		assert.Equal(t, "archive", ta.sidePanel)
		require.NotNil(t, ta.currentMessage)
		assert.True(t, ta.viewingArchive)
	})
	assert.Contains(t, ta.text("header"), "To: old@tethbox.test")
}

func TestApp_RotationClearsOpenMessage(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))
	ta.deliver(t, welcomeMessage())
	ta.openMessage("m1")

	require.NoError(t, ta.ctrl.CreateAccount(context.Background()))

	acct := ta.srv.Account()
	ta.ui(func() {
		assert.Nil(t, ta.currentMessage)
		assert.Equal(t, acct.Email, ta.accountEmail)
		assert.Empty(t, ta.rowKeys)
	})
	assert.Contains(t, ta.text("text"), "Your address: "+acct.Email)
}

func TestApp_ForwardReportsOutcome(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))
	ta.deliver(t, welcomeMessage())
	ta.openMessage("m1")

	var result *tview.TextView
	ta.ui(func() {
		ta.openForwardForm()
		result = tview.NewTextView()
	})

	ta.forward("m1", "bob@example.com", result)
	ta.ui(func() {
		assert.Equal(t, "Email forwarded successfully.", textOf(result))
	})
	assert.Equal(t, []string{"bob@example.com"}, ta.srv.Forwarded("m1"))

	ta.srv.ForwardError = "Recipient domain is blocked."
	ta.forward("m1", "bob@blocked.example", result)
	ta.ui(func() {
		assert.Equal(t, "Recipient domain is blocked.", textOf(result))
	})
}

func TestApp_ForwardNeedsOpenMessage(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))

	ta.ui(func() {
		ta.openForwardForm()
		assert.Empty(t, ta.sidePanel)
	})
}

func TestApp_LinkPickerListsMessageLinks(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.ctrl.Init(context.Background()))
	ta.deliver(t, welcomeMessage())
	ta.openMessage("m1")

	ta.ui(func() {
		ta.openLinkPicker()
		assert.Equal(t, "links", ta.sidePanel)
		sp := ta.views["sidePanel"].(*tview.Flex)
		assert.Contains(t, sp.GetTitle(), "Links (1)")

		ta.closeSidePanel("text")
		assert.Empty(t, ta.sidePanel)
		assert.Equal(t, "text", ta.currentFocus)
	})
}

func TestApp_HelpUsesConfiguredKeys(t *testing.T) {
	ta := newTestApp(t)
	ta.Keys.NewAccount = "N"

	help := ta.generateHelpText()
	assert.Contains(t, help, "N        Create a new address")
	assert.Contains(t, help, "Forward open message")

	ta.ui(func() {
		ta.toggleHelp()
		assert.True(t, ta.showHelp)
	})
	assert.Contains(t, ta.text("text"), "Keyboard shortcuts")

	ta.ui(func() { ta.toggleHelp() })
	assert.NotContains(t, ta.text("text"), "Keyboard shortcuts")
}

func TestApp_CopyAddressFlashesConfirmation(t *testing.T) {
	ta := newTestApp(t)
	clip := &fakeClipboard{}
	ta.ui(func() { ta.clipboardService = clip })
	require.NoError(t, ta.ctrl.Init(context.Background()))

	acct := ta.srv.Account()
	require.NotNil(t, acct)
	ta.ui(func() { ta.copyAddress() })

	assert.Eventually(t, func() bool {
		return ta.text("flash") == "✅ Copied "+acct.Email
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{acct.Email}, clip.texts())
	assert.Equal(t, ta.statusBaseline(), ta.text("status"), "confirmations stay out of the status bar")
}
