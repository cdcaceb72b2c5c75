package session

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/restan/tethbox/internal/tethbox"
)

type inboxFunc func(ctx context.Context) (*tethbox.Inbox, error)

// fakeAPI is a scriptable in-process API. Handlers can be swapped mid-test
// to model responses that resolve out of order.
type fakeAPI struct {
	mu sync.Mutex

	account  tethbox.Account
	messages []tethbox.Message
	details  map[string]tethbox.Message
	seq      int

	inboxFn    inboxFunc
	forwardErr error

	initCalls    int
	inboxCalls   int
	newCalls     int
	extendCalls  int
	messageCalls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		account:      tethbox.Account{Email: "a@t.co", ExpireIn: 600},
		details:      make(map[string]tethbox.Message),
		messageCalls: make(map[string]int),
	}
}

func (f *fakeAPI) setInbox(fn inboxFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inboxFn = fn
}

func (f *fakeAPI) setMessages(msgs ...tethbox.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = msgs
}

func (f *fakeAPI) setDetail(msg tethbox.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[msg.Key] = msg
}

func (f *fakeAPI) accountCalls() (initCalls, newCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.newCalls
}

func (f *fakeAPI) calls() (inbox, message int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.messageCalls {
		total += n
	}
	return f.inboxCalls, total
}

func (f *fakeAPI) Init(ctx context.Context) (*tethbox.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	acct := f.account
	return &acct, nil
}

func (f *fakeAPI) Inbox(ctx context.Context) (*tethbox.Inbox, error) {
	f.mu.Lock()
	f.inboxCalls++
	fn := f.inboxFn
	inbox := &tethbox.Inbox{Account: f.account, Messages: append([]tethbox.Message{}, f.messages...)}
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return inbox, nil
}

func (f *fakeAPI) NewAccount(ctx context.Context) (*tethbox.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newCalls++
	f.seq++
	f.account = tethbox.Account{Email: "new" + string(rune('0'+f.seq)) + "@t.co", ExpireIn: 600}
	f.messages = nil
	acct := f.account
	return &acct, nil
}

func (f *fakeAPI) ExtendTime(ctx context.Context) (*tethbox.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extendCalls++
	f.account.ExpireIn = 600
	acct := f.account
	return &acct, nil
}

func (f *fakeAPI) Message(ctx context.Context, key string) (*tethbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageCalls[key]++
	m, ok := f.details[key]
	if !ok {
		return nil, &tethbox.StatusError{Op: "message", StatusCode: http.StatusNotFound}
	}
	m = m.Clone()
	m.Fetched = true
	return &m, nil
}

func (f *fakeAPI) Forward(ctx context.Context, key, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forwardErr
}

func (f *fakeAPI) DownloadAttachment(ctx context.Context, key string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "attachment:"+key)
	return int64(n), err
}

func expiredErr() error {
	return &tethbox.StatusError{Op: "inbox", StatusCode: http.StatusGone}
}

// quietClock pins the ticker to a second that never matches the countdown
// cadence, so background ticks do not poll during a test.
func quietClock() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 5, 0, time.UTC)
}

func newTestController(t *testing.T, api API) *Controller {
	t.Helper()
	c := NewController(api, Options{Now: quietClock})
	t.Cleanup(c.Close)
	return c
}
