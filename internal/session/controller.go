package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/restan/tethbox/internal/metrics"
	"github.com/restan/tethbox/internal/tethbox"
	"go.uber.org/zap"
)

// API is the subset of the mailbox client the controller drives
type API interface {
	Init(ctx context.Context) (*tethbox.Account, error)
	Inbox(ctx context.Context) (*tethbox.Inbox, error)
	NewAccount(ctx context.Context) (*tethbox.Account, error)
	ExtendTime(ctx context.Context) (*tethbox.Account, error)
	Message(ctx context.Context, key string) (*tethbox.Message, error)
	Forward(ctx context.Context, key, address string) error
	DownloadAttachment(ctx context.Context, key string, w io.Writer) (int64, error)
}

// Phase is the session lifecycle state
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseActive
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseActive:
		return "active"
	case PhaseExpired:
		return "expired"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	// ErrAlreadyInitialized is returned by a second Init
	ErrAlreadyInitialized = errors.New("session already initialized")
	// ErrStale is returned when the session changed while a request was in flight
	ErrStale = errors.New("session changed during request")
	// ErrClosed is returned once the controller has been closed
	ErrClosed = errors.New("session controller closed")
)

const defaultPollTimeout = 10 * time.Second

// Options tunes a Controller
type Options struct {
	Logger *zap.Logger
	// PollTimeout bounds each background inbox poll
	PollTimeout time.Duration
	// Now overrides the ticker clock
	Now func() time.Time
}

// Controller owns the session store and the ticker and applies server
// responses to them. Every request remembers the session generation it was
// issued under; a response is applied only while the session is still active
// under that same generation, so a late answer can neither resurrect an
// expired account nor tear down a replacement.
//
// Store and phase observers run while the controller lock is held and must
// not call back into the Controller.
type Controller struct {
	api         API
	store       *Store
	ticker      *Ticker
	logger      *zap.Logger
	pollTimeout time.Duration

	mu         sync.Mutex
	phase      Phase
	generation uint64
	closed     bool

	obsMu    sync.Mutex
	phaseObs []func(Phase)

	polling atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewController wires a controller around api
func NewController(api API, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("session")

	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:         api,
		store:       NewStore(),
		logger:      logger,
		pollTimeout: pollTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
	c.ticker = NewTicker(c.store, c.periodicPoll, opts.Now, logger.Named("ticker"))
	return c
}

// Store exposes the session store for reads and observer registration
func (c *Controller) Store() *Store {
	return c.store
}

// Phase returns the current session phase
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// TickerRunning reports whether the local countdown is ticking
func (c *Controller) TickerRunning() bool {
	return c.ticker.Running()
}

// OnPhaseChanged subscribes fn to phase transitions
func (c *Controller) OnPhaseChanged(fn func(Phase)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.phaseObs = append(c.phaseObs, fn)
}

// Init obtains the session account, loads its inbox once and starts the ticker
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase != PhaseUninitialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	gen := c.generation
	c.mu.Unlock()

	acct, err := c.api.Init(ctx)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	c.mu.Lock()
	if c.phase != PhaseUninitialized || c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("dropping stale init response", zap.String("email", acct.Email))
		return nil
	}
	c.store.SetAccount(acct)
	c.setPhaseLocked(PhaseActive)
	c.mu.Unlock()
	c.logger.Info("session initialized", zap.String("email", acct.Email), zap.Int("expire_in", acct.ExpireIn))

	if err := c.CheckInbox(ctx); err != nil {
		c.logger.Warn("initial inbox check failed", zap.Error(err))
	}
	c.startTicker()
	return nil
}

// CheckInbox polls the server and applies the result. A 410 tears the
// session down and is not reported as an error. Responses that resolve after
// the session moved on are dropped.
func (c *Controller) CheckInbox(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return tethbox.ErrNoAccount
	}
	gen := c.generation
	c.mu.Unlock()

	inbox, err := c.api.Inbox(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseActive || c.generation != gen {
		metrics.IncrementResync("stale")
		c.logger.Debug("dropping stale inbox response", zap.Uint64("generation", gen), zap.Error(err))
		return nil
	}
	if err != nil {
		if tethbox.IsExpired(err) {
			metrics.IncrementResync("expired")
			c.expireLocked()
			return nil
		}
		metrics.IncrementResync("failed")
		return fmt.Errorf("check inbox: %w", err)
	}

	c.store.SetAccount(&inbox.Account)
	c.store.SetMessages(inbox.Messages)
	metrics.IncrementResync("applied")
	return nil
}

// CreateAccount replaces whatever account the session had with a fresh one.
// It is the only way out of the expired phase.
func (c *Controller) CreateAccount(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	acct, err := c.api.NewAccount(ctx)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.generation++
	c.store.SetAccount(acct)
	c.setPhaseLocked(PhaseActive)
	c.mu.Unlock()
	c.logger.Info("account created", zap.String("email", acct.Email))

	if err := c.CheckInbox(ctx); err != nil {
		c.logger.Warn("inbox check after account creation failed", zap.Error(err))
	}
	c.startTicker()
	return nil
}

// ExtendTime resets the account countdown. It needs an active account.
func (c *Controller) ExtendTime(ctx context.Context) error {
	gen, err := c.activeGeneration()
	if err != nil {
		return err
	}

	acct, err := c.api.ExtendTime(ctx)
	if err != nil {
		return fmt.Errorf("extend time: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseActive || c.generation != gen {
		c.logger.Debug("dropping stale extend response")
		return ErrStale
	}
	c.store.SetAccount(acct)
	return nil
}

// OpenMessage returns the message with its detail. The detail is fetched
// once and then served from the store. The message is marked read locally.
func (c *Controller) OpenMessage(ctx context.Context, key string) (tethbox.Message, error) {
	if m, ok := c.store.Message(key); ok && m.Fetched {
		c.store.MarkRead(key)
		m.Read = true
		return m, nil
	}

	gen, err := c.activeGeneration()
	if err != nil {
		return tethbox.Message{}, err
	}

	detail, err := c.api.Message(ctx, key)
	if err != nil {
		return tethbox.Message{}, fmt.Errorf("open message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseActive || c.generation != gen {
		return tethbox.Message{}, ErrStale
	}
	c.store.MergeDetail(*detail)
	c.store.MarkRead(key)
	if m, ok := c.store.Message(key); ok {
		return m, nil
	}
	// a poll dropped the summary while the detail was in flight
	m := detail.Clone()
	m.Read = true
	return m, nil
}

// Forward asks the server to forward a message. A rejected address comes
// back unwrapped so its reason can be shown as is.
func (c *Controller) Forward(ctx context.Context, key, address string) error {
	if _, err := c.activeGeneration(); err != nil {
		return err
	}
	return c.api.Forward(ctx, key, address)
}

// DownloadAttachment streams an attachment of the current account into w
func (c *Controller) DownloadAttachment(ctx context.Context, key string, w io.Writer) (int64, error) {
	if _, err := c.activeGeneration(); err != nil {
		return 0, err
	}
	n, err := c.api.DownloadAttachment(ctx, key, w)
	if err != nil {
		return n, fmt.Errorf("download attachment: %w", err)
	}
	return n, nil
}

// Close stops the ticker and waits for background polls to finish
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.ticker.Stop()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) activeGeneration() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseActive || c.store.Account() == nil {
		return 0, tethbox.ErrNoAccount
	}
	return c.generation, nil
}

func (c *Controller) startTicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != PhaseActive {
		return
	}
	c.ticker.Start()
}

// periodicPoll is the ticker's resync hook. It never blocks the tick and
// skips while the previous periodic poll is still out.
func (c *Controller) periodicPoll() {
	if !c.polling.CompareAndSwap(false, true) {
		c.logger.Debug("previous poll still in flight, skipping")
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.polling.Store(false)

		ctx, cancel := context.WithTimeout(c.ctx, c.pollTimeout)
		defer cancel()
		if err := c.CheckInbox(ctx); err != nil && !errors.Is(err, tethbox.ErrNoAccount) {
			c.logger.Warn("periodic inbox check failed", zap.Error(err))
		}
	}()
}

// expireLocked tears the session down after a 410. c.mu must be held.
func (c *Controller) expireLocked() {
	c.generation++
	c.ticker.Stop()
	c.store.SetAccount(nil)
	c.setPhaseLocked(PhaseExpired)
	metrics.IncrementSessionExpired()
	c.logger.Info("account expired")
}

func (c *Controller) setPhaseLocked(p Phase) {
	if c.phase == p {
		return
	}
	c.logger.Debug("phase change", zap.Stringer("from", c.phase), zap.Stringer("to", p))
	c.phase = p

	c.obsMu.Lock()
	obs := slices.Clone(c.phaseObs)
	c.obsMu.Unlock()
	for _, fn := range obs {
		fn(p)
	}
}
