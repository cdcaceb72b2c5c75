package session

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// everySecond fires on each wall-clock second boundary
	everySecond = "* * * * * *"

	// countdownPollInterval is the resync cadence while the account still has time left
	countdownPollInterval = 10
	// expiredPollInterval is the resync cadence once the local countdown hit zero
	expiredPollInterval = 1
)

// PollInterval returns the resync cadence in seconds for the given remaining time
func PollInterval(expireIn int) int {
	if expireIn > 0 {
		return countdownPollInterval
	}
	return expiredPollInterval
}

// Ticker is the one-second local clock. Each tick counts the cached account
// down and, on the wall-clock cadence from PollInterval, fires resync without
// waiting for it.
type Ticker struct {
	store  *Store
	resync func()
	now    func() time.Time
	logger *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewTicker creates a stopped ticker. A nil now uses time.Now.
func NewTicker(store *Store, resync func(), now func() time.Time, logger *zap.Logger) *Ticker {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ticker{
		store:  store,
		resync: resync,
		now:    now,
		logger: logger,
	}
}

// Start begins ticking. It reports false when the ticker was already running.
func (t *Ticker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cron != nil {
		return false
	}

	cl := cronLogger{t.logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(
			cron.SkipIfStillRunning(cl),
			cron.Recover(cl),
		),
	)
	if _, err := c.AddFunc(everySecond, func() { t.Tick(t.now()) }); err != nil {
		// the schedule is a constant, so this only trips on a broken build
		t.logger.Error("could not schedule ticker", zap.Error(err))
		return false
	}
	c.Start()
	t.cron = c
	t.logger.Debug("ticker started")
	return true
}

// Stop halts ticking and waits for a running tick to return. Stopping a
// stopped ticker is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	c := t.cron
	t.cron = nil
	t.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	t.logger.Debug("ticker stopped")
}

// Running reports whether the ticker is scheduled
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cron != nil
}

// Tick runs one tick as if the clock read now. It reports whether a resync
// was triggered.
func (t *Ticker) Tick(now time.Time) bool {
	t.store.DecrementLocalExpiry()

	acct := t.store.Account()
	if acct == nil {
		return false
	}
	if now.Second()%PollInterval(acct.ExpireIn) != 0 {
		return false
	}
	if t.resync != nil {
		t.resync()
	}
	return true
}

// cronLogger routes cron's own logging into zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
