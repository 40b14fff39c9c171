package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/analysis"
	"github.com/hyperjump/trendlens/internal/history"
	"github.com/hyperjump/trendlens/internal/metrics"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// ErrStopped is returned when the event loop is not running.
var ErrStopped = errors.New("session stopped")

type submitEvent struct {
	keywords []string
	reply    chan uint64
}

type outcomeEvent struct {
	epoch uint64
	rs    *models.ResultSet
	err   error
}

// Controller serializes session changes on one goroutine started by Run. Backend calls
// run concurrently and report back to the loop, which discards outcomes for any epoch
// other than the current one.
type Controller struct {
	analyzer analysis.Analyzer
	history  *history.Manager
	logger   *zap.Logger
	now      func() time.Time

	submits  chan submitEvent
	outcomes chan outcomeEvent
	done     chan struct{}
	once     sync.Once

	mu      sync.RWMutex
	state   State
	waiters map[uint64][]chan struct{}

	// owned by the loop
	cancelInFlight context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = utils.OrNop(l)
	}
}

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController returns a Controller. hist may be nil to disable history recording.
func NewController(analyzer analysis.Analyzer, hist *history.Manager, opts ...Option) *Controller {
	c := &Controller{
		analyzer: analyzer,
		history:  hist,
		logger:   zap.NewNop(),
		now:      time.Now,
		submits:  make(chan submitEvent),
		outcomes: make(chan outcomeEvent),
		done:     make(chan struct{}),
		waiters:  make(map[uint64][]chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes events until ctx is cancelled. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.once.Do(func() { started = true })
	if !started {
		return errors.New("session already running")
	}
	defer close(c.done)
	defer func() {
		if c.cancelInFlight != nil {
			c.cancelInFlight()
		}
	}()

	c.logger.Info("session loop started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("session loop stopped")
			return ctx.Err()
		case ev := <-c.submits:
			ev.reply <- c.begin(ctx, ev.keywords)
		case ev := <-c.outcomes:
			c.settle(ev)
		}
	}
}

func (c *Controller) begin(ctx context.Context, keywords []string) uint64 {
	if c.cancelInFlight != nil {
		c.cancelInFlight()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancelInFlight = cancel

	c.mu.Lock()
	prev := c.state.Epoch
	c.state = Begin(c.state, keywords, c.now())
	epoch := c.state.Epoch
	c.releaseThrough(prev)
	c.mu.Unlock()
	metrics.SetEpoch(epoch)

	if c.history != nil {
		if _, err := c.history.Record(ctx, keywords); err != nil {
			c.logger.Warn("failed to record history", zap.Error(err))
		}
	}

	c.logger.Info("analysis started", zap.Uint64("epoch", epoch), zap.Strings("keywords", keywords))
	go func() {
		rs, err := c.analyzer.Analyze(reqCtx, keywords)
		select {
		case c.outcomes <- outcomeEvent{epoch: epoch, rs: rs, err: err}:
		case <-c.done:
		}
	}()
	return epoch
}

func (c *Controller) settle(ev outcomeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var applied bool
	if ev.err != nil {
		c.state, applied = Fail(c.state, ev.epoch, ev.err, c.now())
	} else {
		c.state, applied = Complete(c.state, ev.epoch, ev.rs, c.now())
	}
	if !applied {
		metrics.RecordStale()
		c.logger.Debug("discarded stale outcome",
			zap.Uint64("epoch", ev.epoch),
			zap.Uint64("current", c.state.Epoch))
		return
	}
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
	if ev.err != nil {
		metrics.RecordError("analyze", "transport")
		c.logger.Warn("analysis failed", zap.Uint64("epoch", ev.epoch), zap.Error(ev.err))
	} else {
		c.logger.Info("analysis ready", zap.Uint64("epoch", ev.epoch), zap.Int("keywords", ev.rs.Len()))
	}
	c.releaseThrough(ev.epoch)
}

// releaseThrough wakes waiters for every epoch up to and including epoch.
// Callers hold c.mu.
func (c *Controller) releaseThrough(epoch uint64) {
	for e, chans := range c.waiters {
		if e <= epoch {
			for _, ch := range chans {
				close(ch)
			}
			delete(c.waiters, e)
		}
	}
}

// Submit validates keywords and starts a new epoch for them. Invalid input returns
// models.ErrNoKeywords and leaves the session untouched.
func (c *Controller) Submit(ctx context.Context, keywords []string) (uint64, error) {
	keywords, err := models.NormalizeKeywords(keywords)
	if err != nil {
		return 0, err
	}
	reply := make(chan uint64, 1)
	select {
	case c.submits <- submitEvent{keywords: keywords, reply: reply}:
	case <-c.done:
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case epoch := <-reply:
		return epoch, nil
	case <-c.done:
		return 0, ErrStopped
	}
}

// SubmitInput parses comma-separated input and submits it.
func (c *Controller) SubmitInput(ctx context.Context, input string) (uint64, error) {
	keywords, err := models.ParseKeywords(input)
	if err != nil {
		return 0, err
	}
	return c.Submit(ctx, keywords)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	s.Keywords = append([]string(nil), s.Keywords...)
	return s
}

// Results returns the current result set, or models.ErrNoResults when none is installed.
func (c *Controller) Results() (*models.ResultSet, error) {
	s := c.Snapshot()
	if s.Phase != PhaseReady || s.Results == nil {
		return nil, models.ErrNoResults
	}
	return s.Results, nil
}

// History returns the recent searches, most recent first.
func (c *Controller) History() []string {
	if c.history == nil {
		return []string{}
	}
	return c.history.List()
}

// ClearHistory empties the recent searches.
func (c *Controller) ClearHistory(ctx context.Context) error {
	if c.history == nil {
		return nil
	}
	return c.history.Clear(ctx)
}

// Await blocks until epoch settles and returns the state at that point. It returns
// models.ErrSuperseded when a newer epoch began first, and the transport error when
// the epoch failed.
func (c *Controller) Await(ctx context.Context, epoch uint64) (State, error) {
	for {
		c.mu.Lock()
		s := c.state
		switch {
		case epoch == 0 || epoch > s.Epoch:
			c.mu.Unlock()
			return s, fmt.Errorf("unknown epoch %d", epoch)
		case epoch < s.Epoch:
			c.mu.Unlock()
			return s, models.ErrSuperseded
		case s.Phase.Settled():
			c.mu.Unlock()
			return s, s.Err
		}
		ch := make(chan struct{})
		c.waiters[epoch] = append(c.waiters[epoch], ch)
		c.mu.Unlock()

		select {
		case <-ch:
		case <-c.done:
			return c.Snapshot(), ErrStopped
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Analyze submits keywords and waits for the outcome of that request.
func (c *Controller) Analyze(ctx context.Context, keywords []string) (State, error) {
	epoch, err := c.Submit(ctx, keywords)
	if err != nil {
		return c.Snapshot(), err
	}
	return c.Await(ctx, epoch)
}
