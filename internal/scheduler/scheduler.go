// Package scheduler fires one recurring billing task per currency. A tick
// only runs the currency's billing when the reference-zone calendar day is a
// billing day, so every tick of days 1 and 2 gets a chance to charge.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cassiomorais/billing/internal/domain/invoice"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

const (
	DefaultPeriod    = 10 * time.Second
	DefaultMaxJitter = 10 * time.Second
)

// DefaultBillingDays are the days of the month a tick may bill on. Day 2
// picks up invoices left retryable by network errors on day 1.
var DefaultBillingDays = []int{1, 2}

var (
	ErrUnknownCurrency = errors.New("no billing task for currency")
	ErrAlreadyStarted  = errors.New("scheduler already started")
)

// Runner bills one currency.
type Runner interface {
	Run(ctx context.Context, currency invoice.Currency) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, currency invoice.Currency) error

func (f RunnerFunc) Run(ctx context.Context, currency invoice.Currency) error {
	return f(ctx, currency)
}

// RunGuard serializes billing runs of a currency across processes.
type RunGuard interface {
	TryAcquire(ctx context.Context, currency invoice.Currency) (bool, error)
	Release(ctx context.Context, currency invoice.Currency) error
}

// State is the lifecycle state of a currency task.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	default:
		return "idle"
	}
}

// TickResult reports what a tick did.
type TickResult string

const (
	TickSkippedDay     TickResult = "skipped_day"
	TickSkippedOverlap TickResult = "skipped_overlap"
	TickRan            TickResult = "ran"
	TickFailed         TickResult = "failed"
)

// task owns everything one currency's timer touches.
type task struct {
	currency invoice.Currency
	runner   Runner
	state    atomic.Int32
}

type Scheduler struct {
	tasks      map[invoice.Currency]*task
	period     time.Duration
	maxJitter  time.Duration
	days       map[int]struct{}
	clock      Clock
	loc        *time.Location
	runTimeout time.Duration
	guard      RunGuard
	logger     zerolog.Logger
	metrics    *observability.Metrics
	random     func(n int64) int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

type Option func(*Scheduler)

// WithPeriod sets the interval between ticks of a task.
func WithPeriod(d time.Duration) Option {
	return func(s *Scheduler) { s.period = d }
}

// WithMaxJitter bounds the random delay before a task's first tick.
func WithMaxJitter(d time.Duration) Option {
	return func(s *Scheduler) { s.maxJitter = d }
}

// WithBillingDays sets the days of the month on which ticks run billing.
func WithBillingDays(days ...int) Option {
	return func(s *Scheduler) {
		s.days = make(map[int]struct{}, len(days))
		for _, d := range days {
			s.days[d] = struct{}{}
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLocation sets the time zone the billing day is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithRunTimeout bounds a single billing run. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.runTimeout = d }
}

// WithRunGuard adds a guard consulted before every run, on top of the
// in-process overlap check.
func WithRunGuard(g RunGuard) Option {
	return func(s *Scheduler) { s.guard = g }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithRandom replaces the jitter source. fn(n) must return a value in [0, n).
func WithRandom(fn func(n int64) int64) Option {
	return func(s *Scheduler) { s.random = fn }
}

// New builds a scheduler with one task per entry of tasks.
func New(tasks map[invoice.Currency]Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:     make(map[invoice.Currency]*task, len(tasks)),
		period:    DefaultPeriod,
		maxJitter: DefaultMaxJitter,
		clock:     SystemClock{},
		loc:       time.UTC,
		logger:    zerolog.Nop(),
		random:    rand.Int63n,
	}
	WithBillingDays(DefaultBillingDays...)(s)
	for currency, runner := range tasks {
		s.tasks[currency] = &task{currency: currency, runner: runner}
	}
	for _, o := range opts {
		o(s)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// Currencies lists the scheduled currencies in a stable order.
func (s *Scheduler) Currencies() []invoice.Currency {
	out := make([]invoice.Currency, 0, len(s.tasks))
	for c := range s.tasks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// State returns the current state of a currency's task.
func (s *Scheduler) State(currency invoice.Currency) (State, error) {
	t, ok := s.tasks[currency]
	if !ok {
		return StateIdle, fmt.Errorf("%s: %w", currency, ErrUnknownCurrency)
	}
	return State(t.state.Load()), nil
}

// ShouldRun reports whether now falls on a billing day in the reference
// time zone.
func (s *Scheduler) ShouldRun(now time.Time) bool {
	_, ok := s.days[now.In(s.loc).Day()]
	return ok
}

// Start arms every task. Each task waits a random jitter, ticks, and then
// ticks again every period until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, currency := range s.Currencies() {
		t := s.tasks[currency]
		delay := s.jitter()
		s.logger.Info().
			Str("currency", currency.String()).
			Dur("initial_delay", delay).
			Dur("period", s.period).
			Msg("Billing task armed")

		s.wg.Add(1)
		go s.loop(ctx, t, delay)
	}
	return nil
}

// Stop cancels all timers and waits for in-flight runs to return. Runs
// observe the cancellation through their context.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, t *task, delay time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		// Ticks run off the timer goroutine so a slow run is seen, and
		// skipped, by the next tick.
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_, _ = s.Tick(ctx, t.currency)
		}()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick performs one tick for currency synchronously. Run errors and panics
// are logged and reported as TickFailed; the returned error is only set for
// an unknown currency.
func (s *Scheduler) Tick(ctx context.Context, currency invoice.Currency) (TickResult, error) {
	t, ok := s.tasks[currency]
	if !ok {
		return "", fmt.Errorf("%s: %w", currency, ErrUnknownCurrency)
	}
	logger := s.logger.With().Str("currency", currency.String()).Logger()

	if !t.state.CompareAndSwap(int32(StateIdle), int32(StateArmed)) {
		logger.Warn().Msg("Previous billing run still in progress, skipping tick")
		return s.record(currency, TickSkippedOverlap), nil
	}
	defer t.state.Store(int32(StateIdle))

	now := s.clock.Now()
	if !s.ShouldRun(now) {
		logger.Debug().Int("day", now.In(s.loc).Day()).Msg("Not a billing day")
		return s.record(currency, TickSkippedDay), nil
	}

	if s.guard != nil {
		acquired, err := s.guard.TryAcquire(ctx, currency)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to acquire run guard")
			return s.record(currency, TickFailed), nil
		}
		if !acquired {
			logger.Info().Msg("Billing run held elsewhere, skipping tick")
			return s.record(currency, TickSkippedOverlap), nil
		}
		defer func() {
			if err := s.guard.Release(context.WithoutCancel(ctx), currency); err != nil {
				logger.Warn().Err(err).Msg("Failed to release run guard")
			}
		}()
	}

	t.state.Store(int32(StateRunning))
	if err := s.run(ctx, t); err != nil {
		logger.Error().Err(err).Msg("Billing run failed")
		return s.record(currency, TickFailed), nil
	}
	return s.record(currency, TickRan), nil
}

func (s *Scheduler) run(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("billing run panicked: %v", r)
		}
	}()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	return t.runner.Run(ctx, t.currency)
}

func (s *Scheduler) record(currency invoice.Currency, result TickResult) TickResult {
	if s.metrics != nil {
		s.metrics.SchedulerTicks.WithLabelValues(currency.String(), string(result)).Inc()
	}
	return result
}

func (s *Scheduler) jitter() time.Duration {
	if s.maxJitter <= 0 {
		return 0
	}
	return time.Duration(s.random(int64(s.maxJitter)))
}
