// Package engine owns the wallet state. Every mutation runs on one logical
// owner fed by a command queue; persistence, rate refreshes and analytics run
// as background tasks that report back through the same queue.
package engine

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"walletflow/internal/drag"
	"walletflow/internal/ledger"
	"walletflow/internal/log"
	"walletflow/internal/ports"
	"walletflow/internal/rates"
	"walletflow/internal/rates/provider"
	"walletflow/internal/scheduler"
	"walletflow/internal/spending"
)

const autoScrollSlot = "auto-scroll"

// RateRefresher produces a fresh rate table, falling back to a snapshot.
type RateRefresher interface {
	Refresh(ctx context.Context) (provider.Result, error)
}

// TransferProposer is the transaction-creation collaborator. It receives the
// proposal of a completed drag and later submits a CreateTransaction.
type TransferProposer func(drag.TransferProposed)

// Presenter receives drag effects relevant to rendering: highlight, mode,
// page and reorder updates.
type Presenter func(drag.Effect)

// Engine is the single owner of the ledger, the rate table and the drag
// session.
type Engine struct {
	sched       *scheduler.Scheduler[Command]
	store       *ledger.Store
	proc        *ledger.Processor
	table       *rates.Table
	ratesGen    uint64
	gesture     drag.State
	dragConfig  drag.Config
	persistence ports.Persistence
	refresher   RateRefresher
	analytics   ports.Analytics
	propose     TransferProposer
	present     Presenter
	reports     *gocache.Cache
	now         func() time.Time
	month       time.Time
	schedOpts   []scheduler.Option[Command]

	currency string
	period   spending.Period

	writes       []write
	writing      bool
	writeWaiters []chan struct{}
	writeErrors  int

	logger     *log.Logger
	structured *log.StructuredLogger
}

type Option func(*Engine)

func WithRefresher(r RateRefresher) Option {
	return func(e *Engine) { e.refresher = r }
}

func WithAnalytics(a ports.Analytics) Option {
	return func(e *Engine) { e.analytics = a }
}

func WithTransferProposer(fn TransferProposer) Option {
	return func(e *Engine) { e.propose = fn }
}

func WithPresenter(fn Presenter) Option {
	return func(e *Engine) { e.present = fn }
}

func WithDragConfig(c drag.Config) Option {
	return func(e *Engine) { e.dragConfig = c }
}

// WithDisplay sets the default report currency and period.
func WithDisplay(currency string, period spending.Period) Option {
	return func(e *Engine) {
		e.currency = currency
		e.period = period
	}
}

func WithRates(t *rates.Table) Option {
	return func(e *Engine) { e.table = t }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSchedulerOptions passes options to the underlying scheduler, e.g. a
// manual timer source in tests.
func WithSchedulerOptions(opts ...scheduler.Option[Command]) Option {
	return func(e *Engine) { e.schedOpts = append(e.schedOpts, opts...) }
}

// New wires the engine. persistence is required; everything else is optional.
func New(persistence ports.Persistence, logger *log.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       ledger.NewStore(),
		table:       rates.Empty(),
		dragConfig:  drag.DefaultConfig(),
		persistence: persistence,
		reports:     gocache.New(5*time.Minute, 10*time.Minute),
		now:         time.Now,
		currency:    "USD",
		period:      spending.Month,
		logger:      logger.WithComponent(log.ComponentEngine),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.proc = ledger.NewProcessor(e.store)
	e.structured = log.NewStructuredLogger(e.logger)
	if e.analytics == nil {
		e.analytics = NewLogAnalytics(logger)
	}
	e.month = monthOf(e.now())
	e.proc.SetPeriod(spending.MonthWindow{}.Bounds(e.now()))
	e.sched = scheduler.New(e.handle, logger, e.schedOpts...)
	return e
}

// Submit queues commands. Safe from any goroutine.
func (e *Engine) Submit(cmds ...Command) {
	e.sched.Submit(cmds...)
}

// Run drives the owner loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.sched.Run(ctx)
}

// Drain handles queued commands on the calling goroutine until the queue is
// empty and no task is in flight. Used instead of Run in tests and one-shot
// commands.
func (e *Engine) Drain(ctx context.Context) error {
	return e.sched.Drain(ctx)
}

// Stop rejects further commands and waits for running tasks. Queued writes
// that have not started are lost; call Sync first.
func (e *Engine) Stop() {
	e.sched.Stop()
}

// Call submits the command built around a reply and waits for the outcome.
// It needs Run to be active on another goroutine.
func (e *Engine) Call(ctx context.Context, build func(Reply) Command) error {
	done := make(chan error, 1)
	e.Submit(build(func(err error) { done <- err }))
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query runs fn on the owner loop and waits for it. It needs Run to be
// active on another goroutine.
func (e *Engine) Query(ctx context.Context, fn func(View)) error {
	done := make(chan struct{})
	e.Submit(Inspect{Fn: func(v View) {
		defer close(done)
		fn(v)
	}})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync waits until every write queued so far has reached persistence.
func (e *Engine) Sync(ctx context.Context) error {
	done := make(chan struct{})
	e.Submit(awaitWrites{done: done})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeliverRates hands a refresher result to the owner loop. It matches the
// callback of provider.Refresher.Start.
func (e *Engine) DeliverRates(res provider.Result, err error) {
	e.Submit(ratesRefreshed{result: res, err: err})
}

func monthOf(t time.Time) time.Time {
	from, _ := spending.MonthWindow{}.Bounds(t)
	return from
}
