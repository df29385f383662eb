package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"walletflow/internal/core"
	"walletflow/internal/log"
	"walletflow/internal/ports"
	"walletflow/internal/rates"
)

var (
	// ErrThrottled is returned when a refresh is requested too soon after the
	// previous one. The current table stays in place.
	ErrThrottled = errors.New("rates refresh throttled")
	// ErrNoRates means the network failed and no snapshot exists yet.
	ErrNoRates = errors.New("no rates available")
)

type Origin string

const (
	OriginNetwork  Origin = "network"
	OriginSnapshot Origin = "snapshot"
)

// Result is the outcome of one refresh. When Origin is OriginSnapshot, Err
// holds the network failure that caused the fallback.
type Result struct {
	Table     *rates.Table
	Origin    Origin
	FetchedAt time.Time
	Err       error
}

// RefresherConfig holds configuration for the refresher
type RefresherConfig struct {
	// Base is the reference currency of the fetched star topology
	Base string

	// Interval is how often the background loop refreshes (default: 1h)
	Interval time.Duration

	// MinGap is the minimum time between two network refreshes (default: 1m)
	MinGap time.Duration
}

// DefaultRefresherConfig returns sensible defaults
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Base:     "USD",
		Interval: time.Hour,
		MinGap:   time.Minute,
	}
}

// Refresher fetches rates, saves good results as the snapshot and falls back
// to the snapshot on failure.
type Refresher struct {
	source    ports.RateSource
	snapshots ports.SnapshotStore
	limiter   *rate.Limiter
	config    RefresherConfig
	logger    *log.Logger
	now       func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefresher creates a refresher. source may be nil, in which case only the
// snapshot is served.
func NewRefresher(source ports.RateSource, snapshots ports.SnapshotStore, config RefresherConfig, logger *log.Logger) *Refresher {
	gap := config.MinGap
	if gap <= 0 {
		gap = time.Minute
	}
	return &Refresher{
		source:    source,
		snapshots: snapshots,
		limiter:   rate.NewLimiter(rate.Every(gap), 1),
		config:    config,
		logger:    logger.WithComponent(log.ComponentRates),
		now:       time.Now,
	}
}

// Refresh produces a new table. It never returns a partially merged table:
// either the network result, the snapshot, or an error.
func (r *Refresher) Refresh(ctx context.Context) (Result, error) {
	if r.source == nil {
		return r.fromSnapshot(ctx, errors.New("no rate source configured"))
	}
	if !r.limiter.Allow() {
		return Result{}, ErrThrottled
	}

	tbl, err := r.fetch(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "Rates refresh failed, falling back to snapshot",
			log.FieldOperation, log.OpRefresh,
			log.FieldError, err)
		return r.fromSnapshot(ctx, err)
	}

	at := r.now()
	if r.snapshots != nil {
		if err := r.snapshots.SaveSnapshot(ctx, rates.SnapshotOf(tbl, at)); err != nil {
			r.logger.ErrorContext(ctx, "Failed to save rates snapshot", log.FieldError, err)
		}
	}
	r.logger.InfoContext(ctx, "Rates refreshed",
		log.FieldBaseCurrency, tbl.Base(),
		log.FieldCount, len(tbl.Rates()))
	return Result{Table: tbl, Origin: OriginNetwork, FetchedAt: at}, nil
}

func (r *Refresher) fetch(ctx context.Context) (*rates.Table, error) {
	currencies, err := r.source.FetchCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(currencies))
	hasBase := false
	for _, c := range currencies {
		if c.Code == r.config.Base {
			hasBase = true
			continue
		}
		targets = append(targets, c.Code)
	}
	if !hasBase {
		currencies = append(currencies, core.Currency{Code: r.config.Base})
	}
	list, err := r.source.FetchRates(ctx, r.config.Base, targets)
	if err != nil {
		return nil, err
	}
	return rates.NewTable(r.config.Base, currencies, list)
}

func (r *Refresher) fromSnapshot(ctx context.Context, cause error) (Result, error) {
	if r.snapshots == nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoRates, cause)
	}
	snap, err := r.snapshots.LoadSnapshot(ctx)
	if errors.Is(err, rates.ErrNoSnapshot) {
		return Result{}, fmt.Errorf("%w: %v", ErrNoRates, cause)
	}
	if err != nil {
		return Result{}, fmt.Errorf("load snapshot: %w", err)
	}
	tbl, err := snap.Table()
	if err != nil {
		return Result{}, fmt.Errorf("snapshot table: %w", err)
	}
	return Result{Table: tbl, Origin: OriginSnapshot, FetchedAt: snap.FetchedAt, Err: cause}, nil
}

// Start begins the periodic refresh loop, handing every result to deliver.
// Returns an error if already running.
func (r *Refresher) Start(ctx context.Context, deliver func(Result, error)) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("rates refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx, deliver)

	r.logger.InfoContext(ctx, "Rates refresher started", "interval", r.config.Interval)
	return nil
}

// Stop gracefully stops the loop and waits for completion.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	// Signal stop
	close(r.stopCh)

	// Wait for completion or context cancellation
	select {
	case <-r.doneCh:
		r.logger.InfoContext(ctx, "Rates refresher stopped gracefully")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Rates refresher stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	return nil
}

// IsRunning returns whether the loop is currently running
func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) runLoop(ctx context.Context, deliver func(Result, error)) {
	defer close(r.doneCh)

	interval := r.config.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Refresh immediately on startup
	deliver(r.Refresh(ctx))

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := r.Refresh(ctx)
			if errors.Is(err, ErrThrottled) {
				continue
			}
			deliver(res, err)
		}
	}
}
