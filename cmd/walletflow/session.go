package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"walletflow/internal/backend"
	"walletflow/internal/cli"
	"walletflow/internal/config"
	"walletflow/internal/core"
	"walletflow/internal/drag"
	"walletflow/internal/engine"
	"walletflow/internal/log"
	"walletflow/internal/ports"
	"walletflow/internal/rates"
	"walletflow/internal/rates/provider"
)

const syncTimeout = 10 * time.Second

var errAmbiguous = errors.New("ambiguous item name")

// session owns the engine for the lifetime of one command. The engine runs on
// its own goroutine; commands talk to it through Call and Query.
type session struct {
	cfg       *config.Config
	logger    *log.Logger
	backend   *backend.BackendResult
	refresher *provider.Refresher
	engine    *engine.Engine
	proposals chan drag.TransferProposed
	presented []drag.Effect

	stop context.CancelFunc
	done chan error
}

func openSession(ctx context.Context) (*session, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		logger:    logger,
		backend:   res,
		refresher: cli.NewRefresher(cfg, res.Snapshots, logger),
		proposals: make(chan drag.TransferProposed, 1),
		done:      make(chan error, 1),
	}

	opts := []engine.Option{
		engine.WithRefresher(s.refresher),
		engine.WithDragConfig(cli.DragConfig(cfg)),
		engine.WithDisplay(cfg.DisplayCurrency, cli.Period(cfg)),
		engine.WithTransferProposer(s.propose),
		engine.WithPresenter(s.present),
	}
	if res.Analytics != nil {
		opts = append(opts, engine.WithAnalytics(res.Analytics))
	}
	if tbl := lastKnownRates(ctx, res.Snapshots, logger); tbl != nil {
		opts = append(opts, engine.WithRates(tbl))
	}
	s.engine = engine.New(res.Backend, logger, opts...)

	runCtx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go func() { s.done <- s.engine.Run(runCtx) }()

	if err := s.engine.Call(ctx, func(r engine.Reply) engine.Command { return engine.Load{Reply: r} }); err != nil {
		cerr := s.close(ctx)
		return nil, errors.Join(fmt.Errorf("load wallet: %w", err), cerr)
	}
	return s, nil
}

// lastKnownRates seeds the engine with the saved snapshot so that one-shot
// commands never hit the network.
func lastKnownRates(ctx context.Context, snapshots ports.SnapshotStore, logger *log.Logger) *rates.Table {
	snap, err := snapshots.LoadSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, rates.ErrNoSnapshot) {
			logger.Warn("Failed to load rates snapshot", log.FieldError, err)
		}
		return nil
	}
	tbl, err := snap.Table()
	if err != nil {
		logger.Warn("Discarding invalid rates snapshot", log.FieldError, err)
		return nil
	}
	return tbl
}

// propose runs on the engine owner and must not block.
func (s *session) propose(p drag.TransferProposed) {
	select {
	case s.proposals <- p:
	default:
		s.logger.Warn("Dropping transfer proposal, previous one not consumed")
	}
}

// present runs on the engine owner; the slice is only read through Query.
func (s *session) present(eff drag.Effect) {
	s.presented = append(s.presented, eff)
}

func (s *session) call(ctx context.Context, build func(engine.Reply) engine.Command) error {
	return s.engine.Call(ctx, build)
}

func (s *session) query(ctx context.Context, fn func(engine.View)) error {
	return s.engine.Query(ctx, fn)
}

// resolve finds an item by id or, case-insensitively, by name.
func (s *session) resolve(ctx context.Context, ref string) (core.WalletItem, error) {
	var (
		found   []core.WalletItem
		byID    core.WalletItem
		matchID bool
	)
	err := s.query(ctx, func(v engine.View) {
		if it, ok := v.Item(ref); ok {
			byID, matchID = it, true
			return
		}
		for _, it := range append(v.Accounts(), v.Categories()...) {
			if strings.EqualFold(it.Name, ref) {
				found = append(found, it)
			}
		}
	})
	switch {
	case err != nil:
		return core.WalletItem{}, err
	case matchID:
		return byID, nil
	case len(found) == 1:
		return found[0], nil
	case len(found) > 1:
		return core.WalletItem{}, fmt.Errorf("%w: %q matches %d items, use the id", errAmbiguous, ref, len(found))
	default:
		return core.WalletItem{}, fmt.Errorf("%w: %s", engine.ErrItemNotFound, ref)
	}
}

// close flushes queued writes, stops the engine and releases the backend.
func (s *session) close(ctx context.Context) error {
	var errs []error

	syncCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := s.engine.Sync(syncCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush writes: %w", err))
	}
	var failed int
	if err := s.engine.Query(syncCtx, func(v engine.View) { failed = v.WriteErrors() }); err == nil && failed > 0 {
		errs = append(errs, fmt.Errorf("%d write(s) failed to persist", failed))
	}

	s.stop()
	if err := <-s.done; err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	s.engine.Stop()

	if err := s.backend.Cleanup(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
