// Package cli provides common CLI initialization utilities shared by
// cmd/walletflow and cmd/analytics-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"walletflow/internal/backend"
	"walletflow/internal/config"
	"walletflow/internal/drag"
	"walletflow/internal/log"
	"walletflow/internal/ports"
	"walletflow/internal/rates/provider"
	"walletflow/internal/spending"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. Logs go to stderr so command output stays clean.
func SetupLogger(level string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend creates the persistence backend and its optional collaborators.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", backendCfg.Type, err)
	}
	return res, nil
}

// NewRefresher builds the rate refresher. Without RATES_URL only the saved
// snapshot is served.
func NewRefresher(cfg *config.Config, snapshots ports.SnapshotStore, logger *log.Logger) *provider.Refresher {
	var source ports.RateSource
	if cfg.RatesURL != "" {
		source = provider.NewHTTPSource(cfg.RatesURL, cfg.RatesMaxRetries, logger)
	}
	rc := provider.DefaultRefresherConfig()
	rc.Base = cfg.RatesBaseCurrency
	if cfg.RatesRefreshInterval > 0 {
		rc.Interval = cfg.RatesRefreshInterval
	}
	return provider.NewRefresher(source, snapshots, rc, logger)
}

// DragConfig maps the gesture settings onto the drag machine config.
func DragConfig(cfg *config.Config) drag.Config {
	dc := drag.DefaultConfig()
	if cfg.LongPressThreshold > 0 {
		dc.LongPress = cfg.LongPressThreshold
	}
	if cfg.AutoScrollDelay > 0 {
		dc.ScrollDelay = cfg.AutoScrollDelay
	}
	if cfg.AutoScrollEdgeMargin > 0 {
		dc.EdgeMargin = cfg.AutoScrollEdgeMargin
	}
	return dc
}

// Period returns the configured reporting period.
func Period(cfg *config.Config) spending.Period {
	return spending.Period(cfg.SpendingPeriod)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
