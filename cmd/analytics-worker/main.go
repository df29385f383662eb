// Command analytics-worker consumes the analytics events the wallet publishes
// to AMQP, logs each one and periodically logs per-event counters.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"walletflow/internal/amqp"
	"walletflow/internal/cli"
	"walletflow/internal/log"
	"walletflow/internal/worker"
)

const (
	summaryInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting analytics-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the analytics worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	analytics := worker.NewAnalyticsWorker(logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		analytics.LogSummary(context.Background())
	})

	go analytics.RunSummaries(ctx, summaryInterval)

	go func() {
		if err := amqpClient.ConsumeEvents(ctx, analytics.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("analytics-worker stopped")
}
