package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"walletflow/internal/cli"
	"walletflow/internal/log"
)

const shutdownTimeout = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep rates fresh in the background until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := app.logger.WithComponent(log.ComponentApp)
		ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
			if err := app.refresher.Stop(ctx); err != nil {
				logger.Warn("Rates refresher did not stop cleanly", log.FieldError, err)
			}
		})

		if err := app.refresher.Start(ctx, app.engine.DeliverRates); err != nil {
			return err
		}
		logger.Info("Watching rates", "interval", app.cfg.RatesRefreshInterval)

		cli.WaitForShutdown(ctx, done)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
