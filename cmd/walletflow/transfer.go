package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"walletflow/internal/core"
	"walletflow/internal/engine"
)

var (
	transferRate       float64
	transferDate       string
	transferCommentary string
)

const transactionDateFormat = "2006-01-02"

var transferCmd = &cobra.Command{
	Use:   "transfer <source> <destination> <amount>",
	Short: "Move money from an account to another account or an expense category",
	Long: "Move money from an account to another account or an expense category.\n" +
		"The amount is in the source currency. Without --rate the live rate is used.",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		source, err := app.resolve(ctx, args[0])
		if err != nil {
			return err
		}
		destination, err := app.resolve(ctx, args[1])
		if err != nil {
			return err
		}
		amount, err := core.ParseAmount(args[2])
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		tx := core.WalletTransaction{
			ID:            core.NewID(),
			Amount:        amount,
			Rate:          transferRate,
			Commentary:    transferCommentary,
			SourceID:      source.ID,
			DestinationID: destination.ID,
		}
		if transferDate != "" {
			d, err := time.ParseInLocation(transactionDateFormat, transferDate, time.Local)
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}
			tx.Date = d
		}
		if err := app.call(ctx, func(r engine.Reply) engine.Command {
			return engine.CreateTransaction{Transaction: tx, Reply: r}
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s from %q to %q (%s)\n",
			core.FormatAmount(amount), source.Name, destination.Name, tx.ID)
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <transaction-id>",
	Short: "Delete a transaction and revert its balance effects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.call(cmd.Context(), func(r engine.Reply) engine.Command {
			return engine.DeleteTransaction{ID: args[0], Reply: r}
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transferCmd, undoCmd)

	transferCmd.Flags().Float64Var(&transferRate, "rate", 0, "Conversion rate override (destination units per source unit).")
	transferCmd.Flags().StringVar(&transferDate, "date", "", "Transaction date (YYYY-MM-DD), defaults to now.")
	transferCmd.Flags().StringVarP(&transferCommentary, "comment", "m", "", "Free-form commentary.")
}
