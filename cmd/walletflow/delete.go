package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walletflow/internal/engine"
)

var deleteMode string

var deleteCmd = &cobra.Command{
	Use:   "delete <item>",
	Short: "Delete an account or expense category",
	Long: "Delete an account or expense category. --mode is required:\n" +
		"  item-only          keep the item's transactions and balances elsewhere\n" +
		"  with-transactions  revert and delete every transaction touching the item",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := engine.ParseDeleteMode(deleteMode)
		if err != nil {
			return err
		}
		item, err := app.resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := app.call(cmd.Context(), func(r engine.Reply) engine.Command {
			return engine.DeleteItem{ID: item.ID, Mode: mode, Reply: r}
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q (%s)\n", item.Name, mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().StringVar(&deleteMode, "mode", "", "item-only or with-transactions.")
	_ = deleteCmd.MarkFlagRequired("mode")
}
