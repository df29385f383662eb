package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walletflow/internal/core"
	"walletflow/internal/engine"
	"walletflow/internal/rates"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [item]",
	Short: "List transactions newest first, optionally only those touching an item",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		itemID := ""
		if len(args) == 1 {
			item, err := app.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			itemID = item.ID
		}

		var (
			txs   []core.WalletTransaction
			names = map[string]string{}
			cur   = map[string]string{}
			tbl   *rates.Table
		)
		if err := app.query(ctx, func(v engine.View) {
			txs, tbl = v.History(itemID), v.Rates()
			for _, it := range append(v.Accounts(), v.Categories()...) {
				names[it.ID], cur[it.ID] = it.Name, it.Currency
			}
		}); err != nil {
			return err
		}
		if historyLimit > 0 && len(txs) > historyLimit {
			txs = txs[:historyLimit]
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tFROM\tTO\tAMOUNT\tCREDITED\tID\tCOMMENT")
		for _, tx := range txs {
			credited := tx.Converted()
			credit := core.FormatAmount(credited)
			if c, ok := cur[tx.DestinationID]; ok {
				credit = tbl.Display(credited, c)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				tx.Date.Format(transactionDateFormat),
				nameOr(names, tx.SourceID), nameOr(names, tx.DestinationID),
				tbl.Display(tx.Amount, tx.Currency), credit, tx.ID, tx.Commentary)
		}
		return w.Flush()
	},
}

// nameOr falls back to a marker for items deleted with item-only mode.
func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "(deleted)"
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most this many transactions.")
}
