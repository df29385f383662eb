package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walletflow/internal/engine"
	"walletflow/internal/rates"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the current conversion rate table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var tbl *rates.Table
		if err := app.query(cmd.Context(), func(v engine.View) { tbl = v.Rates() }); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		rs := tbl.Rates()
		if len(rs) == 0 {
			fmt.Fprintln(out, "No rates loaded; run `walletflow rates refresh`.")
			return nil
		}
		fmt.Fprintf(out, "Base %s\n", tbl.Base())
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range rs {
			fmt.Fprintf(w, "%s\t%s\t%g\n", r.Source, r.Destination, r.Rate)
		}
		return w.Flush()
	},
}

var ratesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch fresh rates, falling back to the last saved snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := app.call(cmd.Context(), func(r engine.Reply) engine.Command {
			return engine.RefreshRates{Reply: r}
		}); err != nil {
			return err
		}
		var n int
		if err := app.query(cmd.Context(), func(v engine.View) { n = len(v.Rates().Rates()) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rates refreshed, %d pairs\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ratesCmd)
	ratesCmd.AddCommand(ratesRefreshCmd)
}
