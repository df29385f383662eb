package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walletflow/internal/engine"
	"walletflow/internal/spending"
)

var (
	reportPeriod   string
	reportCurrency string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show spending per expense category for the current week or month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rep, err := fetchReport(cmd.Context(), spending.Period(reportPeriod), strings.ToUpper(reportCurrency))
		if err != nil {
			return err
		}
		var display func(float64) string
		if err := app.query(cmd.Context(), func(v engine.View) {
			tbl := v.Rates()
			display = func(a float64) string { return tbl.Display(a, rep.Currency) }
		}); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Spending %s %s to %s\n", rep.Period,
			rep.From.Format(transactionDateFormat), rep.To.AddDate(0, 0, -1).Format(transactionDateFormat))
		if rep.NoData() {
			fmt.Fprintln(out, "No spending in this period.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tAMOUNT\tSHARE\tCOLOR\tARC\tBUDGET")
		for _, s := range rep.Sections {
			budget := ""
			if s.Budget != nil {
				budget = fmt.Sprintf("%.0f%% of %s", s.BudgetUsed*100, display(*s.Budget))
				if s.OverBudget {
					budget += " (over)"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%.0f-%.0f\t%s\n",
				s.Category.Name, display(s.Amount), s.Percent*100, s.Hex(), s.StartAngle, s.EndAngle, budget)
		}
		fmt.Fprintf(w, "TOTAL\t%s\t\t\t\t\n", display(rep.Total))
		if err := w.Flush(); err != nil {
			return err
		}
		if len(rep.FallbackCurrencies) > 0 {
			fmt.Fprintf(out, "Warning: no rates for %s, converted 1:1\n", strings.Join(rep.FallbackCurrencies, ", "))
		}
		return nil
	},
}

func fetchReport(ctx context.Context, period spending.Period, currency string) (spending.Report, error) {
	type result struct {
		rep spending.Report
		err error
	}
	done := make(chan result, 1)
	app.engine.Submit(engine.Report{
		Period:   period,
		Currency: currency,
		Reply:    func(rep spending.Report, err error) { done <- result{rep, err} },
	})
	select {
	case r := <-done:
		return r.rep, r.err
	case <-ctx.Done():
		return spending.Report{}, ctx.Err()
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportPeriod, "period", "p", "", "week or month (default from SPENDING_PERIOD).")
	reportCmd.Flags().StringVarP(&reportCurrency, "currency", "c", "", "Report currency (default from DISPLAY_CURRENCY).")
}
