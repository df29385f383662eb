package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walletflow/internal/core"
	"walletflow/internal/engine"
	"walletflow/internal/rates"
)

var (
	itemKind     string
	itemName     string
	itemCurrency string
	itemIcon     string
	itemBalance  float64
	itemBudget   string

	editKind     string
	editName     string
	editCurrency string
	editIcon     string
	editBudget   string
	clearBudget  bool
)

var itemsCmd = &cobra.Command{
	Use:     "items",
	Aliases: []string{"ls"},
	Short:   "List accounts and expense categories in display order",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			accounts, categories []core.WalletItem
			tbl                  *rates.Table
		)
		err := app.query(cmd.Context(), func(v engine.View) {
			accounts, categories, tbl = v.Accounts(), v.Categories(), v.Rates()
		})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		printItems(w, "Accounts", accounts, tbl)
		printItems(w, "Expense categories (this month)", categories, tbl)
		return w.Flush()
	},
}

func printItems(w io.Writer, title string, items []core.WalletItem, tbl *rates.Table) {
	fmt.Fprintf(w, "%s\n", title)
	if len(items) == 0 {
		fmt.Fprintf(w, "  (none)\n")
	}
	for _, it := range items {
		budget := ""
		if it.HasBudget() {
			budget = "budget " + tbl.Display(*it.Budget, it.Currency)
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\n", it.Order, it.Name, tbl.Display(it.Balance, it.Currency), budget, it.ID)
	}
}

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account or expense category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		item := core.WalletItem{
			Kind:     core.ItemKind(itemKind),
			Name:     strings.TrimSpace(itemName),
			Icon:     itemIcon,
			Currency: strings.ToUpper(itemCurrency),
			Balance:  itemBalance,
		}
		if itemBudget != "" {
			b, err := core.ParseAmount(itemBudget)
			if err != nil {
				return fmt.Errorf("budget: %w", err)
			}
			item.Budget = &b
		}
		if err := app.call(cmd.Context(), func(r engine.Reply) engine.Command {
			return engine.CreateItem{Item: item, Reply: r}
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q\n", item.Kind, item.Name)
		return nil
	},
}

var itemEditCmd = &cobra.Command{
	Use:   "edit <item>",
	Short: "Rename an item or change its kind, currency, icon or budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := app.resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("name") {
			item.Name = strings.TrimSpace(editName)
		}
		if flags.Changed("kind") {
			item.Kind = core.ItemKind(editKind)
		}
		if flags.Changed("currency") {
			item.Currency = strings.ToUpper(editCurrency)
		}
		if flags.Changed("icon") {
			item.Icon = editIcon
		}
		switch {
		case clearBudget:
			item.Budget = nil
		case editBudget != "":
			b, err := core.ParseAmount(editBudget)
			if err != nil {
				return fmt.Errorf("budget: %w", err)
			}
			item.Budget = &b
		}
		if err := app.call(cmd.Context(), func(r engine.Reply) engine.Command {
			return engine.UpdateItem{Item: item, Reply: r}
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", item.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.AddCommand(itemAddCmd, itemEditCmd)

	itemAddCmd.Flags().StringVar(&itemKind, "kind", string(core.Account), "Item kind: account or expense_category.")
	itemAddCmd.Flags().StringVar(&itemName, "name", "", "Display name.")
	itemAddCmd.Flags().StringVar(&itemCurrency, "currency", "USD", "Currency code.")
	itemAddCmd.Flags().StringVar(&itemIcon, "icon", "", "Icon name.")
	itemAddCmd.Flags().Float64Var(&itemBalance, "balance", 0, "Opening balance (accounts only).")
	itemAddCmd.Flags().StringVar(&itemBudget, "budget", "", "Monthly budget (expense categories only).")
	_ = itemAddCmd.MarkFlagRequired("name")

	itemEditCmd.Flags().StringVar(&editKind, "kind", "", "New item kind.")
	itemEditCmd.Flags().StringVar(&editName, "name", "", "New display name.")
	itemEditCmd.Flags().StringVar(&editCurrency, "currency", "", "New currency code.")
	itemEditCmd.Flags().StringVar(&editIcon, "icon", "", "New icon name.")
	itemEditCmd.Flags().StringVar(&editBudget, "budget", "", "New monthly budget.")
	itemEditCmd.Flags().BoolVar(&clearBudget, "clear-budget", false, "Remove the monthly budget.")
}
