package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walletflow/internal/engine"
)

var placeAfter bool

var moveCmd = &cobra.Command{
	Use:   "move <item> <target>",
	Short: "Move an item next to another item of the same kind",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dragged, err := app.resolve(ctx, args[0])
		if err != nil {
			return err
		}
		target, err := app.resolve(ctx, args[1])
		if err != nil {
			return err
		}
		if dragged.Kind != target.Kind {
			return fmt.Errorf("cannot move %s next to %s", dragged.Kind, target.Kind)
		}
		if err := app.call(ctx, func(r engine.Reply) engine.Command {
			return engine.Reorder{
				Kind:        dragged.Kind,
				DraggedID:   dragged.ID,
				TargetID:    target.ID,
				PlaceBefore: !placeAfter,
				Reply:       r,
			}
		}); err != nil {
			return err
		}
		where := "before"
		if placeAfter {
			where = "after"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %q %s %q\n", dragged.Name, where, target.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)

	moveCmd.Flags().BoolVar(&placeAfter, "after", false, "Place the item after the target instead of before.")
}
