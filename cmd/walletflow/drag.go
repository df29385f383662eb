package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"walletflow/internal/core"
	"walletflow/internal/drag"
	"walletflow/internal/engine"
)

const tileSize = 100

var (
	dragAmount  string
	dragComment string
	dragVerbose bool
)

var errNoProposal = errors.New("drop did not propose a transfer")

// dragCmd replays a press, move and release over a synthetic layout: accounts
// on one strip, expense categories on the row below. The proposal the drop
// produces becomes the transfer.
var dragCmd = &cobra.Command{
	Use:   "drag <source> <destination>",
	Short: "Drop one item onto another and record the proposed transfer",
	Args:  cobra.ExactArgs(2),
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
		amount, err := core.ParseAmount(dragAmount)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}

		var accounts, categories []core.WalletItem
		if err := app.query(ctx, func(v engine.View) {
			accounts, categories = v.Accounts(), v.Categories()
			app.presented = nil
		}); err != nil {
			return err
		}
		frames := layout(accounts, categories)

		now := time.Now()
		app.engine.Submit(
			engine.Gesture{Event: drag.Started{ItemID: source.ID, Location: frames[source.ID].Center(), At: now}},
			engine.Gesture{Event: drag.Moved{Location: frames[destination.ID].Center()}},
			engine.Gesture{Event: drag.Released{At: now}},
		)

		var presented []drag.Effect
		if err := app.query(ctx, func(engine.View) { presented = app.presented }); err != nil {
			return err
		}
		if dragVerbose {
			for _, eff := range presented {
				fmt.Fprintf(cmd.ErrOrStderr(), "%T %+v\n", eff, eff)
			}
		}

		var p drag.TransferProposed
		select {
		case p = <-app.proposals:
		default:
			return fmt.Errorf("%w from %q to %q", errNoProposal, source.Name, destination.Name)
		}
		if p.RateFallback {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: no rate for %s to %s, using 1.0\n", p.Source.Currency, p.Destination.Currency)
		}

		tx := core.WalletTransaction{
			ID:            core.NewID(),
			Amount:        amount,
			Rate:          p.Rate,
			Commentary:    dragComment,
			SourceID:      p.Source.ID,
			DestinationID: p.Destination.ID,
		}
		if err := app.call(ctx, func(r engine.Reply) engine.Command {
			return engine.CreateTransaction{Transaction: tx, Reply: r}
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s from %q to %q at %g (%s)\n",
			core.FormatAmount(amount), p.Source.Name, p.Destination.Name, p.Rate, tx.ID)
		return nil
	},
}

// layout reports item frames to the engine and returns them by id.
func layout(accounts, categories []core.WalletItem) map[string]drag.Rect {
	frames := make(map[string]drag.Rect, len(accounts)+len(categories))
	var events []engine.Command
	for row, items := range [][]core.WalletItem{accounts, categories} {
		for i, it := range items {
			r := drag.Rect{X: float64(i * tileSize), Y: float64(row * 2 * tileSize), Width: tileSize, Height: tileSize}
			frames[it.ID] = r
			events = append(events, engine.Gesture{Event: drag.FrameChanged{ItemID: it.ID, Frame: r}})
		}
	}
	events = append(events, engine.Gesture{Event: drag.StripFrameChanged{
		Frame:     drag.Rect{Width: float64(max(len(accounts), 1) * tileSize), Height: tileSize},
		PageCount: 1,
	}})
	app.engine.Submit(events...)
	return frames
}

func init() {
	rootCmd.AddCommand(dragCmd)

	dragCmd.Flags().StringVarP(&dragAmount, "amount", "a", "", "Amount in the source currency.")
	dragCmd.Flags().StringVarP(&dragComment, "comment", "m", "", "Free-form commentary.")
	dragCmd.Flags().BoolVarP(&dragVerbose, "verbose", "v", false, "Print the drag effects to stderr.")
	_ = dragCmd.MarkFlagRequired("amount")
}
