package engine

import (
	"context"
	"fmt"

	"walletflow/internal/core"
	"walletflow/internal/drag"
	"walletflow/internal/log"
)

func (e *Engine) dragEnv() drag.Env {
	return drag.Env{Items: e.store, Rates: e.table, Config: e.dragConfig}
}

func (e *Engine) gestureEvent(ctx context.Context, ev drag.Event) {
	next, effects := drag.Transition(e.gesture, ev, e.dragEnv())
	e.gesture = next
	for _, eff := range effects {
		e.runEffect(ctx, eff)
	}
}

func (e *Engine) runEffect(ctx context.Context, eff drag.Effect) {
	switch eff := eff.(type) {
	case drag.ScheduleLongPress:
		e.sched.After(eff.After, Gesture{Event: drag.LongPressElapsed{Seq: eff.Seq}})
	case drag.ScheduleAutoScroll:
		e.sched.Slot(autoScrollSlot, eff.After, Gesture{Event: drag.AutoScrollFired{Direction: eff.Direction}})
	case drag.CancelAutoScroll:
		e.sched.Cancel(autoScrollSlot)
	case drag.ReorderRequested:
		// reordering is previewed live while the pointer moves
		e.reorder(ctx, eff.Kind, eff.DraggedID, eff.TargetID, eff.PlaceBefore)
		e.show(eff)
	case drag.TransferProposed:
		if eff.RateFallback {
			e.logger.WarnContext(ctx, "Proposing transfer with fallback rate",
				log.FieldSourceID, eff.Source.ID,
				log.FieldDestinationID, eff.Destination.ID,
				log.FieldFallback, true)
		}
		e.logger.DebugContext(ctx, "Transfer proposed",
			log.FieldSourceID, eff.Source.ID,
			log.FieldDestinationID, eff.Destination.ID,
			log.FieldRate, eff.Rate)
		if e.propose != nil {
			e.propose(eff)
		}
	case drag.Completed:
		e.track(core.NewEvent(core.EventDragCompleted, e.now(),
			"item_id", eff.ItemID,
			"mode", eff.Mode.String(),
			"proposed", fmt.Sprint(eff.Proposed),
			"duration_ms", fmt.Sprint(eff.Duration.Milliseconds())))
	default:
		e.show(eff)
	}
}

func (e *Engine) show(eff drag.Effect) {
	if e.present != nil {
		e.present(eff)
	}
}
