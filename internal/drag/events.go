package drag

import (
	"time"

	"walletflow/internal/core"
)

// Event is a gesture, geometry or lifecycle input.
type Event interface {
	isEvent()
}

type Started struct {
	ItemID   string
	Location Point
	Offset   Point
	At       time.Time
}

type Moved struct {
	Location Point
}

type LongPressElapsed struct {
	Seq uint64
}

type Released struct {
	At time.Time
}

// FrameChanged reports the on-screen rectangle of an item. Removed drops it.
type FrameChanged struct {
	ItemID  string
	Frame   Rect
	Removed bool
}

// StripFrameChanged reports the scrollable accounts strip and how many
// pages it holds.
type StripFrameChanged struct {
	Frame     Rect
	PageCount int
}

type AutoScrollFired struct {
	Direction int
}

type Backgrounded struct{}

type Foregrounded struct{}

func (Started) isEvent()           {}
func (Moved) isEvent()             {}
func (LongPressElapsed) isEvent()  {}
func (Released) isEvent()          {}
func (FrameChanged) isEvent()      {}
func (StripFrameChanged) isEvent() {}
func (AutoScrollFired) isEvent()   {}
func (Backgrounded) isEvent()      {}
func (Foregrounded) isEvent()      {}

// Effect is an instruction for the owner of the state machine.
type Effect interface {
	isEffect()
}

// ScheduleLongPress asks for LongPressElapsed{Seq} after the delay.
type ScheduleLongPress struct {
	Seq   uint64
	After time.Duration
}

// ReorderRequested asks the ledger to move DraggedID next to TargetID.
type ReorderRequested struct {
	Kind        core.ItemKind
	DraggedID   string
	TargetID    string
	PlaceBefore bool
}

// TransferProposed is handed to the transaction-creation collaborator, which
// collects the amount from the user.
type TransferProposed struct {
	Source       core.WalletItem
	Destination  core.WalletItem
	Rate         float64
	RateFallback bool
}

// HighlightChanged carries the highlighted drop target, "" for none.
type HighlightChanged struct {
	ItemID string
}

type ModeChanged struct {
	Mode Mode
}

// ScheduleAutoScroll replaces any pending auto-scroll.
type ScheduleAutoScroll struct {
	Direction int
	After     time.Duration
}

type CancelAutoScroll struct{}

type PageChanged struct {
	Page int
}

// Completed is emitted when a gesture ends with a release.
type Completed struct {
	ItemID   string
	Mode     Mode
	Proposed bool
	Duration time.Duration
}

func (ScheduleLongPress) isEffect()  {}
func (ReorderRequested) isEffect()   {}
func (TransferProposed) isEffect()   {}
func (HighlightChanged) isEffect()   {}
func (ModeChanged) isEffect()        {}
func (ScheduleAutoScroll) isEffect() {}
func (CancelAutoScroll) isEffect()   {}
func (PageChanged) isEffect()        {}
func (Completed) isEffect()          {}
