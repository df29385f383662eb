// Package drag implements the drag-and-drop interaction state machine. It is
// a pure transition function: Transition takes the current State and an Event
// and returns the next State plus the Effects the owner must carry out
// (timers, reorders, transfer proposals). It never performs I/O.
package drag

import (
	"fmt"
	"sort"
	"time"

	"walletflow/internal/core"
)

type Mode int

const (
	Normal Mode = iota
	Reordering
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Reordering:
		return "reordering"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Session is the ephemeral state of one in-progress gesture.
type Session struct {
	ItemID      string
	Offset      Point
	Origin      Point
	Location    Point
	StartedAt   time.Time
	Candidate   string
	PlaceBefore bool
	Mode        Mode

	// Pressing is cleared when the pointer moves past the tolerance. A
	// long-press timer that fires after that is ignored.
	Pressing bool
	// Seq identifies the session so that timers from an earlier gesture
	// can never act on a later one.
	Seq uint64
}

// State is Idle when Session is nil.
type State struct {
	Session *Session

	Frames    map[string]Rect
	Strip     Rect
	Page      int
	PageCount int

	// ScrollPending is the direction of the pending auto-scroll, 0 if none.
	ScrollPending int

	lastSeq uint64
}

func (s State) Idle() bool {
	return s.Session == nil
}

// Config holds the gesture tuning knobs.
type Config struct {
	LongPress     time.Duration
	MoveTolerance float64
	EdgeMargin    float64
	ScrollDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		LongPress:     500 * time.Millisecond,
		MoveTolerance: 10,
		EdgeMargin:    40,
		ScrollDelay:   600 * time.Millisecond,
	}
}

// Items resolves wallet items by id.
type Items interface {
	Item(id string) (core.WalletItem, bool)
}

// Rates resolves the suggested conversion rate for a proposal.
type Rates interface {
	RateOrFallback(source, destination string) (float64, bool)
}

// Env carries the read-only collaborators a transition may consult.
type Env struct {
	Items  Items
	Rates  Rates
	Config Config
}

func (e Env) item(id string) (core.WalletItem, bool) {
	if e.Items == nil || id == "" {
		return core.WalletItem{}, false
	}
	return e.Items.Item(id)
}

func (e Env) rate(source, destination string) (float64, bool) {
	if source == destination {
		return 1, false
	}
	if e.Rates == nil {
		return 1, true
	}
	return e.Rates.RateOrFallback(source, destination)
}

// hit returns the id of the item whose frame contains p, skipping exclude.
// Ids are scanned in sorted order so overlapping frames resolve
// deterministically.
func (s State) hit(p Point, exclude string) string {
	ids := make([]string, 0, len(s.Frames))
	for id := range s.Frames {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if s.Frames[id].Contains(p) {
			return id
		}
	}
	return ""
}
