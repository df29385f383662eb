package drag

import (
	"maps"

	"walletflow/internal/core"
)

// Transition is the single transition function of the drag state machine.
// The input state is never modified; the returned state shares nothing
// mutable with it.
func Transition(s State, ev Event, env Env) (State, []Effect) {
	next := s
	if s.Session != nil {
		sess := *s.Session
		next.Session = &sess
	}

	switch ev := ev.(type) {
	case Started:
		return next.start(ev, env)
	case Moved:
		return next.move(ev, env)
	case LongPressElapsed:
		return next.longPress(ev)
	case Released:
		return next.release(ev, env)
	case FrameChanged:
		next.Frames = maps.Clone(s.Frames)
		if next.Frames == nil {
			next.Frames = make(map[string]Rect)
		}
		if ev.Removed {
			delete(next.Frames, ev.ItemID)
		} else {
			next.Frames[ev.ItemID] = ev.Frame
		}
		return next, nil
	case StripFrameChanged:
		next.Strip = ev.Frame
		next.PageCount = ev.PageCount
		if next.Page >= next.PageCount && next.PageCount > 0 {
			next.Page = next.PageCount - 1
			return next, []Effect{PageChanged{Page: next.Page}}
		}
		return next, nil
	case AutoScrollFired:
		return next.scroll(ev, env)
	case Backgrounded, Foregrounded:
		return next.reset()
	default:
		return next, nil
	}
}

func (s State) start(ev Started, env Env) (State, []Effect) {
	s, effects := s.reset()
	if _, ok := env.item(ev.ItemID); !ok {
		return s, effects
	}
	s.lastSeq++
	s.Session = &Session{
		ItemID:    ev.ItemID,
		Offset:    ev.Offset,
		Origin:    ev.Location,
		Location:  ev.Location,
		StartedAt: ev.At,
		Mode:      Normal,
		Pressing:  true,
		Seq:       s.lastSeq,
	}
	return s, append(effects, ScheduleLongPress{Seq: s.lastSeq, After: env.Config.LongPress})
}

func (s State) move(ev Moved, env Env) (State, []Effect) {
	sess := s.Session
	if sess == nil {
		return s, nil
	}
	sess.Location = ev.Location
	if sess.Pressing && sess.Mode == Normal && ev.Location.Distance(sess.Origin) > env.Config.MoveTolerance {
		sess.Pressing = false
	}

	var effects []Effect
	prevCandidate, prevBefore := sess.Candidate, sess.PlaceBefore
	sess.Candidate, sess.PlaceBefore = s.resolve(sess, env)

	if sess.Candidate != prevCandidate {
		effects = append(effects, HighlightChanged{ItemID: sess.Candidate})
	}
	if sess.Mode == Reordering && sess.Candidate != "" &&
		(sess.Candidate != prevCandidate || sess.PlaceBefore != prevBefore) {
		dragged, _ := env.item(sess.ItemID)
		effects = append(effects, ReorderRequested{
			Kind:        dragged.Kind,
			DraggedID:   sess.ItemID,
			TargetID:    sess.Candidate,
			PlaceBefore: sess.PlaceBefore,
		})
	}

	switch dir := s.Strip.edge(ev.Location, env.Config.EdgeMargin); {
	case dir != 0:
		s.ScrollPending = dir
		effects = append(effects, ScheduleAutoScroll{Direction: dir, After: env.Config.ScrollDelay})
	case s.ScrollPending != 0:
		s.ScrollPending = 0
		effects = append(effects, CancelAutoScroll{})
	}
	return s, effects
}

// resolve finds the accepted drop candidate under the pointer. Missing items
// resolve to no candidate.
func (s State) resolve(sess *Session, env Env) (string, bool) {
	id := s.hit(sess.Location, sess.ItemID)
	if id == "" {
		return "", false
	}
	dragged, ok := env.item(sess.ItemID)
	if !ok {
		return "", false
	}
	candidate, ok := env.item(id)
	if !ok {
		return "", false
	}
	switch sess.Mode {
	case Reordering:
		if candidate.Kind != dragged.Kind || candidate.ID == dragged.ID {
			return "", false
		}
		return id, sess.Location.X < s.Frames[id].Center().X
	default:
		if !core.CanBePerformed(dragged, candidate) {
			return "", false
		}
		return id, false
	}
}

func (s State) longPress(ev LongPressElapsed) (State, []Effect) {
	sess := s.Session
	if sess == nil || sess.Seq != ev.Seq || !sess.Pressing || sess.Mode != Normal {
		return s, nil
	}
	sess.Mode = Reordering
	effects := []Effect{ModeChanged{Mode: Reordering}}
	if sess.Candidate != "" {
		sess.Candidate = ""
		effects = append(effects, HighlightChanged{})
	}
	return s, effects
}

func (s State) release(ev Released, env Env) (State, []Effect) {
	sess := s.Session
	if sess == nil {
		return s, nil
	}
	var effects []Effect
	proposed := false
	if sess.Mode == Normal && sess.Candidate != "" {
		src, okSrc := env.item(sess.ItemID)
		dst, okDst := env.item(sess.Candidate)
		if okSrc && okDst && core.CanBePerformed(src, dst) {
			rate, fallback := env.rate(src.Currency, dst.Currency)
			effects = append(effects, TransferProposed{
				Source:       src,
				Destination:  dst,
				Rate:         rate,
				RateFallback: fallback,
			})
			proposed = true
		}
	}
	completed := Completed{ItemID: sess.ItemID, Mode: sess.Mode, Proposed: proposed}
	if !ev.At.IsZero() && !sess.StartedAt.IsZero() {
		completed.Duration = ev.At.Sub(sess.StartedAt)
	}
	s, cleanup := s.reset()
	effects = append(effects, cleanup...)
	return s, append(effects, completed)
}

func (s State) scroll(ev AutoScrollFired, env Env) (State, []Effect) {
	if s.Session == nil || s.ScrollPending == 0 || ev.Direction != s.ScrollPending {
		return s, nil
	}
	s.ScrollPending = 0
	page := s.Page + ev.Direction
	if page < 0 || (s.PageCount > 0 && page >= s.PageCount) {
		return s, nil
	}
	s.Page = page
	effects := []Effect{PageChanged{Page: page}}
	// keep scrolling while the pointer rests in the edge zone
	if dir := s.Strip.edge(s.Session.Location, env.Config.EdgeMargin); dir == ev.Direction {
		s.ScrollPending = dir
		effects = append(effects, ScheduleAutoScroll{Direction: dir, After: env.Config.ScrollDelay})
	}
	return s, effects
}

// reset forces Idle and drops any pending auto-scroll.
func (s State) reset() (State, []Effect) {
	var effects []Effect
	if s.ScrollPending != 0 {
		s.ScrollPending = 0
		effects = append(effects, CancelAutoScroll{})
	}
	if s.Session != nil {
		if s.Session.Candidate != "" {
			effects = append(effects, HighlightChanged{})
		}
		s.Session = nil
	}
	return s, effects
}
