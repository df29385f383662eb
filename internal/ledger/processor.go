package ledger

import (
	"errors"
	"fmt"
	"time"

	"walletflow/internal/core"
)

var (
	ErrMissingID           = errors.New("missing id")
	ErrAlreadyApplied      = errors.New("transaction already applied")
	ErrNotApplied          = errors.New("transaction not applied")
	ErrTransactionReverted = errors.New("transaction was reverted and cannot be applied again")
)

// Change describes how one endpoint's balance moved.
type Change struct {
	Item   core.WalletItem // snapshot after the change
	Before float64
	After  float64
}

// Result is the outcome of an apply or revert. A nil side means the item was
// missing and that side was skipped.
type Result struct {
	Transaction core.WalletTransaction
	Source      *Change
	Destination *Change
}

// Partial reports whether one of the endpoints was missing.
func (r Result) Partial() bool {
	return r.Source == nil || r.Destination == nil
}

// Updated returns the item snapshots that need persisting.
func (r Result) Updated() []core.WalletItem {
	var out []core.WalletItem
	if r.Source != nil {
		out = append(out, r.Source.Item)
	}
	if r.Destination != nil {
		out = append(out, r.Destination.Item)
	}
	return out
}

// Processor applies and reverts transactions against a Store.
type Processor struct {
	store *Store

	// period bounds the spending window expense categories reflect. Zero
	// bounds mean every transaction counts.
	from, to time.Time
}

func NewProcessor(store *Store) *Processor {
	return &Processor{store: store}
}

// Apply debits Amount from the source and credits Amount*Rate to the
// destination. Missing endpoints are skipped rather than failing the whole
// operation. Applying an applied or reverted transaction is rejected.
func (p *Processor) Apply(tx core.WalletTransaction) (Result, error) {
	if tx.ID == "" {
		return Result{}, ErrMissingID
	}
	switch p.store.State(tx.ID) {
	case Applied:
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyApplied, tx.ID)
	case Reverted:
		return Result{}, fmt.Errorf("%w: %s", ErrTransactionReverted, tx.ID)
	}
	if err := tx.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid transaction %s: %w", tx.ID, err)
	}

	src, dst := p.store.balanceRef(tx.SourceID), p.store.balanceRef(tx.DestinationID)
	if src != nil && dst != nil && !core.CanBePerformed(*src, *dst) {
		return Result{}, fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransfer, src.Kind, dst.Kind)
	}

	a := &applied{tx: tx}
	res := Result{Transaction: tx}
	if src != nil {
		before := src.Balance
		src.Balance = before - tx.Amount
		a.source = &sideRecord{before: before, after: src.Balance}
		res.Source = &Change{Item: *src, Before: before, After: src.Balance}
	}
	if dst != nil {
		before := dst.Balance
		if dst.Kind != core.ExpenseCategory || p.inPeriod(tx.Date) {
			dst.Balance = before + tx.Converted()
			a.destination = &sideRecord{before: before, after: dst.Balance}
		}
		res.Destination = &Change{Item: *dst, Before: before, After: dst.Balance}
	}
	p.store.active[tx.ID] = a
	p.store.version++
	return res, nil
}

// Revert is the inverse of Apply using the transaction's frozen rate. The
// transaction leaves the active set in the same step, so a second revert
// finds nothing to undo.
func (p *Processor) Revert(id string) (Result, error) {
	a, ok := p.store.active[id]
	if !ok {
		if p.store.State(id) == Reverted {
			return Result{}, fmt.Errorf("%w: %s already reverted", ErrNotApplied, id)
		}
		return Result{}, fmt.Errorf("%w: %s", ErrNotApplied, id)
	}
	delete(p.store.active, id)
	p.store.reverted[id] = struct{}{}
	p.store.version++

	tx := a.tx
	res := Result{Transaction: tx}
	if a.source != nil {
		if src := p.store.balanceRef(tx.SourceID); src != nil {
			before := src.Balance
			src.Balance = undo(before, tx.Amount, a.source)
			res.Source = &Change{Item: *src, Before: before, After: src.Balance}
		}
	}
	if dst := p.store.balanceRef(tx.DestinationID); dst != nil {
		before := dst.Balance
		switch {
		case dst.Kind == core.ExpenseCategory:
			// categories only hold the current period, whatever was true at
			// apply time
			if p.inPeriod(tx.Date) {
				rec := a.destination
				if rec == nil {
					rec = &sideRecord{}
				}
				dst.Balance = undo(before, -tx.Converted(), rec)
			}
			res.Destination = &Change{Item: *dst, Before: before, After: dst.Balance}
		case a.destination != nil:
			dst.Balance = undo(before, -tx.Converted(), a.destination)
			res.Destination = &Change{Item: *dst, Before: before, After: dst.Balance}
		}
	}
	return res, nil
}

// undo restores the recorded pre-apply balance when the item has not moved
// since, otherwise it adds delta back.
func undo(current, delta float64, rec *sideRecord) float64 {
	if rec.before != rec.after && current == rec.after {
		return rec.before
	}
	return current + delta
}

// SetPeriod sets the window expense category balances cover. Credits dated
// outside it leave categories untouched.
func (p *Processor) SetPeriod(from, to time.Time) {
	p.from, p.to = from, to
}

func (p *Processor) inPeriod(t time.Time) bool {
	if p.from.IsZero() && p.to.IsZero() {
		return true
	}
	return !t.Before(p.from) && t.Before(p.to)
}

// RecomputeCategoryBalances rebuilds every expense category balance as the
// sum of the frozen-rate credits received within [from, to), which becomes
// the current period. It returns the categories whose balance changed.
func (p *Processor) RecomputeCategoryBalances(from, to time.Time) []core.WalletItem {
	p.SetPeriod(from, to)
	totals := make(map[string]float64)
	for _, a := range p.store.active {
		tx := a.tx
		if tx.Date.Before(from) || !tx.Date.Before(to) {
			continue
		}
		totals[tx.DestinationID] += tx.Converted()
	}
	var changed []core.WalletItem
	for i := range p.store.categories {
		c := &p.store.categories[i]
		if total := totals[c.ID]; c.Balance != total {
			c.Balance = total
			changed = append(changed, *c)
		}
	}
	if len(changed) > 0 {
		p.store.version++
	}
	return changed
}
