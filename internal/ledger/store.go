// Package ledger owns the authoritative wallet items and transaction history
// and the balance invariants between them.
//
// The Store is not safe for concurrent use: it is mutated by exactly one
// owner (the engine loop), which is what keeps the invariants simple.
package ledger

import (
	"fmt"
	"sort"

	"walletflow/internal/core"
)

// TxState is the lifecycle of a transaction: Unapplied -> Applied -> Reverted.
type TxState int

const (
	Unapplied TxState = iota
	Applied
	Reverted
)

func (s TxState) String() string {
	switch s {
	case Applied:
		return "applied"
	case Reverted:
		return "reverted"
	default:
		return "unapplied"
	}
}

// applied records a transaction currently reflected in balances. The
// before/after values let a revert restore the exact bits when nothing else
// touched the item in between.
type applied struct {
	tx          core.WalletTransaction
	source      *sideRecord
	destination *sideRecord
}

type sideRecord struct {
	before, after float64
}

type Store struct {
	accounts   []core.WalletItem
	categories []core.WalletItem
	active     map[string]*applied
	reverted   map[string]struct{}
	version    uint64
}

func NewStore() *Store {
	return &Store{
		active:   make(map[string]*applied),
		reverted: make(map[string]struct{}),
	}
}

// Restore replaces the whole state with a persisted snapshot. Item balances
// are trusted as-is and every transaction is considered already applied.
func (s *Store) Restore(items []core.WalletItem, txs []core.WalletTransaction) error {
	var accounts, categories []core.WalletItem
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}
		switch it.Kind {
		case core.Account:
			accounts = append(accounts, it)
		case core.ExpenseCategory:
			categories = append(categories, it)
		default:
			return fmt.Errorf("item %q: %w", it.ID, core.ErrInvalidKind)
		}
	}
	sortByOrder(accounts)
	sortByOrder(categories)
	renumber(accounts)
	renumber(categories)

	active := make(map[string]*applied, len(txs))
	for _, tx := range txs {
		a := &applied{tx: tx}
		if _, ok := seen[tx.SourceID]; ok {
			a.source = &sideRecord{}
		}
		if _, ok := seen[tx.DestinationID]; ok {
			a.destination = &sideRecord{}
		}
		active[tx.ID] = a
	}

	s.accounts = accounts
	s.categories = categories
	s.active = active
	s.reverted = make(map[string]struct{})
	s.version++
	return nil
}

// Version increases on every mutation. Derived projections can use it as a
// cache key.
func (s *Store) Version() uint64 {
	return s.version
}

func (s *Store) collection(kind core.ItemKind) *[]core.WalletItem {
	switch kind {
	case core.Account:
		return &s.accounts
	case core.ExpenseCategory:
		return &s.categories
	default:
		return nil
	}
}

func (s *Store) locate(id string) (*[]core.WalletItem, int) {
	for _, coll := range []*[]core.WalletItem{&s.accounts, &s.categories} {
		for i := range *coll {
			if (*coll)[i].ID == id {
				return coll, i
			}
		}
	}
	return nil, -1
}

// Item returns a copy of the item with the given id.
func (s *Store) Item(id string) (core.WalletItem, bool) {
	coll, i := s.locate(id)
	if coll == nil {
		return core.WalletItem{}, false
	}
	return (*coll)[i], true
}

// Items returns the kind-collection in presentation order.
func (s *Store) Items(kind core.ItemKind) []core.WalletItem {
	coll := s.collection(kind)
	if coll == nil {
		return nil
	}
	return append([]core.WalletItem(nil), (*coll)...)
}

func (s *Store) Accounts() []core.WalletItem   { return s.Items(core.Account) }
func (s *Store) Categories() []core.WalletItem { return s.Items(core.ExpenseCategory) }

// AllItems returns accounts followed by categories.
func (s *Store) AllItems() []core.WalletItem {
	out := make([]core.WalletItem, 0, len(s.accounts)+len(s.categories))
	out = append(out, s.accounts...)
	return append(out, s.categories...)
}

// UpsertItem inserts an unseen item at the end of its kind-collection or
// replaces an existing one in place. It never touches other balances.
func (s *Store) UpsertItem(item core.WalletItem) (core.WalletItem, error) {
	if item.ID == "" {
		return core.WalletItem{}, ErrMissingID
	}
	if err := item.Validate(); err != nil {
		return core.WalletItem{}, err
	}
	if coll, i := s.locate(item.ID); coll != nil {
		existing := (*coll)[i]
		if existing.Kind == item.Kind {
			item.Order = existing.Order
			(*coll)[i] = item
			s.version++
			return item, nil
		}
		// kind changed: it moves to the end of the other ordering domain
		*coll = append((*coll)[:i], (*coll)[i+1:]...)
		renumber(*coll)
	}
	coll := s.collection(item.Kind)
	item.Order = uint(len(*coll))
	*coll = append(*coll, item)
	s.version++
	return item, nil
}

// RemoveItem deletes the item from whichever collection holds it. Related
// transactions are left alone; cascading is the caller's decision.
func (s *Store) RemoveItem(id string) (core.WalletItem, bool) {
	coll, i := s.locate(id)
	if coll == nil {
		return core.WalletItem{}, false
	}
	removed := (*coll)[i]
	*coll = append((*coll)[:i], (*coll)[i+1:]...)
	renumber(*coll)
	s.version++
	return removed, true
}

// Reorder moves dragged immediately before or after target within the
// kind-collection and renumbers it densely. It is a no-op when the ids are
// equal or either one is not part of the collection.
func (s *Store) Reorder(kind core.ItemKind, draggedID, targetID string, placeBefore bool) bool {
	if draggedID == targetID {
		return false
	}
	coll := s.collection(kind)
	if coll == nil {
		return false
	}
	from, to := indexOf(*coll, draggedID), indexOf(*coll, targetID)
	if from < 0 || to < 0 {
		return false
	}
	items := *coll
	moved := items[from]
	rest := make([]core.WalletItem, 0, len(items))
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)

	at := indexOf(rest, targetID)
	if !placeBefore {
		at++
	}
	if at == from {
		return false
	}
	out := make([]core.WalletItem, 0, len(items))
	out = append(out, rest[:at]...)
	out = append(out, moved)
	out = append(out, rest[at:]...)
	renumber(out)
	*coll = out
	s.version++
	return true
}

// Transaction returns a transaction currently applied to the ledger.
func (s *Store) Transaction(id string) (core.WalletTransaction, bool) {
	a, ok := s.active[id]
	if !ok {
		return core.WalletTransaction{}, false
	}
	return a.tx, true
}

// State reports the lifecycle state of a transaction id.
func (s *Store) State(id string) TxState {
	if _, ok := s.active[id]; ok {
		return Applied
	}
	if _, ok := s.reverted[id]; ok {
		return Reverted
	}
	return Unapplied
}

// Transactions returns the applied transactions, newest first.
func (s *Store) Transactions() []core.WalletTransaction {
	out := make([]core.WalletTransaction, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, a.tx)
	}
	sortNewestFirst(out)
	return out
}

// TransactionsTouching returns applied transactions referencing the item,
// newest first.
func (s *Store) TransactionsTouching(itemID string) []core.WalletTransaction {
	var out []core.WalletTransaction
	for _, a := range s.active {
		if a.tx.Touches(itemID) {
			out = append(out, a.tx)
		}
	}
	sortNewestFirst(out)
	return out
}

func (s *Store) balanceRef(id string) *core.WalletItem {
	coll, i := s.locate(id)
	if coll == nil {
		return nil
	}
	return &(*coll)[i]
}

func indexOf(items []core.WalletItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func renumber(items []core.WalletItem) {
	for i := range items {
		items[i].Order = uint(i)
	}
}

func sortByOrder(items []core.WalletItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
}

func sortNewestFirst(txs []core.WalletTransaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}
