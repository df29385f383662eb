package engine

import (
	"errors"
	"fmt"
	"strings"

	"walletflow/internal/core"
	"walletflow/internal/drag"
	"walletflow/internal/rates/provider"
	"walletflow/internal/spending"
)

var (
	ErrDeleteModeRequired = errors.New("delete mode is required")
	ErrItemNotFound       = errors.New("wallet item not found")
	ErrNoRateSource       = errors.New("no rate refresher configured")
)

// DeleteMode decides what happens to the transactions of a deleted item.
// The zero value is deliberately invalid.
type DeleteMode int

const (
	// DeleteItemOnly keeps the transaction history; the dangling side is
	// skipped if those transactions are ever reverted.
	DeleteItemOnly DeleteMode = iota + 1
	// DeleteItemAndTransactions reverts and removes every transaction
	// touching the item first.
	DeleteItemAndTransactions
)

func (m DeleteMode) String() string {
	switch m {
	case DeleteItemOnly:
		return "item-only"
	case DeleteItemAndTransactions:
		return "with-transactions"
	default:
		return fmt.Sprintf("delete-mode(%d)", int(m))
	}
}

func (m DeleteMode) IsValid() bool {
	return m == DeleteItemOnly || m == DeleteItemAndTransactions
}

func ParseDeleteMode(s string) (DeleteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "item-only", "item":
		return DeleteItemOnly, nil
	case "with-transactions", "all":
		return DeleteItemAndTransactions, nil
	case "":
		return 0, ErrDeleteModeRequired
	default:
		return 0, fmt.Errorf("unknown delete mode %q", s)
	}
}

// Reply receives the outcome of a command once the in-memory state has been
// updated. Persistence happens afterwards and is not reflected here.
type Reply func(error)

func (r Reply) send(err error) {
	if r != nil {
		r(err)
	}
}

// Command is everything the owner loop handles. Collaborators and background
// tasks only ever talk to the engine through commands.
type Command interface {
	isCommand()
}

// Load reads items and transactions from persistence and replaces the ledger.
type Load struct {
	Reply Reply
}

type CreateItem struct {
	Item  core.WalletItem
	Reply Reply
}

// UpdateItem replaces an existing item in place. Balance and order are kept
// from the ledger.
type UpdateItem struct {
	Item  core.WalletItem
	Reply Reply
}

type DeleteItem struct {
	ID    string
	Mode  DeleteMode
	Reply Reply
}

// CreateTransaction applies a new transfer. A zero Rate is resolved from the
// live table, a zero Date is now and an empty Currency is the source's.
type CreateTransaction struct {
	Transaction core.WalletTransaction
	Reply       Reply
}

type DeleteTransaction struct {
	ID    string
	Reply Reply
}

type Reorder struct {
	Kind        core.ItemKind
	DraggedID   string
	TargetID    string
	PlaceBefore bool
	Reply       Reply
}

// Gesture feeds a pointer, geometry or lifecycle event to the drag machine.
type Gesture struct {
	Event drag.Event
}

// RecomputeCategories rebuilds expense category balances for the current
// month from the transaction history.
type RecomputeCategories struct{}

type RefreshRates struct {
	Reply Reply
}

// Report computes the spending breakdown. Empty fields use the engine
// defaults.
type Report struct {
	Period   spending.Period
	Currency string
	Reply    func(spending.Report, error)
}

// Inspect runs Fn on the owner loop with read access to the state.
type Inspect struct {
	Fn func(View)
}

// reported back by background tasks
type (
	loaded struct {
		items []core.WalletItem
		txs   []core.WalletTransaction
		err   error
		reply Reply
	}

	ratesRefreshed struct {
		result provider.Result
		err    error
		reply  Reply
	}

	persisted struct {
		op  string
		err error
	}

	awaitWrites struct {
		done chan struct{}
	}
)

func (Load) isCommand()                {}
func (CreateItem) isCommand()          {}
func (UpdateItem) isCommand()          {}
func (DeleteItem) isCommand()          {}
func (CreateTransaction) isCommand()   {}
func (DeleteTransaction) isCommand()   {}
func (Reorder) isCommand()             {}
func (Gesture) isCommand()             {}
func (RecomputeCategories) isCommand() {}
func (RefreshRates) isCommand()        {}
func (Report) isCommand()              {}
func (Inspect) isCommand()             {}
func (loaded) isCommand()              {}
func (ratesRefreshed) isCommand()      {}
func (persisted) isCommand()           {}
func (awaitWrites) isCommand()         {}
