package ports

import (
	"context"

	"walletflow/internal/core"
	"walletflow/internal/rates"
)

// Ports for outbound adapters.
type (
	ItemReader interface {
		LoadItems(ctx context.Context) ([]core.WalletItem, error)
	}

	TransactionReader interface {
		LoadTransactions(ctx context.Context) ([]core.WalletTransaction, error)
	}

	ItemWriter interface {
		// SaveItems upserts every item, balances and order included.
		SaveItems(ctx context.Context, items []core.WalletItem) error
		DeleteItem(ctx context.Context, id string) error
	}

	TransactionWriter interface {
		InsertTransaction(ctx context.Context, tx core.WalletTransaction) error
		DeleteTransactions(ctx context.Context, ids []string) error
	}

	// Persistence is the system of record across restarts. The engine treats
	// it as a write-behind cache of its in-memory state.
	Persistence interface {
		ItemReader
		TransactionReader
		ItemWriter
		TransactionWriter
	}

	// RateSource fetches currencies and rates from the network.
	RateSource interface {
		FetchCurrencies(ctx context.Context) ([]core.Currency, error)
		FetchRates(ctx context.Context, base string, targets []string) ([]core.ConversionRate, error)
	}

	// SnapshotStore keeps the last-known-good rate table.
	SnapshotStore interface {
		SaveSnapshot(ctx context.Context, s rates.Snapshot) error
		LoadSnapshot(ctx context.Context) (rates.Snapshot, error)
	}

	// Analytics receives named events. Implementations must not block.
	Analytics interface {
		Track(ctx context.Context, e core.Event)
	}
)
