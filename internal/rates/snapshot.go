package rates

import (
	"errors"
	"time"

	"walletflow/internal/core"
)

// Snapshot is the persisted form of a Table, used as the last-known-good
// fallback when a refresh fails.
type Snapshot struct {
	Base       string                `json:"base"`
	Currencies []core.Currency       `json:"currencies"`
	Rates      []core.ConversionRate `json:"rates"`
	FetchedAt  time.Time             `json:"fetched_at"`
}

func SnapshotOf(t *Table, at time.Time) Snapshot {
	return Snapshot{
		Base:       t.Base(),
		Currencies: t.Currencies(),
		Rates:      t.Rates(),
		FetchedAt:  at,
	}
}

func (s Snapshot) Empty() bool {
	return len(s.Currencies) == 0 && len(s.Rates) == 0
}

func (s Snapshot) Table() (*Table, error) {
	return NewTable(s.Base, s.Currencies, s.Rates)
}

// ErrNoSnapshot is returned by snapshot stores that hold nothing yet.
var ErrNoSnapshot = errors.New("no rate snapshot stored")
