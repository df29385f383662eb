package engine

import (
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"walletflow/internal/core"
	"walletflow/internal/drag"
	"walletflow/internal/ledger"
	"walletflow/internal/rates"
	"walletflow/internal/spending"
)

// report memoizes the spending breakdown. The key carries the ledger
// version and the rate generation, so any mutation misses the cache.
func (e *Engine) report(period spending.Period, currency string) (spending.Report, error) {
	if period == "" {
		period = e.period
	}
	if currency == "" {
		currency = e.currency
	}
	now := e.now()
	key := fmt.Sprintf("%d/%d/%s/%s/%s", e.store.Version(), e.ratesGen, period, currency, now.Format("2006-01-02"))
	if cached, ok := e.reports.Get(key); ok {
		return cloneReport(cached.(spending.Report)), nil
	}
	rep, err := spending.Aggregate(spending.Input{
		Transactions: e.store.Transactions(),
		Categories:   e.store.Categories(),
		Period:       period,
		Rates:        e.table,
		Currency:     currency,
		Now:          now,
	})
	if err != nil {
		return spending.Report{}, err
	}
	if len(rep.FallbackCurrencies) > 0 {
		e.logger.Warn("Spending report used fallback rates", "currencies", rep.FallbackCurrencies)
	}
	e.reports.Set(key, cloneReport(rep), gocache.DefaultExpiration)
	return rep, nil
}

// cloneReport copies the slices of a report so callers never share the
// cached backing arrays.
func cloneReport(r spending.Report) spending.Report {
	r.Sections = append([]spending.Section(nil), r.Sections...)
	for i := range r.Sections {
		if b := r.Sections[i].Budget; b != nil {
			v := *b
			r.Sections[i].Budget = &v
		}
	}
	r.FallbackCurrencies = append([]string(nil), r.FallbackCurrencies...)
	return r
}

// View is read access to the engine state. It is only valid inside the
// Inspect callback that received it.
type View struct {
	e *Engine
}

func (v View) Accounts() []core.WalletItem {
	return v.e.store.Accounts()
}

func (v View) Categories() []core.WalletItem {
	return v.e.store.Categories()
}

func (v View) Item(id string) (core.WalletItem, bool) {
	return v.e.store.Item(id)
}

// History returns applied transactions newest first, only those touching
// itemID when it is set.
func (v View) History(itemID string) []core.WalletTransaction {
	if itemID == "" {
		return v.e.store.Transactions()
	}
	return v.e.store.TransactionsTouching(itemID)
}

func (v View) TransactionState(id string) ledger.TxState {
	return v.e.store.State(id)
}

func (v View) Rates() *rates.Table {
	return v.e.table
}

func (v View) Drag() drag.State {
	return v.e.gesture
}

// AutoScrollPending reports whether an auto-scroll command is waiting.
func (v View) AutoScrollPending() bool {
	return v.e.sched.Pending(autoScrollSlot)
}

// Report is the memoized spending breakdown with the engine defaults for
// empty arguments.
func (v View) Report(period spending.Period, currency string) (spending.Report, error) {
	return v.e.report(period, currency)
}

// WriteErrors counts persistence writes that failed since start.
func (v View) WriteErrors() int {
	return v.e.writeErrors
}

// Inspect runs fn against the current state on the calling goroutine. Only
// safe while no Run loop is active, e.g. after Drain in tests.
func (e *Engine) Inspect(fn func(View)) {
	fn(View{e: e})
}
