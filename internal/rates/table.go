// Package rates holds the immutable snapshot of known currencies and
// conversion rates used for live reporting and transfer suggestions.
//
// A Table is never mutated after construction. Refreshing rates builds a new
// Table which replaces the previous one wholesale.
package rates

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"walletflow/internal/core"
)

var ErrRateNotFound = errors.New("conversion rate not found")

type pair struct {
	source, destination string
}

// Table is a read-only snapshot of currencies and pairwise rates. Rates may be
// stored as direct pairs or as a star around Base, in which case cross rates
// are derived as rate(base, dst) / rate(base, src).
type Table struct {
	base       string
	currencies map[string]core.Currency
	codes      []string
	direct     map[pair]float64
}

// Empty returns a table that only knows identity conversions.
func Empty() *Table {
	return &Table{
		currencies: map[string]core.Currency{},
		direct:     map[pair]float64{},
	}
}

// NewTable validates and indexes the given snapshot. Later entries for the
// same pair win.
func NewTable(base string, currencies []core.Currency, rates []core.ConversionRate) (*Table, error) {
	t := &Table{
		base:       strings.ToUpper(strings.TrimSpace(base)),
		currencies: make(map[string]core.Currency, len(currencies)),
		direct:     make(map[pair]float64, len(rates)),
	}
	for _, c := range currencies {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("currency %q: %w", c.Code, err)
		}
		if _, ok := t.currencies[c.Code]; !ok {
			t.codes = append(t.codes, c.Code)
		}
		t.currencies[c.Code] = c
	}
	for _, r := range rates {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rate %s->%s: %w", r.Source, r.Destination, err)
		}
		t.direct[pair{r.Source, r.Destination}] = r.Rate
	}
	return t, nil
}

// Base returns the reference currency of the star topology, if any.
func (t *Table) Base() string {
	return t.base
}

// Currencies returns the known currencies in insertion order.
func (t *Table) Currencies() []core.Currency {
	out := make([]core.Currency, 0, len(t.codes))
	for _, code := range t.codes {
		out = append(out, t.currencies[code])
	}
	return out
}

// Rates returns the stored entries sorted by pair, suitable for snapshotting.
func (t *Table) Rates() []core.ConversionRate {
	out := make([]core.ConversionRate, 0, len(t.direct))
	for p, r := range t.direct {
		out = append(out, core.ConversionRate{Source: p.source, Destination: p.destination, Rate: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Destination < out[j].Destination
	})
	return out
}

// Has reports whether the currency code is part of the snapshot.
func (t *Table) Has(code string) bool {
	_, ok := t.currencies[code]
	return ok
}

// Rate returns how many destination units one source unit is worth.
func (t *Table) Rate(source, destination string) (float64, error) {
	if source == destination {
		return 1, nil
	}
	if r, ok := t.lookup(source, destination); ok {
		return r, nil
	}
	if t.base != "" {
		fromBase, okSrc := t.baseRate(source)
		toBase, okDst := t.baseRate(destination)
		if okSrc && okDst {
			return toBase / fromBase, nil
		}
	}
	return 0, fmt.Errorf("%w: %s->%s", ErrRateNotFound, source, destination)
}

// RateOrFallback is Rate with the legacy 1.0 fallback. The second result is
// true when the fallback was used so callers can flag stale conversions.
func (t *Table) RateOrFallback(source, destination string) (float64, bool) {
	r, err := t.Rate(source, destination)
	if err != nil {
		return 1, true
	}
	return r, false
}

// Convert converts amount from source to destination currency.
func (t *Table) Convert(amount float64, source, destination string) (float64, error) {
	r, err := t.Rate(source, destination)
	if err != nil {
		return 0, err
	}
	return amount * r, nil
}

func (t *Table) lookup(source, destination string) (float64, bool) {
	if r, ok := t.direct[pair{source, destination}]; ok {
		return r, true
	}
	if r, ok := t.direct[pair{destination, source}]; ok {
		return 1 / r, true
	}
	return 0, false
}

func (t *Table) baseRate(code string) (float64, bool) {
	if code == t.base {
		return 1, true
	}
	return t.lookup(t.base, code)
}

// Symbol returns the display symbol for a currency. Unknown codes display as
// themselves.
func (t *Table) Symbol(code string) string {
	if c, ok := t.currencies[code]; ok && c.Symbol != "" {
		return c.Symbol
	}
	if c := money.GetCurrency(code); c != nil && c.Grapheme != "" {
		return c.Grapheme
	}
	return code
}

// displayFraction is the fixed number of decimals every balance shows,
// whatever the currency's minor unit.
const displayFraction = 2

// Display renders amount in the given currency with two-decimal rounding.
// Separators and symbol placement follow the currency's conventions.
func (t *Table) Display(amount float64, code string) string {
	if c := money.GetCurrency(code); c != nil {
		cents := decimal.NewFromFloat(amount).Shift(displayFraction).Round(0).IntPart()
		f := money.NewFormatter(displayFraction, c.Decimal, c.Thousand, t.Symbol(code), c.Template)
		return f.Format(cents)
	}
	return core.FormatAmount(amount) + " " + t.Symbol(code)
}
