package spending

import (
	"sort"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"walletflow/internal/core"
	"walletflow/internal/rates"
)

// pieStart is the angle of the first section, at the top of the chart.
const pieStart = -90.0

var paletteHex = []string{
	"#4E79A7", "#F28E2B", "#E15759", "#76B7B2", "#59A14F",
	"#EDC948", "#B07AA1", "#FF9DA7", "#9C755F", "#BAB0AC",
}

var palette = mustParsePalette(paletteHex)

func mustParsePalette(hexes []string) []colorful.Color {
	out := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic("spending: bad palette color " + h)
		}
		out[i] = c
	}
	return out
}

// ColorForRank returns the palette color for the section at rank i.
func ColorForRank(i int) colorful.Color {
	return palette[i%len(palette)]
}

type Input struct {
	Transactions []core.WalletTransaction
	Categories   []core.WalletItem
	Period       Period
	Rates        *rates.Table
	Currency     string // target display currency
	Now          time.Time
}

// Section is one slice of the spending pie. Angles are in degrees.
type Section struct {
	Category   core.WalletItem
	Amount     float64
	Percent    float64
	Color      colorful.Color
	StartAngle float64
	Angle      float64
	MidAngle   float64 // label position
	EndAngle   float64

	Budget     *float64 // converted to the report currency
	BudgetUsed float64
	OverBudget bool
}

// Hex returns the section color as #rrggbb.
func (s Section) Hex() string {
	return s.Color.Hex()
}

type Report struct {
	Period   Period
	From     time.Time
	To       time.Time
	Currency string
	Total    float64
	Sections []Section

	// HasData is false when no transaction fell in the period, which is
	// distinct from categories that exist but received nothing.
	HasData bool

	// FallbackCurrencies lists source currencies converted with the 1.0
	// fallback because the rate table had no entry for them.
	FallbackCurrencies []string
}

func (r Report) NoData() bool {
	return !r.HasData
}

// Aggregate sums expense-category spending for the period in the target
// currency using the live rate table, and lays out the pie sections.
func Aggregate(in Input) (Report, error) {
	w, err := WindowFor(in.Period)
	if err != nil {
		return Report{}, err
	}
	tbl := in.Rates
	if tbl == nil {
		tbl = rates.Empty()
	}
	from, to := w.Bounds(in.Now)
	report := Report{Period: in.Period, From: from, To: to, Currency: in.Currency}

	categories := make(map[string]core.WalletItem, len(in.Categories))
	for _, c := range in.Categories {
		if c.Kind == core.ExpenseCategory {
			categories[c.ID] = c
		}
	}

	totals := make(map[string]float64)
	fallbacks := make(map[string]struct{})
	for _, tx := range in.Transactions {
		if _, ok := categories[tx.DestinationID]; !ok {
			continue
		}
		if tx.Date.Before(from) || !tx.Date.Before(to) {
			continue
		}
		report.HasData = true
		r, fallback := tbl.RateOrFallback(tx.Currency, in.Currency)
		if fallback {
			fallbacks[tx.Currency] = struct{}{}
		}
		totals[tx.DestinationID] += tx.Amount * r
	}
	if !report.HasData {
		return report, nil
	}

	sections := make([]Section, 0, len(totals))
	for id, amount := range totals {
		sections = append(sections, Section{Category: categories[id], Amount: amount})
		report.Total += amount
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].Amount != sections[j].Amount {
			return sections[i].Amount > sections[j].Amount
		}
		return sections[i].Category.Order < sections[j].Category.Order
	})

	start := pieStart
	for i := range sections {
		s := &sections[i]
		if report.Total > 0 {
			s.Percent = s.Amount / report.Total
		}
		s.Color = ColorForRank(i)
		s.StartAngle = start
		s.Angle = s.Percent * 360
		s.EndAngle = start + s.Angle
		if i == len(sections)-1 && report.Total > 0 {
			s.EndAngle = pieStart + 360
			s.Angle = s.EndAngle - s.StartAngle
		}
		s.MidAngle = s.StartAngle + s.Angle/2
		start = s.EndAngle

		if s.Category.HasBudget() {
			r, fallback := tbl.RateOrFallback(s.Category.Currency, in.Currency)
			if fallback {
				fallbacks[s.Category.Currency] = struct{}{}
			}
			budget := *s.Category.Budget * r
			s.Budget = &budget
			if budget > 0 {
				s.BudgetUsed = s.Amount / budget
			}
			s.OverBudget = s.Amount > budget
		}
	}
	report.Sections = sections

	for code := range fallbacks {
		report.FallbackCurrencies = append(report.FallbackCurrencies, code)
	}
	sort.Strings(report.FallbackCurrencies)
	return report, nil
}
