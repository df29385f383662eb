package spending

import (
	"math"
	"testing"
	"time"

	"walletflow/internal/core"
	"walletflow/internal/rates"
)

var now = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

func testTable(t *testing.T) *rates.Table {
	t.Helper()
	tbl, err := rates.NewTable("USD", []core.Currency{
		{Code: "USD", Symbol: "$"}, {Code: "EUR", Symbol: "€"},
	}, []core.ConversionRate{{Source: "USD", Destination: "EUR", Rate: 0.5}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func cat(id string, order uint) core.WalletItem {
	return core.WalletItem{ID: id, Order: order, Kind: core.ExpenseCategory, Name: id, Currency: "USD"}
}

func spend(id, dst, cur string, amount float64, at time.Time) core.WalletTransaction {
	return core.WalletTransaction{
		ID: id, Date: at, Currency: cur, Amount: amount, Rate: 1,
		SourceID: "acc", DestinationID: dst,
	}
}

func TestAggregate_SectionsAndAngles(t *testing.T) {
	in := Input{
		Categories: []core.WalletItem{cat("food", 0), cat("fun", 1), cat("rent", 2)},
		Transactions: []core.WalletTransaction{
			spend("t1", "food", "USD", 30, now),
			spend("t2", "rent", "USD", 50, now.AddDate(0, 0, -10)),
			spend("t3", "fun", "EUR", 10, now), // 20 USD
			spend("t4", "food", "USD", 999, now.AddDate(0, -1, 0)),
			spend("t5", "acc2", "USD", 999, now),
		},
		Period:   Month,
		Rates:    testTable(t),
		Currency: "USD",
		Now:      now,
	}
	r, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if r.NoData() {
		t.Fatal("expected data")
	}
	if r.Total != 100 {
		t.Fatalf("Total = %v, want 100", r.Total)
	}
	wantOrder := []string{"rent", "food", "fun"}
	if len(r.Sections) != len(wantOrder) {
		t.Fatalf("got %d sections", len(r.Sections))
	}
	percentSum := 0.0
	for i, s := range r.Sections {
		if s.Category.ID != wantOrder[i] {
			t.Errorf("section %d = %s, want %s", i, s.Category.ID, wantOrder[i])
		}
		if s.Color != ColorForRank(i) {
			t.Errorf("section %d color mismatch", i)
		}
		if i > 0 && s.StartAngle != r.Sections[i-1].EndAngle {
			t.Errorf("section %d does not start where previous ended", i)
		}
		if math.Abs(s.MidAngle-(s.StartAngle+s.Angle/2)) > 1e-9 {
			t.Errorf("section %d mid angle %v", i, s.MidAngle)
		}
		percentSum += s.Percent
	}
	if math.Abs(percentSum-1) > 1e-9 {
		t.Errorf("percent sum = %v", percentSum)
	}
	if r.Sections[0].StartAngle != -90 {
		t.Errorf("first section starts at %v", r.Sections[0].StartAngle)
	}
	if r.Sections[len(r.Sections)-1].EndAngle != 270 {
		t.Errorf("last section ends at %v", r.Sections[len(r.Sections)-1].EndAngle)
	}
	if r.Sections[0].Percent != 0.5 || r.Sections[0].Angle != 180 {
		t.Errorf("rent section = %+v", r.Sections[0])
	}
	if len(r.FallbackCurrencies) != 0 {
		t.Errorf("unexpected fallbacks %v", r.FallbackCurrencies)
	}
}

func TestAggregate_NoDataSentinel(t *testing.T) {
	r, err := Aggregate(Input{
		Categories:   []core.WalletItem{cat("food", 0)},
		Transactions: []core.WalletTransaction{spend("old", "food", "USD", 5, now.AddDate(0, -2, 0))},
		Period:       Week,
		Rates:        testTable(t),
		Currency:     "USD",
		Now:          now,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !r.NoData() || len(r.Sections) != 0 || r.Total != 0 {
		t.Fatalf("expected no-data report, got %+v", r)
	}
}

func TestAggregate_SingleSectionIsFullCircle(t *testing.T) {
	r, err := Aggregate(Input{
		Categories:   []core.WalletItem{cat("food", 0)},
		Transactions: []core.WalletTransaction{spend("t", "food", "USD", 0.1, now)},
		Period:       Week,
		Rates:        testTable(t),
		Currency:     "USD",
		Now:          now,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	s := r.Sections[0]
	if s.StartAngle != -90 || s.EndAngle != 270 || s.Angle != 360 || s.MidAngle != 90 {
		t.Fatalf("unexpected layout %+v", s)
	}
}

func TestAggregate_MissingRateFallsBackLoudly(t *testing.T) {
	r, err := Aggregate(Input{
		Categories:   []core.WalletItem{cat("food", 0)},
		Transactions: []core.WalletTransaction{spend("t", "food", "CHF", 7, now)},
		Period:       Month,
		Rates:        testTable(t),
		Currency:     "USD",
		Now:          now,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if r.Total != 7 {
		t.Errorf("Total = %v, want 7 at fallback rate", r.Total)
	}
	if len(r.FallbackCurrencies) != 1 || r.FallbackCurrencies[0] != "CHF" {
		t.Errorf("FallbackCurrencies = %v", r.FallbackCurrencies)
	}
}

func TestAggregate_TieBreakByOrder(t *testing.T) {
	r, err := Aggregate(Input{
		Categories: []core.WalletItem{cat("b", 1), cat("a", 0)},
		Transactions: []core.WalletTransaction{
			spend("t1", "b", "USD", 10, now),
			spend("t2", "a", "USD", 10, now),
		},
		Period:   Month,
		Currency: "USD",
		Now:      now,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if r.Sections[0].Category.ID != "a" || r.Sections[1].Category.ID != "b" {
		t.Fatalf("tie must resolve by order, got %s, %s", r.Sections[0].Category.ID, r.Sections[1].Category.ID)
	}
}

func TestAggregate_BudgetUsage(t *testing.T) {
	budget := 40.0
	food := cat("food", 0)
	food.Currency = "EUR"
	food.Budget = &budget // 80 USD
	r, err := Aggregate(Input{
		Categories:   []core.WalletItem{food},
		Transactions: []core.WalletTransaction{spend("t", "food", "USD", 100, now)},
		Period:       Month,
		Rates:        testTable(t),
		Currency:     "USD",
		Now:          now,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	s := r.Sections[0]
	if s.Budget == nil || *s.Budget != 80 {
		t.Fatalf("Budget = %v, want 80", s.Budget)
	}
	if s.BudgetUsed != 1.25 || !s.OverBudget {
		t.Fatalf("BudgetUsed = %v over = %v", s.BudgetUsed, s.OverBudget)
	}
}

func TestAggregate_InvalidPeriod(t *testing.T) {
	if _, err := Aggregate(Input{Period: "decade", Now: now}); err == nil {
		t.Fatal("expected error for invalid period")
	}
}

func TestColorForRank_Wraps(t *testing.T) {
	if ColorForRank(0) != ColorForRank(len(paletteHex)) {
		t.Fatal("palette must wrap")
	}
	if got := (Section{Color: ColorForRank(0)}).Hex(); got != "#4e79a7" {
		t.Fatalf("Hex() = %s", got)
	}
}
