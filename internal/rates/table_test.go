package rates

import (
	"errors"
	"math"
	"strings"
	"testing"

	"walletflow/internal/core"
)

func starTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable("USD",
		[]core.Currency{{Code: "USD", Symbol: "$"}, {Code: "EUR", Symbol: "€"}, {Code: "GBP"}, {Code: "JPY"}},
		[]core.ConversionRate{
			{Source: "USD", Destination: "EUR", Rate: 0.9},
			{Source: "USD", Destination: "GBP", Rate: 0.8},
			{Source: "USD", Destination: "JPY", Rate: 150},
		})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestTable_Rate(t *testing.T) {
	tbl := starTable(t)

	tests := []struct {
		name     string
		src, dst string
		want     float64
	}{
		{"same code", "EUR", "EUR", 1},
		{"unknown same code", "XYZ", "XYZ", 1},
		{"direct", "USD", "EUR", 0.9},
		{"reverse", "EUR", "USD", 1 / 0.9},
		{"cross via base", "EUR", "GBP", 0.8 / 0.9},
		{"cross reverse", "GBP", "EUR", 0.9 / 0.8},
		{"cross large", "EUR", "JPY", 150 / 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tbl.Rate(tt.src, tt.dst)
			if err != nil {
				t.Fatalf("Rate(%s, %s) error: %v", tt.src, tt.dst, err)
			}
			if !approx(got, tt.want) {
				t.Errorf("Rate(%s, %s) = %v, want %v", tt.src, tt.dst, got, tt.want)
			}
		})
	}
}

func TestTable_ReverseConsistency(t *testing.T) {
	tbl := starTable(t)
	codes := []string{"USD", "EUR", "GBP", "JPY"}
	for _, a := range codes {
		for _, b := range codes {
			ab, err := tbl.Rate(a, b)
			if err != nil {
				t.Fatalf("Rate(%s, %s): %v", a, b, err)
			}
			ba, err := tbl.Rate(b, a)
			if err != nil {
				t.Fatalf("Rate(%s, %s): %v", b, a, err)
			}
			if !approx(ab*ba, 1) {
				t.Errorf("Rate(%s,%s)*Rate(%s,%s) = %v, want 1", a, b, b, a, ab*ba)
			}
		}
	}
}

func TestTable_MissingRate(t *testing.T) {
	tbl := starTable(t)

	if _, err := tbl.Rate("EUR", "CHF"); !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}

	r, fallback := tbl.RateOrFallback("EUR", "CHF")
	if r != 1 || !fallback {
		t.Fatalf("expected (1, true), got (%v, %v)", r, fallback)
	}

	r, fallback = tbl.RateOrFallback("USD", "EUR")
	if r != 0.9 || fallback {
		t.Fatalf("expected (0.9, false), got (%v, %v)", r, fallback)
	}
}

func TestTable_NoBaseHasNoCrossRates(t *testing.T) {
	tbl, err := NewTable("", nil, []core.ConversionRate{
		{Source: "USD", Destination: "EUR", Rate: 0.9},
		{Source: "USD", Destination: "GBP", Rate: 0.8},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if _, err := tbl.Rate("EUR", "GBP"); !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound without base, got %v", err)
	}
}

func TestNewTable_RejectsNonPositiveRates(t *testing.T) {
	for _, rate := range []float64{0, -1, math.NaN()} {
		_, err := NewTable("USD", nil, []core.ConversionRate{{Source: "USD", Destination: "EUR", Rate: rate}})
		if !errors.Is(err, core.ErrInvalidRate) {
			t.Errorf("rate %v: expected ErrInvalidRate, got %v", rate, err)
		}
	}
}

func TestEmptyTable(t *testing.T) {
	tbl := Empty()
	if r, err := tbl.Rate("USD", "USD"); err != nil || r != 1 {
		t.Fatalf("identity rate: %v %v", r, err)
	}
	if _, err := tbl.Rate("USD", "EUR"); err == nil {
		t.Fatal("expected error on empty table")
	}
	if len(tbl.Currencies()) != 0 || len(tbl.Rates()) != 0 {
		t.Fatal("expected empty snapshot")
	}
}

func TestTable_Convert(t *testing.T) {
	tbl := starTable(t)
	got, err := tbl.Convert(20, "USD", "EUR")
	if err != nil || !approx(got, 18) {
		t.Fatalf("Convert = %v, %v", got, err)
	}
}

func TestTable_Snapshot(t *testing.T) {
	tbl := starTable(t)
	rates := tbl.Rates()
	if len(rates) != 3 || rates[0].Destination != "EUR" || rates[2].Destination != "JPY" {
		t.Fatalf("unexpected snapshot order: %+v", rates)
	}
	cur := tbl.Currencies()
	if len(cur) != 4 || cur[0].Code != "USD" {
		t.Fatalf("unexpected currencies: %+v", cur)
	}
	if !tbl.Has("GBP") || tbl.Has("CHF") {
		t.Fatal("Has() mismatch")
	}
}

func TestTable_SymbolAndDisplay(t *testing.T) {
	tbl := starTable(t)

	if got := tbl.Symbol("EUR"); got != "€" {
		t.Errorf("Symbol(EUR) = %q", got)
	}
	if got := tbl.Symbol("XYZ"); got != "XYZ" {
		t.Errorf("unknown code should display as itself, got %q", got)
	}
	if got := tbl.Display(12.5, "XYZ"); got != "12.50 XYZ" {
		t.Errorf("Display(XYZ) = %q", got)
	}
	got := tbl.Display(12.499, "USD")
	if !strings.Contains(got, "12.50") || !strings.Contains(got, "$") {
		t.Errorf("Display(USD) = %q", got)
	}

	// zero-decimal currencies still show two decimals
	if got := tbl.Display(1234.5, "JPY"); got != "¥1,234.50" {
		t.Errorf("Display(JPY) = %q", got)
	}
	if got := tbl.Display(-3.456, "USD"); got != "-$3.46" {
		t.Errorf("Display(negative USD) = %q", got)
	}
}
