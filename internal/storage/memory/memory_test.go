package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"walletflow/internal/core"
	"walletflow/internal/rates"
)

func TestMemoryStoreItemsAndTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()

	budget := 10.0
	items := []core.WalletItem{
		{ID: "c", Order: 0, Kind: core.ExpenseCategory, Name: "c", Currency: "USD", Budget: &budget},
		{ID: "b", Order: 1, Kind: core.Account, Name: "b", Currency: "USD"},
		{ID: "a", Order: 0, Kind: core.Account, Name: "a", Currency: "USD"},
	}
	if err := s.SaveItems(ctx, items); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}
	budget = 99 // stored copy must not alias the caller's pointer

	got, _ := s.LoadItems(ctx)
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if *got[2].Budget != 10 {
		t.Fatalf("budget aliased: %v", *got[2].Budget)
	}

	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tx := core.WalletTransaction{ID: "t1", Date: day, Currency: "USD", Amount: 1, Rate: 1, SourceID: "a", DestinationID: "c"}
	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
	if err := s.InsertTransaction(ctx, tx); err == nil {
		t.Fatal("duplicate insert must fail")
	}
	if err := s.DeleteTransactions(ctx, []string{"t1"}); err != nil {
		t.Fatalf("DeleteTransactions: %v", err)
	}
	if txs, _ := s.LoadTransactions(ctx); len(txs) != 0 {
		t.Fatalf("expected empty, got %+v", txs)
	}
	if err := s.DeleteItem(ctx, "a"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if got, _ := s.LoadItems(ctx); len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	boom := errors.New("boom")
	s := New()
	s.FailWith = boom
	if err := s.SaveItems(context.Background(), []core.WalletItem{{ID: "x"}}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMemoryStoreSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.LoadSnapshot(ctx); !errors.Is(err, rates.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	snap := rates.Snapshot{Base: "USD", Currencies: []core.Currency{{Code: "USD", Symbol: "$"}}}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if got, err := s.LoadSnapshot(ctx); err != nil || got.Base != "USD" {
		t.Fatalf("LoadSnapshot = %+v, %v", got, err)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	// No files -> defaults
	s := NewFromFiles(dir)
	items, _ := s.LoadItems(context.Background())
	if len(items) == 0 {
		t.Fatalf("expected defaults when files missing")
	}

	content := "# kind;name;currency;budget\n" +
		"account;Cash;usd\n" +
		"account;Cash;usd\n" +
		"expense_category;Food;EUR;300\n" +
		"bogus;Thing;USD\n" +
		"account;NoCurrency\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_items.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s = NewFromFiles(dir)
	items, _ = s.LoadItems(context.Background())
	if len(items) != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].Name != "Cash" || items[0].Currency != "USD" || items[0].Order != 0 || items[0].ID == "" {
		t.Fatalf("unexpected account: %+v", items[0])
	}
	if items[1].Budget == nil || *items[1].Budget != 300 {
		t.Fatalf("unexpected category: %+v", items[1])
	}
}
