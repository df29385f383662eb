// Package memory is an in-process persistence backend. Nothing survives a
// restart; it backs tests and the "memory" data backend.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"walletflow/internal/core"
	"walletflow/internal/rates"
)

type Store struct {
	mu       sync.Mutex
	items    map[string]core.WalletItem
	txs      map[string]core.WalletTransaction
	snapshot *rates.Snapshot

	// FailWith, when set, makes every write fail. Used to exercise the
	// write-behind error path.
	FailWith error
}

func New(items ...core.WalletItem) *Store {
	s := &Store{
		items: make(map[string]core.WalletItem),
		txs:   make(map[string]core.WalletTransaction),
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

// NewFromFiles seeds the store from base/seed_items.txt. Each line is
// "kind;name;currency[;budget]". Defaults are used when the file is missing.
func NewFromFiles(base string) *Store {
	items := readSeed(filepath.Join(base, "seed_items.txt"))
	if len(items) == 0 {
		items = []core.WalletItem{
			{Kind: core.Account, Name: "Cash", Currency: "USD"},
			{Kind: core.Account, Name: "Bank", Currency: "USD"},
			{Kind: core.ExpenseCategory, Name: "Groceries", Currency: "USD"},
			{Kind: core.ExpenseCategory, Name: "Transport", Currency: "USD"},
		}
	}
	orders := map[core.ItemKind]uint{}
	for i := range items {
		items[i].ID = core.NewID()
		items[i].Order = orders[items[i].Kind]
		orders[items[i].Kind]++
	}
	return New(items...)
}

func (s *Store) writable() error {
	if s.FailWith != nil {
		return s.FailWith
	}
	return nil
}

// LoadItems returns items sorted by kind then order.
func (s *Store) LoadItems(_ context.Context) ([]core.WalletItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.WalletItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, cloneItem(it))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (s *Store) LoadTransactions(_ context.Context) ([]core.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.WalletTransaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveItems(_ context.Context, items []core.WalletItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	for _, it := range items {
		s.items[it.ID] = cloneItem(it)
	}
	return nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.items, id)
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, tx core.WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	if _, ok := s.txs[tx.ID]; ok {
		return fmt.Errorf("transaction %s already stored", tx.ID)
	}
	s.txs[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransactions(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.txs, id)
	}
	return nil
}

func (s *Store) SaveSnapshot(_ context.Context, snap rates.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	s.snapshot = &snap
	return nil
}

func (s *Store) LoadSnapshot(_ context.Context) (rates.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return rates.Snapshot{}, rates.ErrNoSnapshot
	}
	return *s.snapshot, nil
}

func cloneItem(it core.WalletItem) core.WalletItem {
	if it.Budget != nil {
		b := *it.Budget
		it.Budget = &b
	}
	return it
}

func readSeed(path string) []core.WalletItem {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.WalletItem
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) < 3 {
			continue
		}
		it := core.WalletItem{
			Kind:     core.ItemKind(strings.TrimSpace(parts[0])),
			Name:     strings.TrimSpace(parts[1]),
			Currency: strings.ToUpper(strings.TrimSpace(parts[2])),
		}
		if len(parts) > 3 && it.Kind == core.ExpenseCategory {
			if b, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil && b > 0 {
				it.Budget = &b
			}
		}
		key := string(it.Kind) + "/" + it.Name
		if _, dup := seen[key]; dup || !it.Kind.IsValid() || it.Name == "" || it.Currency == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
