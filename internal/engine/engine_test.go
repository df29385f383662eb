package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"walletflow/internal/core"
	"walletflow/internal/drag"
	"walletflow/internal/ledger"
	"walletflow/internal/log"
	"walletflow/internal/rates"
	"walletflow/internal/rates/provider"
	"walletflow/internal/scheduler"
	"walletflow/internal/spending"
	"walletflow/internal/storage/memory"
)

var t0 = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) scheduler.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) armed(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.d == d && !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *manualClock) fire() {
	c.mu.Lock()
	timers := append([]*manualTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range timers {
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		t.f()
	}
}

type recAnalytics struct {
	mu     sync.Mutex
	events []core.Event
}

func (a *recAnalytics) Track(_ context.Context, e core.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recAnalytics) count(name core.EventName) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

type harness struct {
	t         *testing.T
	engine    *Engine
	store     *memory.Store
	clock     *manualClock
	analytics *recAnalytics
	now       time.Time
	proposals []drag.TransferProposed
	effects   []drag.Effect
}

func usdEUR(t *testing.T) *rates.Table {
	t.Helper()
	tbl, err := rates.NewTable("USD",
		[]core.Currency{{Code: "USD", Symbol: "$"}, {Code: "EUR", Symbol: "€"}},
		[]core.ConversionRate{{Source: "USD", Destination: "EUR", Rate: 0.5}})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	return tbl
}

func newHarness(t *testing.T, store *memory.Store, opts ...Option) *harness {
	t.Helper()
	h := &harness{t: t, store: store, clock: &manualClock{}, analytics: &recAnalytics{}, now: t0}
	base := []Option{
		WithClock(func() time.Time { return h.now }),
		WithAnalytics(h.analytics),
		WithRates(usdEUR(t)),
		WithSchedulerOptions(scheduler.WithAfterFunc[Command](h.clock.AfterFunc)),
		WithTransferProposer(func(p drag.TransferProposed) { h.proposals = append(h.proposals, p) }),
		WithPresenter(func(e drag.Effect) { h.effects = append(h.effects, e) }),
	}
	h.engine = New(store, log.Discard(), append(base, opts...)...)
	return h
}

func (h *harness) do(cmds ...Command) {
	h.t.Helper()
	h.engine.Submit(cmds...)
	h.drain()
}

func (h *harness) drain() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.engine.Drain(ctx); err != nil {
		h.t.Fatalf("drain: %v", err)
	}
}

// must submits one command and fails the test if its reply is an error.
func (h *harness) must(build func(Reply) Command) {
	h.t.Helper()
	var got error
	replied := false
	h.do(build(func(err error) { got, replied = err, true }))
	if !replied {
		h.t.Fatal("command never replied")
	}
	if got != nil {
		h.t.Fatalf("command failed: %v", got)
	}
}

func (h *harness) item(id string) core.WalletItem {
	h.t.Helper()
	var it core.WalletItem
	var ok bool
	h.engine.Inspect(func(v View) { it, ok = v.Item(id) })
	if !ok {
		h.t.Fatalf("item %s not found", id)
	}
	return it
}

func (h *harness) seedWallet() {
	h.t.Helper()
	for _, it := range []core.WalletItem{
		{ID: "a0", Kind: core.Account, Name: "Cash", Currency: "USD", Balance: 100},
		{ID: "a1", Kind: core.Account, Name: "Bank", Currency: "USD"},
		{ID: "a2", Kind: core.Account, Name: "Savings", Currency: "EUR"},
		{ID: "c0", Kind: core.ExpenseCategory, Name: "Food", Currency: "EUR"},
	} {
		it := it
		h.must(func(r Reply) Command { return CreateItem{Item: it, Reply: r} })
	}
}

func (h *harness) layout() {
	h.do(
		Gesture{Event: drag.FrameChanged{ItemID: "a0", Frame: drag.Rect{X: 0, Y: 0, Width: 100, Height: 100}}},
		Gesture{Event: drag.FrameChanged{ItemID: "a1", Frame: drag.Rect{X: 100, Y: 0, Width: 100, Height: 100}}},
		Gesture{Event: drag.FrameChanged{ItemID: "a2", Frame: drag.Rect{X: 200, Y: 0, Width: 100, Height: 100}}},
		Gesture{Event: drag.FrameChanged{ItemID: "c0", Frame: drag.Rect{X: 0, Y: 200, Width: 100, Height: 100}}},
		Gesture{Event: drag.StripFrameChanged{Frame: drag.Rect{X: 0, Y: 0, Width: 300, Height: 100}, PageCount: 3}},
	)
}

func moved(x, y float64) Command {
	return Gesture{Event: drag.Moved{Location: drag.Point{X: x, Y: y}}}
}

func TestEngine_CreateTransactionAppliesAndPersists(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()

	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
		}, Reply: r}
	})

	if got := h.item("a0").Balance; got != 80 {
		t.Errorf("a0 = %v, want 80", got)
	}
	if got := h.item("c0").Balance; got != 18 {
		t.Errorf("c0 = %v, want 18", got)
	}

	ctx := context.Background()
	txs, _ := h.store.LoadTransactions(ctx)
	if len(txs) != 1 || txs[0].Currency != "USD" || !txs[0].Date.Equal(t0) {
		t.Fatalf("unexpected persisted transactions %+v", txs)
	}
	items, _ := h.store.LoadItems(ctx)
	for _, it := range items {
		if it.ID == "a0" && it.Balance != 80 {
			t.Errorf("persisted a0 = %v, want 80", it.Balance)
		}
	}
	if h.analytics.count(core.EventTransactionCreated) != 1 || h.analytics.count(core.EventItemCreated) != 4 {
		t.Errorf("unexpected analytics %+v", h.analytics.events)
	}
}

func TestEngine_CreateTransactionResolvesLiveRate(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 10, SourceID: "a0", DestinationID: "c0",
		}, Reply: r}
	})
	if got := h.item("c0").Balance; got != 5 {
		t.Fatalf("c0 = %v, want 5 using USD->EUR 0.5", got)
	}
}

func TestEngine_CreateTransactionRejectsInvalidPair(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	var got error
	h.do(CreateTransaction{Transaction: core.WalletTransaction{
		ID: "t1", Amount: 10, Rate: 1, SourceID: "c0", DestinationID: "a0",
	}, Reply: func(err error) { got = err }})
	if !errors.Is(got, core.ErrInvalidTransfer) {
		t.Fatalf("expected ErrInvalidTransfer, got %v", got)
	}
}

func TestEngine_DeleteTransactionReverts(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
		}, Reply: r}
	})
	h.must(func(r Reply) Command { return DeleteTransaction{ID: "t1", Reply: r} })

	if got := h.item("a0").Balance; got != 100 {
		t.Errorf("a0 = %v, want 100", got)
	}
	var state ledger.TxState
	h.engine.Inspect(func(v View) { state = v.TransactionState("t1") })
	if state != ledger.Reverted {
		t.Errorf("state = %v, want reverted", state)
	}
	if txs, _ := h.store.LoadTransactions(context.Background()); len(txs) != 0 {
		t.Errorf("transaction still persisted: %+v", txs)
	}

	var again error
	h.do(DeleteTransaction{ID: "t1", Reply: func(err error) { again = err }})
	if !errors.Is(again, ledger.ErrNotApplied) {
		t.Fatalf("second delete: expected ErrNotApplied, got %v", again)
	}
}

func TestEngine_DeleteItemModes(t *testing.T) {
	tests := []struct {
		name      string
		mode      DeleteMode
		wantErr   error
		wantA0    float64
		wantTxs   int
		wantItems int
	}{
		{"mode required", 0, ErrDeleteModeRequired, 80, 1, 4},
		{"item only keeps history", DeleteItemOnly, nil, 80, 1, 3},
		{"with transactions reverts", DeleteItemAndTransactions, nil, 100, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, memory.New())
			h.seedWallet()
			h.must(func(r Reply) Command {
				return CreateTransaction{Transaction: core.WalletTransaction{
					ID: "t1", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
				}, Reply: r}
			})

			var got error
			h.do(DeleteItem{ID: "c0", Mode: tt.mode, Reply: func(err error) { got = err }})
			if !errors.Is(got, tt.wantErr) {
				t.Fatalf("err = %v, want %v", got, tt.wantErr)
			}
			if a0 := h.item("a0").Balance; a0 != tt.wantA0 {
				t.Errorf("a0 = %v, want %v", a0, tt.wantA0)
			}
			ctx := context.Background()
			txs, _ := h.store.LoadTransactions(ctx)
			items, _ := h.store.LoadItems(ctx)
			if len(txs) != tt.wantTxs || len(items) != tt.wantItems {
				t.Errorf("persisted %d txs and %d items, want %d and %d", len(txs), len(items), tt.wantTxs, tt.wantItems)
			}
		})
	}
}

func TestEngine_DeleteItemKeepsOrderDense(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command { return DeleteItem{ID: "a0", Mode: DeleteItemOnly, Reply: r} })

	items, _ := h.store.LoadItems(context.Background())
	orders := map[string]uint{}
	for _, it := range items {
		orders[it.ID] = it.Order
	}
	if orders["a1"] != 0 || orders["a2"] != 1 {
		t.Fatalf("persisted order not renumbered: %v", orders)
	}
}

func TestEngine_WriteFailureKeepsMemoryState(t *testing.T) {
	store := memory.New()
	h := newHarness(t, store)
	h.seedWallet()
	store.FailWith = errors.New("disk full")

	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 20, Rate: 1, SourceID: "a0", DestinationID: "a1",
		}, Reply: r}
	})
	if got := h.item("a1").Balance; got != 20 {
		t.Fatalf("in-memory state must stand, a1 = %v", got)
	}
	var failures int
	h.engine.Inspect(func(v View) { failures = v.WriteErrors() })
	if failures != 2 {
		t.Fatalf("expected insert and save to fail, got %d", failures)
	}
	if h.analytics.count(core.EventError) != 2 {
		t.Fatalf("expected 2 error events, got %d", h.analytics.count(core.EventError))
	}
}

func TestEngine_LoadRecomputesCategories(t *testing.T) {
	budget := 50.0
	store := memory.New(
		core.WalletItem{ID: "a0", Kind: core.Account, Name: "Cash", Currency: "USD", Balance: 70},
		core.WalletItem{ID: "c0", Kind: core.ExpenseCategory, Name: "Food", Currency: "EUR", Balance: 999, Budget: &budget},
	)
	ctx := context.Background()
	for _, tx := range []core.WalletTransaction{
		{ID: "oct", Date: t0.AddDate(0, 0, -2), Currency: "USD", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0"},
		{ID: "sep", Date: t0.AddDate(0, -1, 0), Currency: "USD", Amount: 10, Rate: 0.9, SourceID: "a0", DestinationID: "c0"},
	} {
		if err := store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	h := newHarness(t, store)
	h.must(func(r Reply) Command { return Load{Reply: r} })

	if got := h.item("c0").Balance; got != 18 {
		t.Fatalf("c0 = %v, want this month's 18", got)
	}
	if got := h.item("a0").Balance; got != 70 {
		t.Fatalf("accounts are trusted as persisted, a0 = %v", got)
	}
	var history []core.WalletTransaction
	h.engine.Inspect(func(v View) { history = v.History("c0") })
	if len(history) != 2 || history[0].ID != "oct" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestEngine_LoadFailureIsReported(t *testing.T) {
	store := memory.New(
		core.WalletItem{ID: "x", Kind: core.Account, Name: "x", Currency: "USD"},
		core.WalletItem{ID: "y", Kind: "bogus", Name: "y", Currency: "USD"},
	)
	h := newHarness(t, store)
	var got error
	h.do(Load{Reply: func(err error) { got = err }})
	if !errors.Is(got, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", got)
	}
	if h.analytics.count(core.EventError) != 1 {
		t.Fatal("load failure must be reported")
	}
}

func TestEngine_MonthRolloverResetsCategories(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
		}, Reply: r}
	})

	h.now = time.Date(2025, 11, 2, 8, 0, 0, 0, time.UTC)
	h.do(Gesture{Event: drag.Foregrounded{}})

	if got := h.item("c0").Balance; got != 0 {
		t.Fatalf("c0 = %v, want 0 in the new month", got)
	}
	if got := h.item("a0").Balance; got != 80 {
		t.Fatalf("accounts keep running balances, a0 = %v", got)
	}
}

func TestEngine_DeleteTransactionFromPreviousMonth(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
		}, Reply: r}
	})

	h.now = time.Date(2025, 11, 2, 8, 0, 0, 0, time.UTC)
	h.do(Gesture{Event: drag.Foregrounded{}})
	h.must(func(r Reply) Command { return DeleteTransaction{ID: "t1", Reply: r} })

	if got := h.item("c0").Balance; got != 0 {
		t.Errorf("c0 = %v, want 0", got)
	}
	if got := h.item("a0").Balance; got != 100 {
		t.Errorf("a0 = %v, want 100", got)
	}
}

func TestEngine_DeleteLoadedTransactionOutsideMonth(t *testing.T) {
	store := memory.New(
		core.WalletItem{ID: "a0", Kind: core.Account, Name: "Cash", Currency: "USD", Balance: 70},
		core.WalletItem{ID: "c0", Kind: core.ExpenseCategory, Name: "Food", Currency: "EUR"},
	)
	ctx := context.Background()
	for _, tx := range []core.WalletTransaction{
		{ID: "oct", Date: t0.AddDate(0, 0, -2), Currency: "USD", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0"},
		{ID: "sep", Date: t0.AddDate(0, -1, 0), Currency: "USD", Amount: 10, Rate: 0.9, SourceID: "a0", DestinationID: "c0"},
	} {
		if err := store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	h := newHarness(t, store)
	h.must(func(r Reply) Command { return Load{Reply: r} })

	h.must(func(r Reply) Command { return DeleteTransaction{ID: "sep", Reply: r} })
	if got := h.item("c0").Balance; got != 18 {
		t.Fatalf("c0 = %v, want 18 after deleting last month's expense", got)
	}
	if got := h.item("a0").Balance; got != 80 {
		t.Fatalf("a0 = %v, want 80", got)
	}

	h.must(func(r Reply) Command { return DeleteTransaction{ID: "oct", Reply: r} })
	if got := h.item("c0").Balance; got != 0 {
		t.Fatalf("c0 = %v, want 0", got)
	}
	if got := h.item("a0").Balance; got != 100 {
		t.Fatalf("a0 = %v, want 100", got)
	}
}

func TestEngine_BackdatedTransferSkipsCategory(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "aug", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
			Date: time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC),
		}, Reply: r}
	})

	if got := h.item("c0").Balance; got != 0 {
		t.Errorf("c0 = %v, want 0 for an expense outside this month", got)
	}
	if got := h.item("a0").Balance; got != 80 {
		t.Errorf("a0 = %v, want 80", got)
	}
	var history []core.WalletTransaction
	h.engine.Inspect(func(v View) { history = v.History("c0") })
	if len(history) != 1 || history[0].ID != "aug" {
		t.Fatalf("unexpected history %+v", history)
	}

	h.must(func(r Reply) Command { return DeleteTransaction{ID: "aug", Reply: r} })
	if got := h.item("c0").Balance; got != 0 {
		t.Errorf("c0 = %v after delete, want 0", got)
	}
	if got := h.item("a0").Balance; got != 100 {
		t.Errorf("a0 = %v after delete, want 100", got)
	}
}

func TestEngine_KindChangeRecomputesBalance(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	for _, tx := range []core.WalletTransaction{
		{ID: "sep", Amount: 30, Rate: 1, SourceID: "a0", DestinationID: "a1", Date: t0.AddDate(0, -1, 0)},
		{ID: "oct", Amount: 20, Rate: 1, SourceID: "a0", DestinationID: "a1"},
	} {
		tx := tx
		h.must(func(r Reply) Command { return CreateTransaction{Transaction: tx, Reply: r} })
	}
	if got := h.item("a1").Balance; got != 50 {
		t.Fatalf("a1 = %v, want running balance 50", got)
	}

	it := h.item("a1")
	it.Kind = core.ExpenseCategory
	h.must(func(r Reply) Command { return UpdateItem{Item: it, Reply: r} })

	got := h.item("a1")
	if got.Kind != core.ExpenseCategory {
		t.Fatalf("kind = %v", got.Kind)
	}
	if got.Balance != 20 {
		t.Fatalf("a1 = %v, want this month's credits 20", got.Balance)
	}
}

func TestEngine_ReportCopiesSections(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
		}, Reply: r}
	})

	var first spending.Report
	h.do(Report{Reply: func(r spending.Report, err error) { first = r }})
	if len(first.Sections) != 1 {
		t.Fatalf("expected one section, got %+v", first.Sections)
	}
	first.Sections[0].Amount = -1
	first.Sections[0].Category.Name = "mutated"

	var second spending.Report
	h.do(Report{Reply: func(r spending.Report, err error) { second = r }})
	if h.engine.reports.ItemCount() != 1 {
		t.Fatalf("expected the memo to serve the second report")
	}
	if s := second.Sections[0]; s.Amount != 20 || s.Category.Name != "Food" {
		t.Fatalf("memoized report was mutated through a caller: %+v", s)
	}
}

func TestEngine_DragProposesTransfer(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.layout()

	h.do(
		Gesture{Event: drag.Started{ItemID: "a0", Location: drag.Point{X: 50, Y: 50}, At: t0}},
		moved(50, 250),
		Gesture{Event: drag.Released{At: t0.Add(time.Second)}},
	)

	if len(h.proposals) != 1 {
		t.Fatalf("expected one proposal, got %d", len(h.proposals))
	}
	p := h.proposals[0]
	if p.Source.ID != "a0" || p.Destination.ID != "c0" || p.Rate != 0.5 || p.RateFallback {
		t.Fatalf("unexpected proposal %+v", p)
	}
	if h.analytics.count(core.EventDragCompleted) != 1 {
		t.Fatal("expected drag_completed event")
	}
	var idle bool
	h.engine.Inspect(func(v View) { idle = v.Drag().Idle() })
	if !idle {
		t.Fatal("release must return to idle")
	}
}

func TestEngine_LongPressReordersLive(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.layout()

	h.do(Gesture{Event: drag.Started{ItemID: "a2", Location: drag.Point{X: 250, Y: 50}, At: t0}})
	h.clock.fire()
	h.drain()
	h.do(moved(110, 50))

	var order []string
	h.engine.Inspect(func(v View) {
		for _, it := range v.Accounts() {
			order = append(order, it.ID)
		}
	})
	if len(order) != 3 || order[0] != "a0" || order[1] != "a2" || order[2] != "a1" {
		t.Fatalf("order = %v, want [a0 a2 a1]", order)
	}

	items, _ := h.store.LoadItems(context.Background())
	for _, it := range items {
		if it.ID == "a2" && it.Order != 1 {
			t.Fatalf("persisted a2 order = %d, want 1", it.Order)
		}
	}

	h.do(Gesture{Event: drag.Released{At: t0.Add(2 * time.Second)}})
	if len(h.proposals) != 0 {
		t.Fatal("reordering release must not propose a transfer")
	}
}

func TestEngine_ReleasedPressNeverReorders(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.layout()

	h.do(
		Gesture{Event: drag.Started{ItemID: "a2", Location: drag.Point{X: 250, Y: 50}, At: t0}},
		Gesture{Event: drag.Released{At: t0.Add(100 * time.Millisecond)}},
	)
	h.clock.fire()
	h.drain()

	for _, e := range h.effects {
		if mc, ok := e.(drag.ModeChanged); ok && mc.Mode == drag.Reordering {
			t.Fatal("late long-press timer switched to reordering")
		}
	}
}

func TestEngine_AutoScrollSingleFlight(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.layout()
	scrollDelay := drag.DefaultConfig().ScrollDelay

	pending := func() bool {
		var p bool
		h.engine.Inspect(func(v View) { p = v.AutoScrollPending() })
		return p
	}

	h.do(Gesture{Event: drag.Started{ItemID: "a1", Location: drag.Point{X: 150, Y: 50}, At: t0}})
	h.do(moved(280, 50))
	if !pending() {
		t.Fatal("edge sample must schedule a scroll")
	}
	h.do(moved(150, 50))
	if pending() {
		t.Fatal("non-edge sample must cancel the scroll")
	}
	h.do(moved(20, 50), moved(290, 50))
	if got := h.clock.armed(scrollDelay); got != 1 {
		t.Fatalf("expected exactly one armed scroll, got %d", got)
	}

	h.clock.fire()
	h.drain()
	var page int
	h.engine.Inspect(func(v View) { page = v.Drag().Page })
	if page != 1 {
		t.Fatalf("page = %d, want 1 from the last edge sample", page)
	}
	if !pending() {
		t.Fatal("pointer resting at the edge keeps scrolling")
	}

	h.do(Gesture{Event: drag.Backgrounded{}})
	if pending() {
		t.Fatal("backgrounding must cancel the scroll")
	}
}

func TestEngine_ReportIsMemoized(t *testing.T) {
	h := newHarness(t, memory.New())
	h.seedWallet()
	h.must(func(r Reply) Command {
		return CreateTransaction{Transaction: core.WalletTransaction{
			ID: "t1", Amount: 20, Rate: 0.9, SourceID: "a0", DestinationID: "c0",
		}, Reply: r}
	})

	var first, second spending.Report
	h.do(
		Report{Reply: func(r spending.Report, err error) { first = r }},
		Report{Reply: func(r spending.Report, err error) { second = r }},
	)
	if h.engine.reports.ItemCount() != 1 {
		t.Fatalf("expected one cached report, got %d", h.engine.reports.ItemCount())
	}
	if !first.HasData || first.Total != 20 || second.Total != first.Total || first.Currency != "USD" {
		t.Fatalf("unexpected report %+v", first)
	}

	var eur spending.Report
	h.do(Report{Currency: "EUR", Period: spending.Week, Reply: func(r spending.Report, err error) { eur = r }})
	if eur.Total != 10 {
		t.Fatalf("EUR total = %v, want 10", eur.Total)
	}

	h.must(func(r Reply) Command { return DeleteTransaction{ID: "t1", Reply: r} })
	var after spending.Report
	h.do(Report{Reply: func(r spending.Report, err error) { after = r }})
	if after.HasData {
		t.Fatal("ledger change must invalidate the memo")
	}
}

type fakeRefresher struct {
	res provider.Result
	err error
}

func (f fakeRefresher) Refresh(context.Context) (provider.Result, error) {
	return f.res, f.err
}

func TestEngine_RefreshRates(t *testing.T) {
	jpy, err := rates.NewTable("USD",
		[]core.Currency{{Code: "USD"}, {Code: "JPY"}},
		[]core.ConversionRate{{Source: "USD", Destination: "JPY", Rate: 150}})
	if err != nil {
		t.Fatalf("table: %v", err)
	}

	t.Run("no refresher", func(t *testing.T) {
		h := newHarness(t, memory.New())
		var got error
		h.do(RefreshRates{Reply: func(err error) { got = err }})
		if !errors.Is(got, ErrNoRateSource) {
			t.Fatalf("expected ErrNoRateSource, got %v", got)
		}
	})

	t.Run("snapshot replaces table", func(t *testing.T) {
		h := newHarness(t, memory.New(), WithRefresher(fakeRefresher{res: provider.Result{
			Table: jpy, Origin: provider.OriginSnapshot, Err: errors.New("offline"),
		}}))
		h.must(func(r Reply) Command { return RefreshRates{Reply: r} })
		var tbl *rates.Table
		h.engine.Inspect(func(v View) { tbl = v.Rates() })
		if !tbl.Has("JPY") || tbl.Has("EUR") {
			t.Fatal("table must be replaced wholesale")
		}
		if h.analytics.count(core.EventRatesRefreshed) != 1 {
			t.Fatal("expected rates_refreshed event")
		}
	})

	t.Run("failure keeps table", func(t *testing.T) {
		h := newHarness(t, memory.New(), WithRefresher(fakeRefresher{err: provider.ErrNoRates}))
		var got error
		h.do(RefreshRates{Reply: func(err error) { got = err }})
		if !errors.Is(got, provider.ErrNoRates) {
			t.Fatalf("expected ErrNoRates, got %v", got)
		}
		var tbl *rates.Table
		h.engine.Inspect(func(v View) { tbl = v.Rates() })
		if !tbl.Has("EUR") {
			t.Fatal("current table must survive a failed refresh")
		}
	})
}

func TestEngine_RunCallQuerySync(t *testing.T) {
	store := memory.New()
	e := New(store, log.Discard(), WithClock(func() time.Time { return t0 }), WithAnalytics(&recAnalytics{}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	err := e.Call(callCtx, func(r Reply) Command {
		return CreateItem{Item: core.WalletItem{Kind: core.Account, Name: "Cash", Currency: "USD"}, Reply: r}
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	var accounts []core.WalletItem
	if err := e.Query(callCtx, func(v View) { accounts = v.Accounts() }); err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID == "" {
		t.Fatalf("unexpected accounts %+v", accounts)
	}

	if err := e.Sync(callCtx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if items, _ := store.LoadItems(context.Background()); len(items) != 1 {
		t.Fatalf("expected item persisted after sync, got %d", len(items))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestParseDeleteMode(t *testing.T) {
	tests := []struct {
		in      string
		want    DeleteMode
		wantErr bool
	}{
		{"item-only", DeleteItemOnly, false},
		{"with-transactions", DeleteItemAndTransactions, false},
		{"", 0, true},
		{"everything", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDeleteMode(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("ParseDeleteMode(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}
