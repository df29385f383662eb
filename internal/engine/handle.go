package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"walletflow/internal/core"
	"walletflow/internal/log"
	"walletflow/internal/ports"
	"walletflow/internal/rates/provider"
	"walletflow/internal/spending"
)

// handle runs on the owner loop. It never blocks.
func (e *Engine) handle(ctx context.Context, cmd Command) {
	e.rollover(ctx)

	switch c := cmd.(type) {
	case Load:
		e.load(c)
	case loaded:
		c.reply.send(e.restore(ctx, c))
	case CreateItem:
		c.Reply.send(e.createItem(ctx, c.Item))
	case UpdateItem:
		c.Reply.send(e.updateItem(ctx, c.Item))
	case DeleteItem:
		c.Reply.send(e.deleteItem(ctx, c.ID, c.Mode))
	case CreateTransaction:
		c.Reply.send(e.createTransaction(ctx, c.Transaction))
	case DeleteTransaction:
		c.Reply.send(e.deleteTransaction(ctx, c.ID))
	case Reorder:
		e.reorder(ctx, c.Kind, c.DraggedID, c.TargetID, c.PlaceBefore)
		c.Reply.send(nil)
	case Gesture:
		e.gestureEvent(ctx, c.Event)
	case RecomputeCategories:
		e.recomputeCategories(ctx)
	case RefreshRates:
		e.refreshRates(c.Reply)
	case ratesRefreshed:
		c.reply.send(e.applyRates(ctx, c.result, c.err))
	case Report:
		rep, err := e.report(c.Period, c.Currency)
		if c.Reply != nil {
			c.Reply(rep, err)
		}
	case Inspect:
		c.Fn(View{e: e})
	case persisted:
		e.written(ctx, c)
	case awaitWrites:
		e.awaitWrites(c.done)
	default:
		e.logger.WarnContext(ctx, "Unknown command", log.FieldCommand, fmt.Sprintf("%T", cmd))
	}
}

func (e *Engine) load(c Load) {
	p := e.persistence
	e.sched.Go(func(ctx context.Context) []Command {
		items, err := p.LoadItems(ctx)
		if err != nil {
			return []Command{loaded{err: fmt.Errorf("load items: %w", err), reply: c.Reply}}
		}
		txs, err := p.LoadTransactions(ctx)
		if err != nil {
			return []Command{loaded{err: fmt.Errorf("load transactions: %w", err), reply: c.Reply}}
		}
		return []Command{loaded{items: items, txs: txs, reply: c.Reply}}
	})
}

func (e *Engine) restore(ctx context.Context, c loaded) error {
	if c.err != nil {
		e.fail(ctx, "Failed to load wallet", c.err, log.OpLoad)
		return c.err
	}
	if err := e.store.Restore(c.items, c.txs); err != nil {
		e.fail(ctx, "Persisted wallet is inconsistent", err, log.OpLoad)
		return err
	}
	e.logger.InfoContext(ctx, "Wallet loaded",
		log.FieldOperation, log.OpLoad,
		"items", len(c.items),
		"transactions", len(c.txs))
	e.recomputeCategories(ctx)
	return nil
}

// rollover recomputes category balances the first time a command runs in a
// new calendar month.
func (e *Engine) rollover(ctx context.Context) {
	if m := monthOf(e.now()); !m.Equal(e.month) {
		e.month = m
		e.logger.InfoContext(ctx, "Spending period rolled over", log.FieldPeriod, m.Format("2006-01"))
		e.recomputeCategories(ctx)
	}
}

func (e *Engine) recomputeCategories(ctx context.Context) {
	from, to := spending.MonthWindow{}.Bounds(e.now())
	changed := e.proc.RecomputeCategoryBalances(from, to)
	if len(changed) == 0 {
		return
	}
	e.logger.DebugContext(ctx, "Category balances recomputed", log.FieldCount, len(changed))
	e.saveItems(changed)
}

func (e *Engine) createItem(ctx context.Context, item core.WalletItem) error {
	if item.ID == "" {
		item.ID = core.NewID()
	} else if _, exists := e.store.Item(item.ID); exists {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	if item.Kind == core.ExpenseCategory {
		item.Balance = 0
	}
	created, err := e.store.UpsertItem(item)
	if err != nil {
		return err
	}
	e.saveItems([]core.WalletItem{created})
	e.structured.LogItem(ctx, "created", created.ID, created.Kind.String(), created.Currency)
	e.track(core.NewEvent(core.EventItemCreated, e.now(),
		"item_id", created.ID, "kind", created.Kind.String(), "currency", created.Currency))
	return nil
}

func (e *Engine) updateItem(ctx context.Context, item core.WalletItem) error {
	current, ok := e.store.Item(item.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, item.ID)
	}
	item.Balance = current.Balance
	updated, err := e.store.UpsertItem(item)
	if err != nil {
		return err
	}
	toSave := []core.WalletItem{updated}
	if updated.Kind != current.Kind {
		// a former account must not carry its running balance into the
		// category collection; recomputing saves every changed category
		e.recomputeCategories(ctx)
		updated, _ = e.store.Item(updated.ID)
		toSave = []core.WalletItem{updated}
		// the old collection was renumbered
		toSave = append(toSave, e.store.Items(current.Kind)...)
	}
	e.saveItems(toSave)
	e.structured.LogItem(ctx, "updated", updated.ID, updated.Kind.String(), updated.Currency)
	return nil
}

func (e *Engine) deleteItem(ctx context.Context, id string, mode DeleteMode) error {
	if !mode.IsValid() {
		return ErrDeleteModeRequired
	}
	item, ok := e.store.Item(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	var removedTxs []string
	touched := map[string]core.WalletItem{}
	if mode == DeleteItemAndTransactions {
		for _, tx := range e.store.TransactionsTouching(id) {
			res, err := e.proc.Revert(tx.ID)
			if err != nil {
				e.logger.WarnContext(ctx, "Skipping transaction during item delete",
					log.FieldTransactionID, tx.ID, log.FieldError, err)
				continue
			}
			removedTxs = append(removedTxs, tx.ID)
			for _, it := range res.Updated() {
				if it.ID != id {
					touched[it.ID] = it
				}
			}
		}
	}

	if _, ok := e.store.RemoveItem(id); !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	if len(removedTxs) > 0 {
		e.persist(log.OpDelete, func(ctx context.Context, p ports.Persistence) error {
			return p.DeleteTransactions(ctx, removedTxs)
		})
	}
	// the rest of the kind-collection was renumbered
	toSave := e.store.Items(item.Kind)
	for _, it := range touched {
		if it.Kind != item.Kind {
			toSave = append(toSave, it)
		}
	}
	e.saveItems(toSave)
	e.persist(log.OpDelete, func(ctx context.Context, p ports.Persistence) error {
		return p.DeleteItem(ctx, id)
	})

	e.logger.InfoContext(ctx, "Wallet item deleted",
		log.FieldItemID, id,
		log.FieldDeleteMode, mode.String(),
		log.FieldCount, len(removedTxs))
	e.track(core.NewEvent(core.EventItemDeleted, e.now(),
		"item_id", id, "kind", item.Kind.String(), "mode", mode.String(),
		"transactions", strconv.Itoa(len(removedTxs))))
	return nil
}

func (e *Engine) createTransaction(ctx context.Context, tx core.WalletTransaction) error {
	if tx.ID == "" {
		tx.ID = core.NewID()
	}
	if tx.Date.IsZero() {
		tx.Date = e.now()
	}
	src, okSrc := e.store.Item(tx.SourceID)
	dst, okDst := e.store.Item(tx.DestinationID)
	if tx.Currency == "" && okSrc {
		tx.Currency = src.Currency
	}
	if tx.Rate == 0 && okSrc && okDst {
		rate, fallback := e.table.RateOrFallback(src.Currency, dst.Currency)
		if fallback {
			e.logger.WarnContext(ctx, "No conversion rate, using 1.0",
				log.FieldSourceID, src.ID,
				log.FieldDestinationID, dst.ID,
				log.FieldFallback, true)
		}
		tx.Rate = rate
	}

	res, err := e.proc.Apply(tx)
	if err != nil {
		return err
	}
	if res.Partial() {
		e.logger.WarnContext(ctx, "Transaction applied partially",
			log.FieldTransactionID, tx.ID,
			log.FieldSourceID, tx.SourceID,
			log.FieldDestinationID, tx.DestinationID)
	}
	e.persist(log.OpInsert, func(ctx context.Context, p ports.Persistence) error {
		return p.InsertTransaction(ctx, tx)
	})
	e.saveItems(res.Updated())

	e.structured.LogTransaction(ctx, log.OpApply, tx.ID, tx.SourceID, tx.DestinationID, tx.Amount, tx.Rate, tx.Currency)
	e.track(core.NewEvent(core.EventTransactionCreated, e.now(),
		"transaction_id", tx.ID, "currency", tx.Currency))
	return nil
}

func (e *Engine) deleteTransaction(ctx context.Context, id string) error {
	tx, _ := e.store.Transaction(id)
	res, err := e.proc.Revert(id)
	if err != nil {
		return err
	}
	e.persist(log.OpDelete, func(ctx context.Context, p ports.Persistence) error {
		return p.DeleteTransactions(ctx, []string{id})
	})
	e.saveItems(res.Updated())

	e.structured.LogTransaction(ctx, log.OpRevert, tx.ID, tx.SourceID, tx.DestinationID, tx.Amount, tx.Rate, tx.Currency)
	e.track(core.NewEvent(core.EventTransactionDeleted, e.now(), "transaction_id", id))
	return nil
}

// reorder is a no-op when the ids are equal or unknown.
func (e *Engine) reorder(ctx context.Context, kind core.ItemKind, draggedID, targetID string, placeBefore bool) {
	if !e.store.Reorder(kind, draggedID, targetID, placeBefore) {
		return
	}
	e.logger.DebugContext(ctx, "Items reordered",
		log.FieldOperation, log.OpReorder,
		log.FieldItemID, draggedID,
		log.FieldItemKind, kind.String())
	e.saveItems(e.store.Items(kind))
}

func (e *Engine) refreshRates(reply Reply) {
	if e.refresher == nil {
		reply.send(ErrNoRateSource)
		return
	}
	r := e.refresher
	e.sched.Go(func(ctx context.Context) []Command {
		res, err := r.Refresh(ctx)
		return []Command{ratesRefreshed{result: res, err: err, reply: reply}}
	})
}

// applyRates swaps the table wholesale. Failures keep the current table.
func (e *Engine) applyRates(ctx context.Context, res provider.Result, err error) error {
	switch {
	case errors.Is(err, provider.ErrThrottled):
		e.logger.DebugContext(ctx, "Rates refresh throttled")
		return err
	case err != nil:
		e.logger.WarnContext(ctx, "Rates unavailable, keeping current table",
			log.FieldOperation, log.OpRefresh, log.FieldError, err)
		return err
	case res.Table == nil:
		return provider.ErrNoRates
	}
	if res.Origin == provider.OriginSnapshot {
		e.logger.WarnContext(ctx, "Using last known rates",
			log.FieldOperation, log.OpRefresh,
			"fetched_at", res.FetchedAt,
			log.FieldError, res.Err)
	}
	e.table = res.Table
	e.ratesGen++
	e.track(core.NewEvent(core.EventRatesRefreshed, e.now(),
		"origin", string(res.Origin), "currencies", strconv.Itoa(len(res.Table.Currencies()))))
	return nil
}

// fail logs an error and reports it to analytics.
func (e *Engine) fail(ctx context.Context, msg string, err error, op string) {
	e.structured.LogError(ctx, msg, err, log.ComponentEngine, op, nil)
	e.track(core.NewEvent(core.EventError, e.now(), "operation", op, "error", err.Error()))
}

// track sends an analytics event off the owner loop.
func (e *Engine) track(ev core.Event) {
	a := e.analytics
	e.sched.Go(func(ctx context.Context) []Command {
		a.Track(ctx, ev)
		return nil
	})
}
