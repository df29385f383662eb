package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"walletflow/internal/core"
	"walletflow/internal/log"
	"walletflow/internal/rates"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between the owner and background persists
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadItems implements ports.ItemReader
func (r *SQLiteRepository) LoadItems(ctx context.Context) ([]core.WalletItem, error) {
	rows, err := r.queries.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]core.WalletItem, len(rows))
	for i, row := range rows {
		items[i] = itemFromRow(row)
	}
	return items, nil
}

// LoadTransactions implements ports.TransactionReader
func (r *SQLiteRepository) LoadTransactions(ctx context.Context) ([]core.WalletTransaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	txs := make([]core.WalletTransaction, len(rows))
	for i, row := range rows {
		txs[i] = transactionFromRow(row)
	}
	return txs, nil
}

// SaveItems implements ports.ItemWriter
func (r *SQLiteRepository) SaveItems(ctx context.Context, items []core.WalletItem) error {
	if len(items) == 0 {
		return nil
	}
	err := r.withTx(ctx, func(q *Queries) error {
		for _, it := range items {
			if err := q.UpsertItem(ctx, itemToRow(it)); err != nil {
				return fmt.Errorf("upsert item %s: %w", it.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "Items saved", log.FieldCount, len(items))
	return nil
}

// DeleteItem implements ports.ItemWriter
func (r *SQLiteRepository) DeleteItem(ctx context.Context, id string) error {
	n, err := r.queries.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if n == 0 {
		r.logger.WarnContext(ctx, "Deleted item was not stored", log.FieldItemID, id)
	}
	return nil
}

// InsertTransaction implements ports.TransactionWriter
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.WalletTransaction) error {
	if err := r.queries.InsertTransaction(ctx, transactionToRow(tx)); err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		log.FieldTransactionID, tx.ID,
		log.FieldAmount, tx.Amount,
		log.FieldCurrency, tx.Currency)
	return nil
}

// DeleteTransactions implements ports.TransactionWriter
func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.withTx(ctx, func(q *Queries) error {
		for _, id := range ids {
			if err := q.DeleteTransaction(ctx, id); err != nil {
				return fmt.Errorf("delete transaction %s: %w", id, err)
			}
		}
		return nil
	})
}

// SaveSnapshot implements ports.SnapshotStore. The previous snapshot is
// replaced wholesale.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s rates.Snapshot) error {
	return r.withTx(ctx, func(q *Queries) error {
		if err := q.DeleteCurrencies(ctx); err != nil {
			return fmt.Errorf("clear currencies: %w", err)
		}
		if err := q.DeleteRates(ctx); err != nil {
			return fmt.Errorf("clear rates: %w", err)
		}
		for _, c := range s.Currencies {
			if err := q.InsertCurrency(ctx, c.Code, c.Symbol); err != nil {
				return fmt.Errorf("insert currency %s: %w", c.Code, err)
			}
		}
		for _, cr := range s.Rates {
			if err := q.InsertRate(ctx, ConversionRate{Source: cr.Source, Destination: cr.Destination, Rate: cr.Rate}); err != nil {
				return fmt.Errorf("insert rate %s/%s: %w", cr.Source, cr.Destination, err)
			}
		}
		return q.PutSnapshotMeta(ctx, s.Base, s.FetchedAt.UTC().UnixNano())
	})
}

// LoadSnapshot implements ports.SnapshotStore
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (rates.Snapshot, error) {
	base, fetchedAt, err := r.queries.GetSnapshotMeta(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return rates.Snapshot{}, rates.ErrNoSnapshot
	}
	if err != nil {
		return rates.Snapshot{}, fmt.Errorf("get snapshot meta: %w", err)
	}
	s := rates.Snapshot{Base: base, FetchedAt: time.Unix(0, fetchedAt).UTC()}

	currencies, err := r.queries.ListCurrencies(ctx)
	if err != nil {
		return rates.Snapshot{}, fmt.Errorf("list currencies: %w", err)
	}
	for _, c := range currencies {
		s.Currencies = append(s.Currencies, core.Currency{Code: c[0], Symbol: c[1]})
	}

	rows, err := r.queries.ListRates(ctx)
	if err != nil {
		return rates.Snapshot{}, fmt.Errorf("list rates: %w", err)
	}
	for _, row := range rows {
		s.Rates = append(s.Rates, core.ConversionRate{Source: row.Source, Destination: row.Destination, Rate: row.Rate})
	}
	return s, nil
}

func itemToRow(it core.WalletItem) WalletItem {
	row := WalletItem{
		ID:        it.ID,
		SortOrder: int64(it.Order),
		Kind:      string(it.Kind),
		Name:      it.Name,
		Icon:      it.Icon,
		Currency:  it.Currency,
		Balance:   it.Balance,
	}
	if it.Budget != nil {
		row.Budget = sql.NullFloat64{Float64: *it.Budget, Valid: true}
	}
	return row
}

func itemFromRow(row WalletItem) core.WalletItem {
	it := core.WalletItem{
		ID:       row.ID,
		Order:    uint(row.SortOrder),
		Kind:     core.ItemKind(row.Kind),
		Name:     row.Name,
		Icon:     row.Icon,
		Currency: row.Currency,
		Balance:  row.Balance,
	}
	if row.Budget.Valid {
		b := row.Budget.Float64
		it.Budget = &b
	}
	return it
}

func transactionToRow(tx core.WalletTransaction) WalletTransaction {
	return WalletTransaction{
		ID:            tx.ID,
		OccurredAt:    tx.Date.UTC().UnixNano(),
		Currency:      tx.Currency,
		Amount:        tx.Amount,
		Commentary:    tx.Commentary,
		Rate:          tx.Rate,
		SourceID:      tx.SourceID,
		DestinationID: tx.DestinationID,
	}
}

func transactionFromRow(row WalletTransaction) core.WalletTransaction {
	return core.WalletTransaction{
		ID:            row.ID,
		Date:          time.Unix(0, row.OccurredAt).UTC(),
		Currency:      row.Currency,
		Amount:        row.Amount,
		Commentary:    row.Commentary,
		Rate:          row.Rate,
		SourceID:      row.SourceID,
		DestinationID: row.DestinationID,
	}
}
