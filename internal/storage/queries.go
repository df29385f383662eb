package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type WalletItem struct {
	ID        string
	SortOrder int64
	Kind      string
	Name      string
	Icon      string
	Currency  string
	Balance   float64
	Budget    sql.NullFloat64
}

type WalletTransaction struct {
	ID            string
	OccurredAt    int64
	Currency      string
	Amount        float64
	Commentary    string
	Rate          float64
	SourceID      string
	DestinationID string
}

const listItems = `-- name: ListItems :many
SELECT id, sort_order, kind, name, icon, currency, balance, budget
FROM wallet_items
ORDER BY kind, sort_order, id
`

func (q *Queries) ListItems(ctx context.Context) ([]WalletItem, error) {
	rows, err := q.db.QueryContext(ctx, listItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WalletItem
	for rows.Next() {
		var i WalletItem
		if err := rows.Scan(&i.ID, &i.SortOrder, &i.Kind, &i.Name, &i.Icon, &i.Currency, &i.Balance, &i.Budget); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertItem = `-- name: UpsertItem :exec
INSERT INTO wallet_items (id, sort_order, kind, name, icon, currency, balance, budget, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (id) DO UPDATE SET
    sort_order = excluded.sort_order,
    kind       = excluded.kind,
    name       = excluded.name,
    icon       = excluded.icon,
    currency   = excluded.currency,
    balance    = excluded.balance,
    budget     = excluded.budget,
    updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertItem(ctx context.Context, arg WalletItem) error {
	_, err := q.db.ExecContext(ctx, upsertItem,
		arg.ID, arg.SortOrder, arg.Kind, arg.Name, arg.Icon, arg.Currency, arg.Balance, arg.Budget)
	return err
}

const deleteItem = `-- name: DeleteItem :execrows
DELETE FROM wallet_items WHERE id = ?
`

func (q *Queries) DeleteItem(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, occurred_at, currency, amount, commentary, rate, source_id, destination_id
FROM wallet_transactions
ORDER BY occurred_at DESC, id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]WalletTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WalletTransaction
	for rows.Next() {
		var i WalletTransaction
		if err := rows.Scan(&i.ID, &i.OccurredAt, &i.Currency, &i.Amount, &i.Commentary, &i.Rate, &i.SourceID, &i.DestinationID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTransaction = `-- name: InsertTransaction :exec
INSERT INTO wallet_transactions (id, occurred_at, currency, amount, commentary, rate, source_id, destination_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransaction(ctx context.Context, arg WalletTransaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID, arg.OccurredAt, arg.Currency, arg.Amount, arg.Commentary, arg.Rate, arg.SourceID, arg.DestinationID)
	return err
}

const deleteTransaction = `-- name: DeleteTransaction :exec
DELETE FROM wallet_transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const getSnapshotMeta = `-- name: GetSnapshotMeta :one
SELECT base, fetched_at FROM rate_snapshots WHERE id = 1
`

func (q *Queries) GetSnapshotMeta(ctx context.Context) (string, int64, error) {
	var base string
	var fetchedAt int64
	err := q.db.QueryRowContext(ctx, getSnapshotMeta).Scan(&base, &fetchedAt)
	return base, fetchedAt, err
}

const putSnapshotMeta = `-- name: PutSnapshotMeta :exec
INSERT INTO rate_snapshots (id, base, fetched_at) VALUES (1, ?, ?)
ON CONFLICT (id) DO UPDATE SET base = excluded.base, fetched_at = excluded.fetched_at
`

func (q *Queries) PutSnapshotMeta(ctx context.Context, base string, fetchedAt int64) error {
	_, err := q.db.ExecContext(ctx, putSnapshotMeta, base, fetchedAt)
	return err
}

const listCurrencies = `-- name: ListCurrencies :many
SELECT code, symbol FROM currencies ORDER BY code
`

func (q *Queries) ListCurrencies(ctx context.Context) ([][2]string, error) {
	rows, err := q.db.QueryContext(ctx, listCurrencies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][2]string
	for rows.Next() {
		var c [2]string
		if err := rows.Scan(&c[0], &c[1]); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const deleteCurrencies = `-- name: DeleteCurrencies :exec
DELETE FROM currencies
`

func (q *Queries) DeleteCurrencies(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteCurrencies)
	return err
}

const insertCurrency = `-- name: InsertCurrency :exec
INSERT INTO currencies (code, symbol) VALUES (?, ?)
`

func (q *Queries) InsertCurrency(ctx context.Context, code, symbol string) error {
	_, err := q.db.ExecContext(ctx, insertCurrency, code, symbol)
	return err
}

type ConversionRate struct {
	Source      string
	Destination string
	Rate        float64
}

const listRates = `-- name: ListRates :many
SELECT source, destination, rate FROM conversion_rates ORDER BY source, destination
`

func (q *Queries) ListRates(ctx context.Context) ([]ConversionRate, error) {
	rows, err := q.db.QueryContext(ctx, listRates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConversionRate
	for rows.Next() {
		var r ConversionRate
		if err := rows.Scan(&r.Source, &r.Destination, &r.Rate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const deleteRates = `-- name: DeleteRates :exec
DELETE FROM conversion_rates
`

func (q *Queries) DeleteRates(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteRates)
	return err
}

const insertRate = `-- name: InsertRate :exec
INSERT INTO conversion_rates (source, destination, rate) VALUES (?, ?, ?)
`

func (q *Queries) InsertRate(ctx context.Context, arg ConversionRate) error {
	_, err := q.db.ExecContext(ctx, insertRate, arg.Source, arg.Destination, arg.Rate)
	return err
}
