package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createLedgerEntry = `-- name: CreateLedgerEntry :exec
INSERT INTO ledger_entries (id, user_id, type, amount, currency, balance_after, description, reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreateLedgerEntryParams struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Type         string             `json:"type"`
	Amount       pgtype.Numeric     `json:"amount"`
	Currency     string             `json:"currency"`
	BalanceAfter pgtype.Numeric     `json:"balance_after"`
	Description  string             `json:"description"`
	Reference    string             `json:"reference"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateLedgerEntry(ctx context.Context, arg CreateLedgerEntryParams) error {
	_, err := q.db.Exec(ctx, createLedgerEntry,
		arg.ID,
		arg.UserID,
		arg.Type,
		arg.Amount,
		arg.Currency,
		arg.BalanceAfter,
		arg.Description,
		arg.Reference,
		arg.CreatedAt,
	)
	return err
}

const getLedgerEntryByID = `-- name: GetLedgerEntryByID :one
SELECT id, user_id, type, amount, currency, balance_after, description, reference, created_at
FROM ledger_entries
WHERE id = $1
`

func (q *Queries) GetLedgerEntryByID(ctx context.Context, id string) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getLedgerEntryByID, id)
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.BalanceAfter,
		&i.Description,
		&i.Reference,
		&i.CreatedAt,
	)
	return i, err
}

const getLedgerEntriesByUser = `-- name: GetLedgerEntriesByUser :many
SELECT id, user_id, type, amount, currency, balance_after, description, reference, created_at
FROM ledger_entries
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type GetLedgerEntriesByUserParams struct {
	UserID string `json:"user_id"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

func (q *Queries) GetLedgerEntriesByUser(ctx context.Context, arg GetLedgerEntriesByUserParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, getLedgerEntriesByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Type,
			&i.Amount,
			&i.Currency,
			&i.BalanceAfter,
			&i.Description,
			&i.Reference,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumLedgerEntriesByUser = `-- name: SumLedgerEntriesByUser :many
SELECT currency, COALESCE(SUM(amount), 0)::NUMERIC AS total
FROM ledger_entries
WHERE user_id = $1
GROUP BY currency
`

type SumLedgerEntriesByUserRow struct {
	Currency string         `json:"currency"`
	Total    pgtype.Numeric `json:"total"`
}

func (q *Queries) SumLedgerEntriesByUser(ctx context.Context, userID string) ([]SumLedgerEntriesByUserRow, error) {
	rows, err := q.db.Query(ctx, sumLedgerEntriesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumLedgerEntriesByUserRow{}
	for rows.Next() {
		var i SumLedgerEntriesByUserRow
		if err := rows.Scan(&i.Currency, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
