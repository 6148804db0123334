package generated

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const purchaseColumns = `id, user_id, event_id, quantity, unit_price, fee, total, currency, status, debit_entry_id,
    failure_cause, buyer_name, buyer_email, buyer_phone, created_at, updated_at`

const createPurchase = `-- name: CreatePurchase :exec
INSERT INTO purchases (` + purchaseColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

type CreatePurchaseParams struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	EventID      string             `json:"event_id"`
	Quantity     int32              `json:"quantity"`
	UnitPrice    pgtype.Numeric     `json:"unit_price"`
	Fee          pgtype.Numeric     `json:"fee"`
	Total        pgtype.Numeric     `json:"total"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	DebitEntryID string             `json:"debit_entry_id"`
	FailureCause string             `json:"failure_cause"`
	BuyerName    string             `json:"buyer_name"`
	BuyerEmail   string             `json:"buyer_email"`
	BuyerPhone   string             `json:"buyer_phone"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreatePurchase(ctx context.Context, arg CreatePurchaseParams) error {
	_, err := q.db.Exec(ctx, createPurchase,
		arg.ID,
		arg.UserID,
		arg.EventID,
		arg.Quantity,
		arg.UnitPrice,
		arg.Fee,
		arg.Total,
		arg.Currency,
		arg.Status,
		arg.DebitEntryID,
		arg.FailureCause,
		arg.BuyerName,
		arg.BuyerEmail,
		arg.BuyerPhone,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getPurchaseByID = `-- name: GetPurchaseByID :one
SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1
`

func (q *Queries) GetPurchaseByID(ctx context.Context, id string) (Purchase, error) {
	return scanPurchase(q.db.QueryRow(ctx, getPurchaseByID, id))
}

const getPurchaseByIDForUpdate = `-- name: GetPurchaseByIDForUpdate :one
SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetPurchaseByIDForUpdate(ctx context.Context, id string) (Purchase, error) {
	return scanPurchase(q.db.QueryRow(ctx, getPurchaseByIDForUpdate, id))
}

const updatePurchaseStatus = `-- name: UpdatePurchaseStatus :execrows
UPDATE purchases
SET status = $2, failure_cause = $3, updated_at = $4
WHERE id = $1
`

type UpdatePurchaseStatusParams struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	FailureCause string             `json:"failure_cause"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdatePurchaseStatus(ctx context.Context, arg UpdatePurchaseStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updatePurchaseStatus,
		arg.ID,
		arg.Status,
		arg.FailureCause,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listStalePurchases = `-- name: ListStalePurchases :many
SELECT ` + purchaseColumns + ` FROM purchases
WHERE status = $1 AND created_at < $2
ORDER BY created_at
LIMIT $3
`

type ListStalePurchasesParams struct {
	Status    string             `json:"status"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	Limit     int32              `json:"limit"`
}

func (q *Queries) ListStalePurchases(ctx context.Context, arg ListStalePurchasesParams) ([]Purchase, error) {
	rows, err := q.db.Query(ctx, listStalePurchases, arg.Status, arg.CreatedAt, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Purchase{}
	for rows.Next() {
		i, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var i Purchase
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.EventID,
		&i.Quantity,
		&i.UnitPrice,
		&i.Fee,
		&i.Total,
		&i.Currency,
		&i.Status,
		&i.DebitEntryID,
		&i.FailureCause,
		&i.BuyerName,
		&i.BuyerEmail,
		&i.BuyerPhone,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
