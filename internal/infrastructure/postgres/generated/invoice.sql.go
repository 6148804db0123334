package generated

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `order_id, user_id, amount, currency, target_crypto, status, external_invoice_id, payment_url,
    expires_at, paid_at, created_at, updated_at`

const createInvoice = `-- name: CreateInvoice :exec
INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type CreateInvoiceParams struct {
	OrderID           string             `json:"order_id"`
	UserID            string             `json:"user_id"`
	Amount            pgtype.Numeric     `json:"amount"`
	Currency          string             `json:"currency"`
	TargetCrypto      string             `json:"target_crypto"`
	Status            string             `json:"status"`
	ExternalInvoiceID string             `json:"external_invoice_id"`
	PaymentUrl        string             `json:"payment_url"`
	ExpiresAt         pgtype.Timestamptz `json:"expires_at"`
	PaidAt            pgtype.Timestamptz `json:"paid_at"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) error {
	_, err := q.db.Exec(ctx, createInvoice,
		arg.OrderID,
		arg.UserID,
		arg.Amount,
		arg.Currency,
		arg.TargetCrypto,
		arg.Status,
		arg.ExternalInvoiceID,
		arg.PaymentUrl,
		arg.ExpiresAt,
		arg.PaidAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getInvoiceByOrderID = `-- name: GetInvoiceByOrderID :one
SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1
`

func (q *Queries) GetInvoiceByOrderID(ctx context.Context, orderID string) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceByOrderID, orderID))
}

const getInvoiceByOrderIDForUpdate = `-- name: GetInvoiceByOrderIDForUpdate :one
SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1 FOR UPDATE
`

func (q *Queries) GetInvoiceByOrderIDForUpdate(ctx context.Context, orderID string) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceByOrderIDForUpdate, orderID))
}

const updateInvoiceStatus = `-- name: UpdateInvoiceStatus :execrows
UPDATE invoices
SET status = $2, external_invoice_id = $3, paid_at = $4, updated_at = $5
WHERE order_id = $1
`

type UpdateInvoiceStatusParams struct {
	OrderID           string             `json:"order_id"`
	Status            string             `json:"status"`
	ExternalInvoiceID string             `json:"external_invoice_id"`
	PaidAt            pgtype.Timestamptz `json:"paid_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateInvoiceStatus,
		arg.OrderID,
		arg.Status,
		arg.ExternalInvoiceID,
		arg.PaidAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.OrderID,
		&i.UserID,
		&i.Amount,
		&i.Currency,
		&i.TargetCrypto,
		&i.Status,
		&i.ExternalInvoiceID,
		&i.PaymentUrl,
		&i.ExpiresAt,
		&i.PaidAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
