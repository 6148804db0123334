package generated

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ticketColumns = `id, owner_user_id, purchase_id, event_id, event_title, event_date, event_location, event_image_url,
    qr_code, price, currency, seat_number, attendee_name, status, purchase_date, transferred_from, transfer_date, used_at`

const createTicket = `-- name: CreateTicket :exec
INSERT INTO tickets (` + ticketColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`

type CreateTicketParams struct {
	ID              string             `json:"id"`
	OwnerUserID     string             `json:"owner_user_id"`
	PurchaseID      string             `json:"purchase_id"`
	EventID         string             `json:"event_id"`
	EventTitle      string             `json:"event_title"`
	EventDate       pgtype.Timestamptz `json:"event_date"`
	EventLocation   string             `json:"event_location"`
	EventImageUrl   string             `json:"event_image_url"`
	QrCode          string             `json:"qr_code"`
	Price           pgtype.Numeric     `json:"price"`
	Currency        string             `json:"currency"`
	SeatNumber      string             `json:"seat_number"`
	AttendeeName    string             `json:"attendee_name"`
	Status          string             `json:"status"`
	PurchaseDate    pgtype.Timestamptz `json:"purchase_date"`
	TransferredFrom pgtype.Text        `json:"transferred_from"`
	TransferDate    pgtype.Timestamptz `json:"transfer_date"`
	UsedAt          pgtype.Timestamptz `json:"used_at"`
}

func (q *Queries) CreateTicket(ctx context.Context, arg CreateTicketParams) error {
	_, err := q.db.Exec(ctx, createTicket,
		arg.ID,
		arg.OwnerUserID,
		arg.PurchaseID,
		arg.EventID,
		arg.EventTitle,
		arg.EventDate,
		arg.EventLocation,
		arg.EventImageUrl,
		arg.QrCode,
		arg.Price,
		arg.Currency,
		arg.SeatNumber,
		arg.AttendeeName,
		arg.Status,
		arg.PurchaseDate,
		arg.TransferredFrom,
		arg.TransferDate,
		arg.UsedAt,
	)
	return err
}

const getTicketByID = `-- name: GetTicketByID :one
SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1
`

func (q *Queries) GetTicketByID(ctx context.Context, id string) (Ticket, error) {
	return scanTicket(q.db.QueryRow(ctx, getTicketByID, id))
}

const getTicketByIDForUpdate = `-- name: GetTicketByIDForUpdate :one
SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetTicketByIDForUpdate(ctx context.Context, id string) (Ticket, error) {
	return scanTicket(q.db.QueryRow(ctx, getTicketByIDForUpdate, id))
}

const getTicketByQRCode = `-- name: GetTicketByQRCode :one
SELECT ` + ticketColumns + ` FROM tickets WHERE qr_code = $1
`

func (q *Queries) GetTicketByQRCode(ctx context.Context, qrCode string) (Ticket, error) {
	return scanTicket(q.db.QueryRow(ctx, getTicketByQRCode, qrCode))
}

const markTicketUsed = `-- name: MarkTicketUsed :one
UPDATE tickets
SET status = 'used', used_at = $2
WHERE qr_code = $1 AND status = 'active'
RETURNING ` + ticketColumns + `
`

type MarkTicketUsedParams struct {
	QrCode string             `json:"qr_code"`
	UsedAt pgtype.Timestamptz `json:"used_at"`
}

func (q *Queries) MarkTicketUsed(ctx context.Context, arg MarkTicketUsedParams) (Ticket, error) {
	return scanTicket(q.db.QueryRow(ctx, markTicketUsed, arg.QrCode, arg.UsedAt))
}

const markTicketTransferred = `-- name: MarkTicketTransferred :execrows
UPDATE tickets
SET status = 'transferred', transfer_date = $2
WHERE id = $1 AND status = 'active'
`

type MarkTicketTransferredParams struct {
	ID           string             `json:"id"`
	TransferDate pgtype.Timestamptz `json:"transfer_date"`
}

func (q *Queries) MarkTicketTransferred(ctx context.Context, arg MarkTicketTransferredParams) (int64, error) {
	result, err := q.db.Exec(ctx, markTicketTransferred, arg.ID, arg.TransferDate)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getTicketsByOwner = `-- name: GetTicketsByOwner :many
SELECT ` + ticketColumns + ` FROM tickets
WHERE owner_user_id = $1
ORDER BY purchase_date DESC, id DESC
`

func (q *Queries) GetTicketsByOwner(ctx context.Context, ownerUserID string) ([]Ticket, error) {
	rows, err := q.db.Query(ctx, getTicketsByOwner, ownerUserID)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

const getTicketsByOwnerAndStatus = `-- name: GetTicketsByOwnerAndStatus :many
SELECT ` + ticketColumns + ` FROM tickets
WHERE owner_user_id = $1 AND status = $2
ORDER BY purchase_date DESC, id DESC
`

type GetTicketsByOwnerAndStatusParams struct {
	OwnerUserID string `json:"owner_user_id"`
	Status      string `json:"status"`
}

func (q *Queries) GetTicketsByOwnerAndStatus(ctx context.Context, arg GetTicketsByOwnerAndStatusParams) ([]Ticket, error) {
	rows, err := q.db.Query(ctx, getTicketsByOwnerAndStatus, arg.OwnerUserID, arg.Status)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

const getTicketsByPurchase = `-- name: GetTicketsByPurchase :many
SELECT ` + ticketColumns + ` FROM tickets
WHERE purchase_id = $1
ORDER BY id
`

func (q *Queries) GetTicketsByPurchase(ctx context.Context, purchaseID string) ([]Ticket, error) {
	rows, err := q.db.Query(ctx, getTicketsByPurchase, purchaseID)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func scanTicket(row pgx.Row) (Ticket, error) {
	var i Ticket
	err := row.Scan(
		&i.ID,
		&i.OwnerUserID,
		&i.PurchaseID,
		&i.EventID,
		&i.EventTitle,
		&i.EventDate,
		&i.EventLocation,
		&i.EventImageUrl,
		&i.QrCode,
		&i.Price,
		&i.Currency,
		&i.SeatNumber,
		&i.AttendeeName,
		&i.Status,
		&i.PurchaseDate,
		&i.TransferredFrom,
		&i.TransferDate,
		&i.UsedAt,
	)
	return i, err
}

func collectTickets(rows pgx.Rows) ([]Ticket, error) {
	defer rows.Close()
	items := []Ticket{}
	for rows.Next() {
		i, err := scanTicket(rows)
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
