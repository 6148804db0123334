package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/postgres/generated"
	"github.com/iho/boxoffice/internal/usecase"
)

// TicketRepository implements usecase.TicketRepository.
type TicketRepository struct {
	queries *generated.Queries
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(db generated.DBTX) *TicketRepository {
	return &TicketRepository{queries: generated.New(db)}
}

// Create inserts a ticket within tx.
func (r *TicketRepository) Create(ctx context.Context, tx usecase.Transaction, ticket *domain.Ticket) error {
	queries := queriesFor(tx)

	return queries.CreateTicket(ctx, generated.CreateTicketParams{
		ID:              ticket.ID,
		OwnerUserID:     ticket.OwnerUserID,
		PurchaseID:      ticket.PurchaseID,
		EventID:         ticket.Event.EventID,
		EventTitle:      ticket.Event.Title,
		EventDate:       timeToPgTimestamptz(ticket.Event.Date),
		EventLocation:   ticket.Event.Location,
		EventImageUrl:   ticket.Event.ImageURL,
		QrCode:          ticket.QRCode,
		Price:           decimalToNumeric(ticket.Price),
		Currency:        string(ticket.Currency),
		SeatNumber:      ticket.SeatNumber,
		AttendeeName:    ticket.AttendeeName,
		Status:          string(ticket.Status),
		PurchaseDate:    timeToPgTimestamptz(ticket.PurchaseDate),
		TransferredFrom: optionalText(ticket.TransferredFrom),
		TransferDate:    optionalTimestamptz(ticket.TransferDate),
		UsedAt:          optionalTimestamptz(ticket.UsedAt),
	})
}

// GetByID retrieves a ticket by ID.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return ticketOrNotFound(r.queries.GetTicketByID(ctx, id))
}

// GetByIDForUpdate retrieves a ticket by ID with a FOR UPDATE lock.
func (r *TicketRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Ticket, error) {
	queries := queriesFor(tx)

	return ticketOrNotFound(queries.GetTicketByIDForUpdate(ctx, id))
}

// GetByQRCode retrieves a ticket by its QR code.
func (r *TicketRepository) GetByQRCode(ctx context.Context, qrCode string) (*domain.Ticket, error) {
	return ticketOrNotFound(r.queries.GetTicketByQRCode(ctx, qrCode))
}

// MarkUsed flips the active ticket carrying qrCode to used in a single conditional update.
func (r *TicketRepository) MarkUsed(ctx context.Context, tx usecase.Transaction, qrCode string, usedAt time.Time) (*domain.Ticket, error) {
	queries := queriesFor(tx)

	return ticketOrNotFound(queries.MarkTicketUsed(ctx, generated.MarkTicketUsedParams{
		QrCode: qrCode,
		UsedAt: timeToPgTimestamptz(usedAt),
	}))
}

// MarkTransferred retires an active ticket after its ownership moved to a new row.
func (r *TicketRepository) MarkTransferred(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	queries := queriesFor(tx)

	n, err := queries.MarkTicketTransferred(ctx, generated.MarkTicketTransferredParams{
		ID:           id,
		TransferDate: timeToPgTimestamptz(at),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInvalidState
	}

	return nil
}

// ListByOwner lists a user's tickets, optionally filtered by status.
func (r *TicketRepository) ListByOwner(ctx context.Context, userID string, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	var (
		rows []generated.Ticket
		err  error
	)
	if status == nil {
		rows, err = r.queries.GetTicketsByOwner(ctx, userID)
	} else {
		rows, err = r.queries.GetTicketsByOwnerAndStatus(ctx, generated.GetTicketsByOwnerAndStatusParams{
			OwnerUserID: userID,
			Status:      string(*status),
		})
	}
	if err != nil {
		return nil, err
	}

	return rowsToTickets(rows), nil
}

// ListByPurchase lists the tickets issued by one purchase.
func (r *TicketRepository) ListByPurchase(ctx context.Context, purchaseID string) ([]*domain.Ticket, error) {
	rows, err := r.queries.GetTicketsByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	return rowsToTickets(rows), nil
}

func ticketOrNotFound(row generated.Ticket, err error) (*domain.Ticket, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}

		return nil, err
	}

	return rowToTicket(row), nil
}

func rowsToTickets(rows []generated.Ticket) []*domain.Ticket {
	tickets := make([]*domain.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, rowToTicket(row))
	}
	return tickets
}

func rowToTicket(row generated.Ticket) *domain.Ticket {
	return &domain.Ticket{
		ID:          row.ID,
		OwnerUserID: row.OwnerUserID,
		PurchaseID:  row.PurchaseID,
		Event: domain.EventSnapshot{
			EventID:  row.EventID,
			Title:    row.EventTitle,
			Date:     row.EventDate.Time,
			Location: row.EventLocation,
			ImageURL: row.EventImageUrl,
		},
		QRCode:          row.QrCode,
		Price:           numericToDecimal(row.Price),
		Currency:        domain.Currency(row.Currency),
		SeatNumber:      row.SeatNumber,
		AttendeeName:    row.AttendeeName,
		Status:          domain.TicketStatus(row.Status),
		PurchaseDate:    row.PurchaseDate.Time,
		TransferredFrom: textPtr(row.TransferredFrom),
		TransferDate:    timestamptzPtr(row.TransferDate),
		UsedAt:          timestamptzPtr(row.UsedAt),
	}
}
