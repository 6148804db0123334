package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/postgres/generated"
	"github.com/iho/boxoffice/internal/usecase"
)

// InvoiceRepository implements usecase.InvoiceRepository.
type InvoiceRepository struct {
	queries *generated.Queries
}

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(db generated.DBTX) *InvoiceRepository {
	return &InvoiceRepository{queries: generated.New(db)}
}

// Create stores an invoice the processor has accepted.
func (r *InvoiceRepository) Create(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	queries := queriesFor(tx)

	return queries.CreateInvoice(ctx, generated.CreateInvoiceParams{
		OrderID:           invoice.OrderID,
		UserID:            invoice.UserID,
		Amount:            decimalToNumeric(invoice.Amount),
		Currency:          string(invoice.Currency),
		TargetCrypto:      invoice.TargetCrypto,
		Status:            string(invoice.Status),
		ExternalInvoiceID: invoice.ExternalInvoiceID,
		PaymentUrl:        invoice.PaymentURL,
		ExpiresAt:         timeToPgTimestamptz(invoice.ExpiresAt),
		PaidAt:            optionalTimestamptz(invoice.PaidAt),
		CreatedAt:         timeToPgTimestamptz(invoice.CreatedAt),
		UpdatedAt:         timeToPgTimestamptz(invoice.UpdatedAt),
	})
}

// GetByOrderID retrieves an invoice by its order id.
func (r *InvoiceRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	return invoiceOrNotFound(r.queries.GetInvoiceByOrderID(ctx, orderID))
}

// GetByOrderIDForUpdate retrieves an invoice with a FOR UPDATE lock.
func (r *InvoiceRepository) GetByOrderIDForUpdate(ctx context.Context, tx usecase.Transaction, orderID string) (*domain.Invoice, error) {
	queries := queriesFor(tx)

	return invoiceOrNotFound(queries.GetInvoiceByOrderIDForUpdate(ctx, orderID))
}

// UpdateStatus persists the status, external id and paid time of invoice.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, invoice *domain.Invoice) error {
	queries := queriesFor(tx)

	n, err := queries.UpdateInvoiceStatus(ctx, generated.UpdateInvoiceStatusParams{
		OrderID:           invoice.OrderID,
		Status:            string(invoice.Status),
		ExternalInvoiceID: invoice.ExternalInvoiceID,
		PaidAt:            optionalTimestamptz(invoice.PaidAt),
		UpdatedAt:         timeToPgTimestamptz(invoice.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInvoiceNotFound
	}

	return nil
}

func invoiceOrNotFound(row generated.Invoice, err error) (*domain.Invoice, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}

		return nil, err
	}

	return &domain.Invoice{
		OrderID:           row.OrderID,
		UserID:            row.UserID,
		Amount:            numericToDecimal(row.Amount),
		Currency:          domain.Currency(row.Currency),
		TargetCrypto:      row.TargetCrypto,
		Status:            domain.InvoiceStatus(row.Status),
		ExternalInvoiceID: row.ExternalInvoiceID,
		PaymentURL:        row.PaymentUrl,
		ExpiresAt:         row.ExpiresAt.Time,
		PaidAt:            timestamptzPtr(row.PaidAt),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}, nil
}
