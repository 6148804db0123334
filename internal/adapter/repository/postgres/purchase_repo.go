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

// PurchaseRepository implements usecase.PurchaseRepository.
type PurchaseRepository struct {
	queries *generated.Queries
}

// NewPurchaseRepository creates a new PurchaseRepository.
func NewPurchaseRepository(db generated.DBTX) *PurchaseRepository {
	return &PurchaseRepository{queries: generated.New(db)}
}

// Create records a purchase in the same tx as its debit.
func (r *PurchaseRepository) Create(ctx context.Context, tx usecase.Transaction, purchase *domain.Purchase) error {
	queries := queriesFor(tx)

	return queries.CreatePurchase(ctx, generated.CreatePurchaseParams{
		ID:           purchase.ID,
		UserID:       purchase.UserID,
		EventID:      purchase.EventID,
		Quantity:     int32(purchase.Quantity),
		UnitPrice:    decimalToNumeric(purchase.UnitPrice),
		Fee:          decimalToNumeric(purchase.Fee),
		Total:        decimalToNumeric(purchase.Total),
		Currency:     string(purchase.Currency),
		Status:       string(purchase.Status),
		DebitEntryID: purchase.DebitEntryID,
		FailureCause: purchase.FailureCause,
		BuyerName:    purchase.Buyer.Name,
		BuyerEmail:   purchase.Buyer.Email,
		BuyerPhone:   purchase.Buyer.Phone,
		CreatedAt:    timeToPgTimestamptz(purchase.CreatedAt),
		UpdatedAt:    timeToPgTimestamptz(purchase.UpdatedAt),
	})
}

// GetByID retrieves a purchase by ID.
func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	return purchaseOrNotFound(r.queries.GetPurchaseByID(ctx, id))
}

// GetByIDForUpdate retrieves a purchase with a FOR UPDATE lock.
func (r *PurchaseRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Purchase, error) {
	queries := queriesFor(tx)

	return purchaseOrNotFound(queries.GetPurchaseByIDForUpdate(ctx, id))
}

// UpdateStatus moves a purchase to status, recording cause when it was compensated.
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.PurchaseStatus, cause string, updatedAt time.Time) error {
	queries := queriesFor(tx)

	n, err := queries.UpdatePurchaseStatus(ctx, generated.UpdatePurchaseStatusParams{
		ID:           id,
		Status:       string(status),
		FailureCause: cause,
		UpdatedAt:    timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPurchaseNotFound
	}

	return nil
}

// ListStale returns purchases stuck in status since before olderThan, oldest first.
func (r *PurchaseRepository) ListStale(ctx context.Context, status domain.PurchaseStatus, olderThan time.Time, limit int) ([]*domain.Purchase, error) {
	rows, err := r.queries.ListStalePurchases(ctx, generated.ListStalePurchasesParams{
		Status:    string(status),
		CreatedAt: timeToPgTimestamptz(olderThan),
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, err
	}

	purchases := make([]*domain.Purchase, 0, len(rows))
	for _, row := range rows {
		purchases = append(purchases, rowToPurchase(row))
	}

	return purchases, nil
}

func purchaseOrNotFound(row generated.Purchase, err error) (*domain.Purchase, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPurchaseNotFound
		}

		return nil, err
	}

	return rowToPurchase(row), nil
}

func rowToPurchase(row generated.Purchase) *domain.Purchase {
	return &domain.Purchase{
		ID:           row.ID,
		UserID:       row.UserID,
		EventID:      row.EventID,
		Quantity:     int(row.Quantity),
		UnitPrice:    numericToDecimal(row.UnitPrice),
		Fee:          numericToDecimal(row.Fee),
		Total:        numericToDecimal(row.Total),
		Currency:     domain.Currency(row.Currency),
		Status:       domain.PurchaseStatus(row.Status),
		DebitEntryID: row.DebitEntryID,
		FailureCause: row.FailureCause,
		Buyer: domain.BuyerInfo{
			Name:  row.BuyerName,
			Email: row.BuyerEmail,
			Phone: row.BuyerPhone,
		},
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}
