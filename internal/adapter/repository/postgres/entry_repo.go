package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/postgres/generated"
	"github.com/iho/boxoffice/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create appends an entry within tx.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	queries := queriesFor(tx)

	return queries.CreateLedgerEntry(ctx, generated.CreateLedgerEntryParams{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Type:         string(entry.Type),
		Amount:       decimalToNumeric(entry.Amount),
		Currency:     string(entry.Currency),
		BalanceAfter: decimalToNumeric(entry.BalanceAfter),
		Description:  entry.Description,
		Reference:    entry.Reference,
		CreatedAt:    timeToPgTimestamptz(entry.CreatedAt),
	})
}

// GetByID retrieves an entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row, err := r.queries.GetLedgerEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
		}

		return nil, err
	}

	return rowToEntry(row), nil
}

// ListByUser returns a user's entries, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.queries.GetLedgerEntriesByUser(ctx, generated.GetLedgerEntriesByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}

	return entries, nil
}

// SumByUser totals a user's entries per currency.
func (r *EntryRepository) SumByUser(ctx context.Context, userID string) (map[domain.Currency]decimal.Decimal, error) {
	rows, err := r.queries.SumLedgerEntriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sums := make(map[domain.Currency]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[domain.Currency(row.Currency)] = numericToDecimal(row.Total)
	}

	return sums, nil
}

func rowToEntry(row generated.LedgerEntry) *domain.Entry {
	return &domain.Entry{
		ID:           row.ID,
		UserID:       row.UserID,
		Type:         domain.EntryType(row.Type),
		Amount:       numericToDecimal(row.Amount),
		Currency:     domain.Currency(row.Currency),
		BalanceAfter: numericToDecimal(row.BalanceAfter),
		Description:  row.Description,
		Reference:    row.Reference,
		CreatedAt:    row.CreatedAt.Time,
	}
}
