package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/postgres/generated"
	"github.com/iho/boxoffice/internal/usecase"
)

// BalanceRepository implements usecase.BalanceRepository.
type BalanceRepository struct {
	queries *generated.Queries
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db generated.DBTX) *BalanceRepository {
	return &BalanceRepository{queries: generated.New(db)}
}

// GetForUpdate creates the wallet row on first use and locks it until tx ends.
func (r *BalanceRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, userID string) (*domain.UserBalance, *domain.LegacyBalance, error) {
	queries := queriesFor(tx)

	err := queries.EnsureUserBalance(ctx, generated.EnsureUserBalanceParams{
		UserID:    userID,
		CreatedAt: timeToPgTimestamptz(time.Now().UTC()),
	})
	if err != nil {
		return nil, nil, err
	}

	row, err := queries.GetUserBalanceForUpdate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	balance, legacy := rowToBalance(row)
	return balance, legacy, nil
}

// Get retrieves a wallet without locking it.
func (r *BalanceRepository) Get(ctx context.Context, userID string) (*domain.UserBalance, *domain.LegacyBalance, error) {
	row, err := r.queries.GetUserBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrBalanceNotFound
		}

		return nil, nil, err
	}

	balance, legacy := rowToBalance(row)
	return balance, legacy, nil
}

// Save writes every bucket and clears any legacy balance.
func (r *BalanceRepository) Save(ctx context.Context, tx usecase.Transaction, balance *domain.UserBalance) error {
	queries := queriesFor(tx)

	return queries.SaveUserBalance(ctx, generated.SaveUserBalanceParams{
		UserID:            balance.UserID,
		Usd:               decimalToNumeric(balance.Amount(domain.USD)),
		Mxn:               decimalToNumeric(balance.Amount(domain.MXN)),
		Brl:               decimalToNumeric(balance.Amount(domain.BRL)),
		Eur:               decimalToNumeric(balance.Amount(domain.EUR)),
		PreferredCurrency: string(balance.PreferredCurrency),
		Version:           balance.Version,
		UpdatedAt:         timeToPgTimestamptz(balance.UpdatedAt),
	})
}

// ListUserIDs pages through every user holding a wallet.
func (r *BalanceRepository) ListUserIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return r.queries.ListBalanceUserIDs(ctx, generated.ListBalanceUserIDsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
}

func rowToBalance(row generated.UserBalance) (*domain.UserBalance, *domain.LegacyBalance) {
	balance := &domain.UserBalance{
		UserID: row.UserID,
		Amounts: map[domain.Currency]decimal.Decimal{
			domain.USD: numericToDecimal(row.Usd),
			domain.MXN: numericToDecimal(row.Mxn),
			domain.BRL: numericToDecimal(row.Brl),
			domain.EUR: numericToDecimal(row.Eur),
		},
		PreferredCurrency: domain.Currency(row.PreferredCurrency),
		Version:           row.Version,
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
	balance.Normalize()

	if !row.LegacyBalance.Valid {
		return balance, nil
	}

	return balance, &domain.LegacyBalance{Amount: numericToDecimal(row.LegacyBalance)}
}
