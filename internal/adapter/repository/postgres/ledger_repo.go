package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/postgres/generated"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// CheckConsistency totals every wallet bucket and every entry per currency.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (map[domain.Currency]decimal.Decimal, map[domain.Currency]decimal.Decimal, error) {
	totals, err := r.queries.SumBalancesByCurrency(ctx)
	if err != nil {
		return nil, nil, err
	}

	balances := make(map[domain.Currency]decimal.Decimal, len(domain.SupportedCurrencies))
	for c, n := range map[domain.Currency]pgtype.Numeric{
		domain.USD: totals.TotalUsd,
		domain.MXN: totals.TotalMxn,
		domain.BRL: totals.TotalBrl,
		domain.EUR: totals.TotalEur,
	} {
		d, err := toDecimal(n)
		if err != nil {
			return nil, nil, err
		}
		balances[c] = d
	}

	rows, err := r.queries.SumEntriesByCurrency(ctx)
	if err != nil {
		return nil, nil, err
	}

	entries := make(map[domain.Currency]decimal.Decimal, len(domain.SupportedCurrencies))
	for _, c := range domain.SupportedCurrencies {
		entries[c] = decimal.Zero
	}
	for _, row := range rows {
		d, err := toDecimal(row.Total)
		if err != nil {
			return nil, nil, err
		}
		entries[domain.Currency(row.Currency)] = d
	}

	return balances, entries, nil
}

func toDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(n.Int.String())
	if err != nil {
		return decimal.Zero, err
	}

	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d, nil
}
