package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const sumBalancesByCurrency = `-- name: SumBalancesByCurrency :one
SELECT
    COALESCE(SUM(usd), 0)::NUMERIC AS total_usd,
    COALESCE(SUM(mxn), 0)::NUMERIC AS total_mxn,
    COALESCE(SUM(brl), 0)::NUMERIC AS total_brl,
    COALESCE(SUM(eur), 0)::NUMERIC AS total_eur
FROM user_balances
`

type SumBalancesByCurrencyRow struct {
	TotalUsd pgtype.Numeric `json:"total_usd"`
	TotalMxn pgtype.Numeric `json:"total_mxn"`
	TotalBrl pgtype.Numeric `json:"total_brl"`
	TotalEur pgtype.Numeric `json:"total_eur"`
}

func (q *Queries) SumBalancesByCurrency(ctx context.Context) (SumBalancesByCurrencyRow, error) {
	row := q.db.QueryRow(ctx, sumBalancesByCurrency)
	var i SumBalancesByCurrencyRow
	err := row.Scan(
		&i.TotalUsd,
		&i.TotalMxn,
		&i.TotalBrl,
		&i.TotalEur,
	)
	return i, err
}

const sumEntriesByCurrency = `-- name: SumEntriesByCurrency :many
SELECT currency, COALESCE(SUM(amount), 0)::NUMERIC AS total
FROM ledger_entries
GROUP BY currency
`

type SumEntriesByCurrencyRow struct {
	Currency string         `json:"currency"`
	Total    pgtype.Numeric `json:"total"`
}

func (q *Queries) SumEntriesByCurrency(ctx context.Context) ([]SumEntriesByCurrencyRow, error) {
	rows, err := q.db.Query(ctx, sumEntriesByCurrency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumEntriesByCurrencyRow{}
	for rows.Next() {
		var i SumEntriesByCurrencyRow
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
