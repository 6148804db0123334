package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const ensureUserBalance = `-- name: EnsureUserBalance :exec
INSERT INTO user_balances (user_id, created_at, updated_at)
VALUES ($1, $2, $2)
ON CONFLICT (user_id) DO NOTHING
`

type EnsureUserBalanceParams struct {
	UserID    string             `json:"user_id"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) EnsureUserBalance(ctx context.Context, arg EnsureUserBalanceParams) error {
	_, err := q.db.Exec(ctx, ensureUserBalance, arg.UserID, arg.CreatedAt)
	return err
}

const getUserBalance = `-- name: GetUserBalance :one
SELECT user_id, usd, mxn, brl, eur, preferred_currency, legacy_balance, version, created_at, updated_at
FROM user_balances
WHERE user_id = $1
`

func (q *Queries) GetUserBalance(ctx context.Context, userID string) (UserBalance, error) {
	row := q.db.QueryRow(ctx, getUserBalance, userID)
	var i UserBalance
	err := row.Scan(
		&i.UserID,
		&i.Usd,
		&i.Mxn,
		&i.Brl,
		&i.Eur,
		&i.PreferredCurrency,
		&i.LegacyBalance,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserBalanceForUpdate = `-- name: GetUserBalanceForUpdate :one
SELECT user_id, usd, mxn, brl, eur, preferred_currency, legacy_balance, version, created_at, updated_at
FROM user_balances
WHERE user_id = $1
FOR UPDATE
`

func (q *Queries) GetUserBalanceForUpdate(ctx context.Context, userID string) (UserBalance, error) {
	row := q.db.QueryRow(ctx, getUserBalanceForUpdate, userID)
	var i UserBalance
	err := row.Scan(
		&i.UserID,
		&i.Usd,
		&i.Mxn,
		&i.Brl,
		&i.Eur,
		&i.PreferredCurrency,
		&i.LegacyBalance,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listBalanceUserIDs = `-- name: ListBalanceUserIDs :many
SELECT user_id FROM user_balances
ORDER BY user_id
LIMIT $1 OFFSET $2
`

type ListBalanceUserIDsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListBalanceUserIDs(ctx context.Context, arg ListBalanceUserIDsParams) ([]string, error) {
	rows, err := q.db.Query(ctx, listBalanceUserIDs, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var user_id string
		if err := rows.Scan(&user_id); err != nil {
			return nil, err
		}
		items = append(items, user_id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const saveUserBalance = `-- name: SaveUserBalance :exec
UPDATE user_balances
SET usd = $2, mxn = $3, brl = $4, eur = $5, preferred_currency = $6,
    legacy_balance = NULL, version = $7, updated_at = $8
WHERE user_id = $1
`

type SaveUserBalanceParams struct {
	UserID            string             `json:"user_id"`
	Usd               pgtype.Numeric     `json:"usd"`
	Mxn               pgtype.Numeric     `json:"mxn"`
	Brl               pgtype.Numeric     `json:"brl"`
	Eur               pgtype.Numeric     `json:"eur"`
	PreferredCurrency string             `json:"preferred_currency"`
	Version           int64              `json:"version"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) SaveUserBalance(ctx context.Context, arg SaveUserBalanceParams) error {
	_, err := q.db.Exec(ctx, saveUserBalance,
		arg.UserID,
		arg.Usd,
		arg.Mxn,
		arg.Brl,
		arg.Eur,
		arg.PreferredCurrency,
		arg.Version,
		arg.UpdatedAt,
	)
	return err
}
