package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance holds one user's wallet across every supported currency.
type UserBalance struct {
	UserID            string
	Amounts           map[Currency]decimal.Decimal
	PreferredCurrency Currency
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewUserBalance returns an empty balance with every currency bucket present.
func NewUserBalance(userID string, preferred Currency, now time.Time) *UserBalance {
	if !preferred.IsValid() {
		preferred = USD
	}
	b := &UserBalance{
		UserID:            userID,
		PreferredCurrency: preferred,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	b.Normalize()
	return b
}

// Normalize fills missing buckets with zero.
func (b *UserBalance) Normalize() {
	if b.Amounts == nil {
		b.Amounts = make(map[Currency]decimal.Decimal, len(SupportedCurrencies))
	}
	for _, c := range SupportedCurrencies {
		if _, ok := b.Amounts[c]; !ok {
			b.Amounts[c] = decimal.Zero
		}
	}
	if !b.PreferredCurrency.IsValid() {
		b.PreferredCurrency = USD
	}
}

// Amount returns the bucket for c (zero when absent).
func (b *UserBalance) Amount(c Currency) decimal.Decimal {
	if b.Amounts == nil {
		return decimal.Zero
	}
	return b.Amounts[c]
}

// ValidateDebit checks that the bucket for c covers amount.
func (b *UserBalance) ValidateDebit(amount decimal.Decimal, c Currency) error {
	if b.Amount(c).LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns the bucket value after debiting amount.
func (b *UserBalance) ApplyDebit(amount decimal.Decimal, c Currency) decimal.Decimal {
	return b.Amount(c).Sub(amount)
}

// ApplyCredit returns the bucket value after crediting amount.
func (b *UserBalance) ApplyCredit(amount decimal.Decimal, c Currency) decimal.Decimal {
	return b.Amount(c).Add(amount)
}

// Clone returns a deep copy.
func (b *UserBalance) Clone() *UserBalance {
	out := *b
	out.Amounts = make(map[Currency]decimal.Decimal, len(b.Amounts))
	for c, a := range b.Amounts {
		out.Amounts[c] = a
	}
	return &out
}

// LegacyBalance is the single-number wallet some early accounts still carry.
// It is folded into the preferred currency bucket the first time the wallet is locked.
type LegacyBalance struct {
	Amount decimal.Decimal
}

// LegacyMigrationDescription labels the entry written when a legacy balance is folded in.
const LegacyMigrationDescription = "legacy balance migration"
