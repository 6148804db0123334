package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code from the fixed set the wallet holds.
type Currency string

const (
	USD Currency = "USD"
	MXN Currency = "MXN"
	BRL Currency = "BRL"
	EUR Currency = "EUR"
)

// MoneyScale is the number of decimal places every stored amount carries.
const MoneyScale = 2

// SupportedCurrencies lists the wallet currencies in display order.
var SupportedCurrencies = []Currency{USD, MXN, BRL, EUR}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

// IsValid reports whether c belongs to the supported set.
func (c Currency) IsValid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

func (c Currency) String() string { return string(c) }

// RoundMoney rounds half-up to MoneyScale places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// HasMoneyScale reports whether d has no more than MoneyScale fractional digits.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(RoundMoney(d))
}
