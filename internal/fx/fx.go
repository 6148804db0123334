// Package fx converts wallet amounts between the supported currencies.
package fx

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
)

// BaseCurrency is the currency every rate is quoted against.
const BaseCurrency = domain.USD

// Rates maps a currency to units of that currency per one unit of BaseCurrency.
type Rates map[domain.Currency]decimal.Decimal

// DefaultRates returns the static rate table.
func DefaultRates() Rates {
	return Rates{
		domain.USD: decimal.NewFromInt(1),
		domain.MXN: decimal.RequireFromString("17.50"),
		domain.BRL: decimal.RequireFromString("5.00"),
		domain.EUR: decimal.RequireFromString("0.92"),
	}
}

// Converter is safe for concurrent use; the rate table is never mutated after construction.
type Converter struct {
	rates Rates
}

// NewConverter validates the table and returns a Converter.
func NewConverter(rates Rates) (*Converter, error) {
	if !rates[BaseCurrency].Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fx: base currency %s must have rate 1", BaseCurrency)
	}

	copied := make(Rates, len(rates))
	for _, c := range domain.SupportedCurrencies {
		r, ok := rates[c]
		if !ok || !r.IsPositive() {
			return nil, fmt.Errorf("fx: missing or non-positive rate for %s", c)
		}
		copied[c] = r
	}

	return &Converter{rates: copied}, nil
}

// Rate returns units of c per one unit of BaseCurrency.
func (cv *Converter) Rate(c domain.Currency) (decimal.Decimal, error) {
	r, ok := cv.rates[c]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, c)
	}
	return r, nil
}

// Convert converts amount from one currency to another, rounded half-up to two places.
func (cv *Converter) Convert(amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	raw, err := cv.convertRaw(amount, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.RoundMoney(raw), nil
}

// TotalIn sums every bucket of amounts expressed in target. Terms stay unrounded until the end.
func (cv *Converter) TotalIn(amounts map[domain.Currency]decimal.Decimal, target domain.Currency) (decimal.Decimal, error) {
	if _, err := cv.Rate(target); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for c, a := range amounts {
		term, err := cv.convertRaw(a, c, target)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(term)
	}

	return domain.RoundMoney(total), nil
}

func (cv *Converter) convertRaw(amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	fromRate, err := cv.Rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := cv.Rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}
	// 16 digits keeps the intermediate quotient exact well past money scale.
	return amount.DivRound(fromRate, 16).Mul(toRate), nil
}
