package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge      = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall      = errors.New("amount below minimum allowed")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrInvalidDescription  = errors.New("invalid description")
	ErrInvalidCryptoTarget = errors.New("unsupported crypto currency")
	ErrInvalidEvent        = errors.New("invalid event snapshot")
)

// Validation constants
const (
	MaxDescriptionLength = 255
	MaxAmount            = "1000000000" // 1 billion
	MinAmount            = "0.01"

	// Bounds on the decimal representation, checked before any arithmetic so a
	// value like 1e20000000 is rejected without being rescaled.
	minAmountExponent = -18
	maxAmountExponent = 12
	maxAmountDigits   = 30
)

// Crypto assets the payment processor can settle an invoice in.
var validCryptoTargets = map[string]bool{
	"BTC": true, "ETH": true, "USDT": true, "USDC": true,
	"LTC": true, "TRX": true, "TON": true,
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	_, err := ParseCurrency(currency)
	return err
}

// ValidateAmount validates a credit, debit or invoice amount. Amounts carry at most two decimals.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	if exp := amount.Exponent(); exp < minAmountExponent || exp > maxAmountExponent {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	if amount.NumDigits() > maxAmountDigits {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}

	if !HasMoneyScale(amount) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MoneyScale)
	}

	minAmount, _ := decimal.NewFromString(MinAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: %w: minimum amount is %s", ErrInvalidAmount, ErrAmountTooSmall, MinAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: %w: maximum amount is %s", ErrInvalidAmount, ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ValidateDescription validates a ledger entry description
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}
	return nil
}

// ValidateCryptoTarget normalizes and validates the asset an invoice settles in.
func ValidateCryptoTarget(asset string) (string, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if !validCryptoTargets[asset] {
		return "", fmt.Errorf("%w: %s", ErrInvalidCryptoTarget, asset)
	}
	return asset, nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// IsEmail reports whether s looks like an email rather than a user id.
func IsEmail(s string) bool {
	return strings.Contains(s, "@") && ValidateEmail(s) == nil
}

// ValidateEventSnapshot checks the catalog fields a ticket is issued against.
func ValidateEventSnapshot(e EventSnapshot) error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
