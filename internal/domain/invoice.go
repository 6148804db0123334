package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks an external crypto top-up.
type InvoiceStatus string

const (
	InvoiceStatusCreated    InvoiceStatus = "created"
	InvoiceStatusConfirming InvoiceStatus = "confirming"
	InvoiceStatusPaid       InvoiceStatus = "paid"
	InvoiceStatusExpired    InvoiceStatus = "expired"
	InvoiceStatusFailed     InvoiceStatus = "failed"
)

// InvoiceLifetime is how long an invoice waits for a paid callback.
const InvoiceLifetime = time.Hour

// IsFinal reports whether the invoice can no longer be paid.
func (s InvoiceStatus) IsFinal() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusExpired, InvoiceStatusFailed:
		return true
	}
	return false
}

// Invoice is a pending external crypto top-up.
type Invoice struct {
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         time.Time
	PaidAt            *time.Time
	OrderID           string
	UserID            string
	TargetCrypto      string
	ExternalInvoiceID string
	PaymentURL        string
	Status            InvoiceStatus
	Currency          Currency
	Amount            decimal.Decimal
}

// IsExpiredAt reports whether an unpaid invoice has outlived its lifetime at now.
func (i *Invoice) IsExpiredAt(now time.Time) bool {
	if i.Status == InvoiceStatusExpired {
		return true
	}
	if i.Status.IsFinal() {
		return false
	}
	return !now.Before(i.ExpiresAt)
}

// Validate checks the invoice request fields.
func (i *Invoice) Validate() error {
	if err := ValidateAmount(i.Amount); err != nil {
		return err
	}
	if !i.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	return nil
}

// IsValidTransitionFrom reports whether a processor callback may move an invoice from prev to s.
func (s InvoiceStatus) IsValidTransitionFrom(prev InvoiceStatus) bool {
	if prev.IsFinal() {
		return false
	}
	switch s {
	case InvoiceStatusConfirming:
		return prev == InvoiceStatusCreated
	case InvoiceStatusPaid, InvoiceStatusExpired, InvoiceStatusFailed:
		return true
	}
	return false
}
