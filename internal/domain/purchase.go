package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus tracks the debit/issue saga for one checkout.
type PurchaseStatus string

const (
	// PurchaseStatusDebited means funds were taken and tickets are not yet confirmed.
	PurchaseStatusDebited     PurchaseStatus = "debited"
	PurchaseStatusCompleted   PurchaseStatus = "completed"
	PurchaseStatusCompensated PurchaseStatus = "compensated"
)

// MaxTicketsPerPurchase caps a single checkout.
const MaxTicketsPerPurchase = 10

// BuyerInfo is the contact data captured at checkout.
type BuyerInfo struct {
	Name  string
	Email string
	Phone string
}

// Purchase is the durable record of one internal-balance checkout.
type Purchase struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Buyer        BuyerInfo
	ID           string
	UserID       string
	EventID      string
	DebitEntryID string
	FailureCause string
	Status       PurchaseStatus
	Currency     Currency
	UnitPrice    decimal.Decimal
	Fee          decimal.Decimal
	Total        decimal.Decimal
	Quantity     int
}

// PurchaseTotal computes price*quantity+fee, rounded to money scale.
func PurchaseTotal(price decimal.Decimal, quantity int, fee decimal.Decimal) decimal.Decimal {
	return RoundMoney(price.Mul(decimal.NewFromInt(int64(quantity))).Add(fee))
}

// ValidateQuantity checks quantity against the per-purchase cap and an optional event cap.
func ValidateQuantity(quantity, eventRemaining int) error {
	if quantity < 1 || quantity > MaxTicketsPerPurchase {
		return ErrInvalidQuantity
	}
	if eventRemaining > 0 && quantity > eventRemaining {
		return ErrInvalidQuantity
	}
	return nil
}

// ValidateAttendees requires one non-blank name per ticket.
func ValidateAttendees(attendees []string, quantity int) error {
	if len(attendees) != quantity {
		return ErrMissingAttendee
	}
	for _, a := range attendees {
		if strings.TrimSpace(a) == "" {
			return ErrMissingAttendee
		}
	}
	return nil
}
