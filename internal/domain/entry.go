package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryTypeDeposit     EntryType = "deposit"
	EntryTypePurchase    EntryType = "purchase"
	EntryTypeTransferIn  EntryType = "transfer_in"
	EntryTypeTransferOut EntryType = "transfer_out"
)

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeDeposit, EntryTypePurchase, EntryTypeTransferIn, EntryTypeTransferOut:
		return true
	}
	return false
}

// Entry is one immutable balance change. Amount is negative for debits.
type Entry struct {
	CreatedAt    time.Time
	ID           string
	UserID       string
	Type         EntryType
	Currency     Currency
	Description  string
	Reference    string
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
}
