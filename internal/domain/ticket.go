package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus is the lifecycle state of a ticket row.
type TicketStatus string

const (
	TicketStatusActive      TicketStatus = "active"
	TicketStatusUsed        TicketStatus = "used"
	TicketStatusTransferred TicketStatus = "transferred"
)

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusActive, TicketStatusUsed, TicketStatusTransferred:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusUsed || s == TicketStatusTransferred
}

// EventSnapshot holds the catalog fields copied onto a ticket at purchase time.
type EventSnapshot struct {
	EventID  string
	Title    string
	Date     time.Time
	Location string
	ImageURL string
}

// Ticket is one admission unit. Ownership changes create a new row; OwnerUserID never changes.
type Ticket struct {
	PurchaseDate    time.Time
	Event           EventSnapshot
	TransferDate    *time.Time
	UsedAt          *time.Time
	TransferredFrom *string
	ID              string
	OwnerUserID     string
	PurchaseID      string
	QRCode          string
	SeatNumber      string
	AttendeeName    string
	Status          TicketStatus
	Currency        Currency
	Price           decimal.Decimal
}

// ValidateTransfer checks that userID may hand this ticket to someone else.
func (t *Ticket) ValidateTransfer(userID string) error {
	if t.OwnerUserID != userID {
		return ErrNotOwner
	}
	if t.Status != TicketStatusActive {
		return ErrInvalidState
	}
	return nil
}

// RedeemError explains why a ticket in its current status cannot be redeemed.
func (t *Ticket) RedeemError() error {
	switch t.Status {
	case TicketStatusActive:
		return nil
	case TicketStatusUsed:
		return ErrAlreadyUsed
	default:
		return ErrInvalidState
	}
}
