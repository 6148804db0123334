package domain

import "time"

// Event types
const (
	EventTypeWalletCredited        = "wallet.credited"
	EventTypeWalletDebited         = "wallet.debited"
	EventTypeTicketIssued          = "ticket.issued"
	EventTypeTicketTransferred     = "ticket.transferred"
	EventTypeTicketRedeemed        = "ticket.redeemed"
	EventTypeInvoicePaid           = "invoice.paid"
	EventTypePurchaseCompleted     = "purchase.completed"
	EventTypePurchaseCompensated   = "purchase.compensated"
	EventTypeLegacyBalanceMigrated = "wallet.legacy_migrated"
)

// Aggregate types
const (
	AggregateTypeWallet   = "wallet"
	AggregateTypeTicket   = "ticket"
	AggregateTypeInvoice  = "invoice"
	AggregateTypePurchase = "purchase"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
