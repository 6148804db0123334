package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
)

// BalanceRepository defines data access for user wallets.
type BalanceRepository interface {
	// GetForUpdate creates the wallet row if missing, locks it for the rest of tx,
	// and returns any legacy single-number balance not yet folded in.
	GetForUpdate(ctx context.Context, tx Transaction, userID string) (*domain.UserBalance, *domain.LegacyBalance, error)
	// Get returns domain.ErrBalanceNotFound for users with no wallet yet.
	Get(ctx context.Context, userID string) (*domain.UserBalance, *domain.LegacyBalance, error)
	// Save persists every bucket and clears the legacy balance.
	Save(ctx context.Context, tx Transaction, balance *domain.UserBalance) error
	ListUserIDs(ctx context.Context, limit, offset int) ([]string, error)
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error)
	SumByUser(ctx context.Context, userID string) (map[domain.Currency]decimal.Decimal, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	// CheckConsistency returns per-currency totals of all wallets and of all entries.
	CheckConsistency(ctx context.Context) (balances, entries map[domain.Currency]decimal.Decimal, err error)
}

// TicketRepository defines data access for tickets.
type TicketRepository interface {
	Create(ctx context.Context, tx Transaction, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Ticket, error)
	GetByQRCode(ctx context.Context, qrCode string) (*domain.Ticket, error)
	// MarkUsed flips an active ticket with qrCode to used. It returns domain.ErrTicketNotFound
	// when no active ticket carries that code.
	MarkUsed(ctx context.Context, tx Transaction, qrCode string, usedAt time.Time) (*domain.Ticket, error)
	MarkTransferred(ctx context.Context, tx Transaction, id string, at time.Time) error
	ListByOwner(ctx context.Context, userID string, status *domain.TicketStatus) ([]*domain.Ticket, error)
	ListByPurchase(ctx context.Context, purchaseID string) ([]*domain.Ticket, error)
}

// InvoiceRepository defines data access for crypto invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, tx Transaction, invoice *domain.Invoice) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error)
	GetByOrderIDForUpdate(ctx context.Context, tx Transaction, orderID string) (*domain.Invoice, error)
	UpdateStatus(ctx context.Context, tx Transaction, invoice *domain.Invoice) error
}

// PurchaseRepository defines data access for purchase saga markers.
type PurchaseRepository interface {
	Create(ctx context.Context, tx Transaction, purchase *domain.Purchase) error
	GetByID(ctx context.Context, id string) (*domain.Purchase, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Purchase, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.PurchaseStatus, cause string, updatedAt time.Time) error
	ListStale(ctx context.Context, status domain.PurchaseStatus, olderThan time.Time, limit int) ([]*domain.Purchase, error)
}

// UserRepository defines data access for the user directory.
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// ProcessorInvoiceRequest is what the payment processor needs to open an invoice.
type ProcessorInvoiceRequest struct {
	OrderID      string
	Amount       decimal.Decimal
	Currency     domain.Currency
	TargetCrypto string
	Lifetime     time.Duration
}

// ProcessorInvoice is the processor's acceptance of an invoice.
type ProcessorInvoice struct {
	ExternalID string
	PaymentURL string
	ExpiresAt  *time.Time
}

// WebhookNotification is an authenticated processor callback.
type WebhookNotification struct {
	OrderID    string
	ExternalID string
	Status     domain.InvoiceStatus
	RawStatus  string
	Amount     decimal.Decimal
	Currency   string
}

// PaymentProcessor is the external crypto payment processor.
type PaymentProcessor interface {
	CreateInvoice(ctx context.Context, req ProcessorInvoiceRequest) (*ProcessorInvoice, error)
	// ParseWebhook authenticates body against signature and decodes it.
	// It returns domain.ErrInvalidSignature when the signature does not match.
	ParseWebhook(body []byte, signature string) (*WebhookNotification, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient database conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// TokenGenerator produces unguessable ticket codes.
type TokenGenerator interface {
	Generate() (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Lease is a short-lived cross-instance lock.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the request can be retried with the same key.
	Release(ctx context.Context, key string) error
}
