package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// CompensationTimeout bounds a refund that runs after the caller went away.
	CompensationTimeout = 30 * time.Second

	// DefaultInvoiceTimeout bounds the outbound call to the payment processor.
	DefaultInvoiceTimeout = 15 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultHistoryLimit is the page size for wallet history.
	DefaultHistoryLimit = 20

	// MaxHistoryLimit caps a single history page.
	MaxHistoryLimit = 100
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock in UTC.
var SystemClock Clock = systemClock{}
