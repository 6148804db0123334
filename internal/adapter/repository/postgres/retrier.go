package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SQLSTATE codes that mean "another transaction got there first; try again".
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
)

// RetryPolicy bounds how often and for how long a conflicting transaction is replayed.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy suits short wallet and ticket transactions.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// Retrier implements usecase.Retrier. It replays a whole transaction when PostgreSQL
// aborts it with a deadlock, serialization failure or lock timeout.
type Retrier struct {
	policy RetryPolicy
	logger zerolog.Logger
}

// NewRetrier creates a retrier with DefaultRetryPolicy.
func NewRetrier() *Retrier {
	return NewRetrierWithPolicy(DefaultRetryPolicy())
}

// NewRetrierWithPolicy creates a retrier with a custom policy.
func NewRetrierWithPolicy(policy RetryPolicy) *Retrier {
	return &Retrier{
		policy: policy,
		logger: log.Logger.With().Str("component", "retrier").Logger(),
	}
}

// WithLogger replaces the logger used for retry warnings.
func (r *Retrier) WithLogger(logger zerolog.Logger) *Retrier {
	r.logger = logger.With().Str("component", "retrier").Logger()
	return r
}

// Retry runs operation until it succeeds, fails permanently or the policy is exhausted.
// The last database error is returned when retries run out.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.policy.InitialInterval
	exp.MaxInterval = r.policy.MaxInterval
	exp.MaxElapsedTime = r.policy.MaxElapsedTime

	var b backoff.BackOff = backoff.WithContext(exp, ctx)
	if r.policy.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(r.policy.MaxRetries))
	}

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		r.logger.Warn().
			Err(err).
			Str("sqlstate", sqlState(err)).
			Int("retry", attempt).
			Dur("wait", wait).
			Msg("transaction conflict, retrying")
	}

	return backoff.RetryNotify(func() error {
		err := operation()
		if err == nil || isRetryableError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b, notify)
}

func isRetryableError(err error) bool {
	switch sqlState(err) {
	case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
		return true
	}
	return false
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
