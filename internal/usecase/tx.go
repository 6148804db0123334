package usecase

import (
	"context"
	"time"

	"github.com/iho/boxoffice/internal/domain"
)

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }

// runInTx runs fn inside a transaction bounded by DefaultTransactionTimeout and
// retries the whole unit on transient conflicts.
func runInTx(ctx context.Context, txManager TransactionManager, retrier Retrier, fn func(ctx context.Context, tx Transaction) error) error {
	if retrier == nil {
		retrier = noRetry{}
	}

	return retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
}

func writeEvent(
	ctx context.Context,
	tx Transaction,
	outbox OutboxRepository,
	idGen IDGenerator,
	aggregateType, aggregateID, eventType string,
	payload map[string]any,
	now time.Time,
) error {
	if outbox == nil {
		return nil
	}

	return outbox.Create(ctx, tx, &domain.OutboxEvent{
		ID:            idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	})
}
