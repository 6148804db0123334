package eventpublisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// EventPublisher relays committed outbox events to the broker.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	batchSize  int
	interval   time.Duration
	retention  time.Duration
	now        func() time.Time
}

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Metrics    *metrics.Metrics // optional
	Logger     zerolog.Logger
	BatchSize  int           // Number of events to fetch per batch
	Interval   time.Duration // Polling interval
	Retention  time.Duration // How long published events are kept; zero keeps them
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "outbox").Logger(),
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
		retention:  cfg.Retention,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// maxBatchesPerTick caps how many full batches one tick drains.
const maxBatchesPerTick = 10

// Start relays events every interval until ctx is cancelled.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Msg("event publisher started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	ep.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			ep.logger.Info().Msg("event publisher shutting down")
			return ctx.Err()
		case <-ticker.C:
			ep.drain(ctx)
			ep.purge(ctx)
		}
	}
}

// drain relays batches until one comes back short or has a failure, so a burst of
// ticket events clears within a single tick.
func (ep *EventPublisher) drain(ctx context.Context) {
	for i := 0; i < maxBatchesPerTick && ctx.Err() == nil; i++ {
		fetched, published, err := ep.relay(ctx)
		if err != nil {
			ep.logger.Error().Err(err).Msg("failed to load outbox batch")
			return
		}
		if fetched < ep.batchSize || published < fetched {
			return
		}
	}
}

// relay publishes one batch oldest first. Once an event fails, later events of the
// same aggregate are held back so consumers never see them out of order.
func (ep *EventPublisher) relay(ctx context.Context) (fetched, published int, err error) {
	events, err := ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
	if err != nil {
		return 0, 0, err
	}

	blocked := make(map[string]bool)
	for _, event := range events {
		key := event.AggregateType + "/" + event.AggregateID
		if blocked[key] {
			ep.metrics.ObserveOutbox("deferred")
			continue
		}

		if err := ep.publisher.Publish(ctx, event); err != nil {
			blocked[key] = true
			ep.metrics.ObserveOutbox("failed")
			ep.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Str("aggregate_id", event.AggregateID).
				Msg("failed to publish event")
			continue
		}
		ep.metrics.ObserveOutbox("published")
		published++

		if err := ep.outboxRepo.MarkPublished(ctx, event.ID, ep.now()); err != nil {
			// Consumers dedupe on message id, so a re-send after this is tolerated.
			ep.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Msg("failed to mark event as published")
		}
	}

	if len(events) > 0 {
		ep.logger.Debug().Int("fetched", len(events)).Int("published", published).Msg("outbox batch relayed")
	}

	return len(events), published, nil
}

func (ep *EventPublisher) purge(ctx context.Context) {
	if ep.retention <= 0 {
		return
	}
	if err := ep.outboxRepo.DeletePublished(ctx, ep.now().Add(-ep.retention)); err != nil {
		ep.logger.Warn().Err(err).Msg("failed to purge published events")
	}
}

// LogPublisher writes events to the log. It stands in for the broker when none is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("event")

	return nil
}
