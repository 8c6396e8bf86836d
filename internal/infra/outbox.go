package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
)

// FetchUnpublishedFunc loads a batch of unpublished outbox events, oldest
// first.
type FetchUnpublishedFunc func(ctx context.Context, limit int) ([]domain.OutboxDraft, error)

// MarkPublishedFunc stamps events as published.
type MarkPublishedFunc func(ctx context.Context, eventIDs []uuid.UUID) error

// OutboxPoller drains the event_outbox table into Kafka. Runs in-process
// alongside the API server; cmd/outbox-consumer runs the callback-delivery
// side. Storage access is injected so the poller stays decoupled from the
// repository layer.
type OutboxPoller struct {
	fetch     FetchUnpublishedFunc
	mark      MarkPublishedFunc
	producer  *KafkaProducer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(fetch FetchUnpublishedFunc, mark MarkPublishedFunc, producer *KafkaProducer, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		fetch:     fetch,
		mark:      mark,
		producer:  producer,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if err := p.poll(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

func (p *OutboxPoller) poll(ctx context.Context) error {
	drafts, err := p.fetch(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(drafts))
	for _, d := range drafts {
		// Event types already carry the pluto.* topic prefix.
		msg, _ := json.Marshal(map[string]interface{}{
			"event_id":       d.EventID,
			"aggregate_type": d.AggregateType,
			"aggregate_id":   d.AggregateID,
			"event_type":     d.EventType,
			"payload":        d.Payload,
			"occurred_at":    d.OccurredAt,
		})

		if err := p.producer.Publish(ctx, string(d.EventType), []byte(d.PartitionKey), msg); err != nil {
			p.logger.Error("kafka publish failed", "event_id", d.EventID, "error", err)
			continue
		}
		published = append(published, d.EventID)
	}
	if len(published) == 0 {
		return nil
	}

	if err := p.mark(ctx, published); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	p.logger.Debug("outbox poll complete", "published", len(published))
	return nil
}
