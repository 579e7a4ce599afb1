// Package outbox relays events committed with domain changes to Kafka.
package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/metrics"
)

type Publisher interface {
	PublishEvents(ctx context.Context, events []store.Event) error
}

// Relay polls the outbox table and publishes unpublished events in commit
// order. Delivery is at-least-once: a crash between publish and mark
// republishes the batch.
type Relay struct {
	reader    store.OutboxReader
	publisher Publisher
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
}

func NewRelay(reader store.OutboxReader, publisher Publisher, interval time.Duration, batchSize int, logger *zap.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		reader:    reader,
		publisher: publisher,
		logger:    logger.Named("relay"),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run drains the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.DrainOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("relay batch failed", zap.Error(err))
				break
			}
			if n < r.batchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DrainOnce publishes one batch and returns how many events it relayed.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	events, err := r.reader.Unpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("read outbox: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := r.publisher.PublishEvents(ctx, events); err != nil {
		return 0, fmt.Errorf("publish %d events: %w", len(events), err)
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if err := r.reader.MarkPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}

	metrics.OutboxPublishedTotal.Add(float64(len(events)))
	r.logger.Debug("relayed events", zap.Int("count", len(events)))
	return len(events), nil
}
