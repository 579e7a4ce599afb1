package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

// EventHandler processes one relayed outbox event.
type EventHandler func(ctx context.Context, event store.Event) error

type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: logger.Named("consumer")}
}

// Consume commits each message after its handler returns. Handler errors are
// logged and the message is skipped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			c.logger.Warn("fetch message failed", zap.Error(err))
			continue
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			c.logger.Error("skipping undecodable message", zap.Int64("offset", msg.Offset), zap.Error(err))
		} else if err := handler(ctx, event); err != nil {
			c.logger.Error("event handler failed",
				zap.String("event_type", event.EventType),
				zap.String("aggregate_id", event.AggregateID),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Warn("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func DecodeEvent(msg kafka.Message) (store.Event, error) {
	var e store.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return e, fmt.Errorf("decode event: %w", err)
	}
	if e.EventType == "" {
		for _, h := range msg.Headers {
			if h.Key == HeaderEventType {
				e.EventType = string(h.Value)
			}
		}
	}
	return e, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
