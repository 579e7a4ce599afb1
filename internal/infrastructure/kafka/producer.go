package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

const HeaderEventType = "event_type"

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer}
}

// PublishEvents writes outbox events keyed by aggregate id so one order's
// events stay on one partition in version order.
func (p *Producer) PublishEvents(ctx context.Context, events []store.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := EventMessage(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// EventMessage encodes an event as a Kafka message.
func EventMessage(e store.Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return kafka.Message{
		Key:     []byte(e.AggregateID),
		Value:   data,
		Time:    e.Timestamp,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(e.EventType)}},
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
