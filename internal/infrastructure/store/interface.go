package store

import "context"

// EventStoreInterface appends domain events to the outbox. Append joins the
// transaction carried by ctx so an event commits with the state it describes.
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
}

// OutboxReader is drained by the Kafka relay.
type OutboxReader interface {
	Unpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []string) error
}

// Transactor runs fn in a unit of work carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ Transactor = (*DB)(nil)
