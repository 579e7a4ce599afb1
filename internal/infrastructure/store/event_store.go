package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

type eventRow struct {
	ID            string        `db:"id"`
	AggregateID   string        `db:"aggregate_id"`
	AggregateType string        `db:"aggregate_type"`
	EventType     string        `db:"event_type"`
	Data          string        `db:"data"`
	Version       int           `db:"version"`
	CreatedAt     int64         `db:"created_at"`
	PublishedAt   sql.NullInt64 `db:"published_at"`
}

func (r eventRow) toEvent() Event {
	return Event{
		ID:            r.ID,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		EventType:     r.EventType,
		Data:          json.RawMessage(r.Data),
		Timestamp:     FromMillis(r.CreatedAt),
		Version:       r.Version,
	}
}

// EventStore keeps events in the outbox_events table.
type EventStore struct {
	db *DB
}

func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Append stores an event in the outbox
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", eventType, err)
	}

	var currentVersion int
	if err := es.db.Get(ctx, &currentVersion,
		"SELECT COALESCE(MAX(version), 0) FROM outbox_events WHERE aggregate_id = ?", aggregateID,
	); err != nil {
		return nil, fmt.Errorf("read version of %s: %w", aggregateID, err)
	}

	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now().UTC(),
		Version:       currentVersion + 1,
	}

	if _, err := es.db.Exec(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.AggregateID, event.AggregateType, event.EventType,
		string(event.Data), event.Version, ToMillis(event.Timestamp),
	); err != nil {
		return nil, fmt.Errorf("append %s: %w", eventType, err)
	}

	return &event, nil
}

// GetEvents returns all events for an aggregate in version order
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	var rows []eventRow
	if err := es.db.Select(ctx, &rows,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at, published_at
		 FROM outbox_events WHERE aggregate_id = ? ORDER BY version ASC`, aggregateID,
	); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}

// Unpublished returns the oldest events not yet relayed
func (es *EventStore) Unpublished(ctx context.Context, limit int) ([]Event, error) {
	var rows []eventRow
	if err := es.db.Select(ctx, &rows,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at, published_at
		 FROM outbox_events WHERE published_at IS NULL ORDER BY created_at ASC, version ASC LIMIT ?`, limit,
	); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}

// MarkPublished stamps relayed events
func (es *EventStore) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("UPDATE outbox_events SET published_at = ? WHERE id IN (?)", ToMillis(time.Now()), ids)
	if err != nil {
		return err
	}
	_, err = es.db.Exec(ctx, query, args...)
	return err
}

var (
	_ EventStoreInterface = (*EventStore)(nil)
	_ OutboxReader        = (*EventStore)(nil)
)
