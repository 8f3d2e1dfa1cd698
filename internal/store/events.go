package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karyastore/backend-karya/internal/events"
)

// InsertDomainEvent appends one event to the outbox table.
func (s *Store) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1,$2,$3,$4,$5)`,
		pgUUID(ev.ID), ev.Topic, pgUUID(ev.AggregateID), ev.Payload, ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}
