package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// InsertEvent writes one event row and returns it.
func (s *PGStore) InsertEvent(ctx context.Context, topic string, payload []byte) (Event, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, payload)
		VALUES ($1, $2)
		RETURNING id, topic, payload, occurred_at`,
		topic, payload)
	var ev Event
	if err := row.Scan(&ev.ID, &ev.Topic, &ev.Payload, &ev.OccurredAt); err != nil {
		return Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}

// List returns recent events for a topic, newest first. An empty topic lists
// across all topics.
func (s *PGStore) List(ctx context.Context, topic string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, topic, payload, occurred_at FROM domain_events
		WHERE ($1 = '' OR topic = $1)
		ORDER BY occurred_at DESC LIMIT $2`, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("list domain events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.Payload, &ev.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
