/**
 * @description
 * This package implements the append-only event log each publishing service
 * keeps next to its business tables. Rows are written inside the same
 * transaction as the state change they describe, are never updated or
 * deleted, and can be replayed onto the bus from a point in time — the
 * recovery path when the broker lost an event after the local commit.
 */
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/skillswap-backend/pkg/events"
)

// StoredEvent is one immutable row of the log.
type StoredEvent struct {
	ID         uuid.UUID
	EventID    string
	EventType  string
	Data       []byte
	OccurredOn time.Time
}

// Envelope rebuilds the wire envelope for re-publication.
func (s StoredEvent) Envelope() events.Envelope {
	return events.Envelope{
		EventID:    s.EventID,
		EventType:  s.EventType,
		OccurredOn: s.OccurredOn,
		Payload:    json.RawMessage(s.Data),
	}
}

// PostgresLog stores events in a stored_events table owned by the service.
type PostgresLog struct {
	db *pgxpool.Pool
}

func NewPostgresLog(db *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{db: db}
}

// EnsureSchema creates the stored_events table if it does not exist yet.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	_, err := l.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stored_events (
			id UUID PRIMARY KEY,
			event_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			data TEXT NOT NULL,
			occurred_on TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_stored_events_occurred_on ON stored_events (occurred_on);
	`)
	if err != nil {
		return fmt.Errorf("ensuring stored_events table: %w", err)
	}
	return nil
}

// AppendTx appends the envelope to the log inside the caller's transaction,
// so the business mutation and its event commit or roll back together.
// Re-inserting the same event_id is a no-op: the log is append-once.
func AppendTx(ctx context.Context, tx pgx.Tx, envelope events.Envelope) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stored_events (id, event_id, event_type, data, occurred_on)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`, uuid.New(), envelope.EventID, envelope.EventType, string(envelope.Payload), envelope.OccurredOn)
	if err != nil {
		return fmt.Errorf("appending stored event %s: %w", envelope.EventID, err)
	}
	return nil
}

// Since returns every event with occurred_on >= from, ordered by occurred_on
// so replay is deterministic.
func (l *PostgresLog) Since(ctx context.Context, from time.Time) ([]StoredEvent, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, event_id, event_type, data, occurred_on
		FROM stored_events
		WHERE occurred_on >= $1
		ORDER BY occurred_on, event_id
	`, from)
	if err != nil {
		return nil, fmt.Errorf("querying stored events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			ev   StoredEvent
			data string
		)
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.EventType, &data, &ev.OccurredOn); err != nil {
			return nil, fmt.Errorf("scanning stored event: %w", err)
		}
		ev.Data = []byte(data)
		out = append(out, ev)
	}
	return out, rows.Err()
}
