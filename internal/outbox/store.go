/**
 * @description
 * Transactional outbox shared by the publishing services. An event is
 * enqueued in the same database transaction as the state change that caused
 * it; a background dispatcher claims pending rows and pushes them to
 * RabbitMQ. The local commit is the source of truth — bus delivery is
 * retried until it succeeds.
 */
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/skillswap-backend/pkg/events"
)

// Message is one claimed outbox row ready for publication.
type Message struct {
	ID       int64
	Exchange string
	Envelope []byte
	Attempts int
}

// Store is the persistence contract the dispatcher runs against.
type Store interface {
	ClaimMessages(ctx context.Context, batchSize int, staleAfterSeconds int) ([]Message, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error
}

// PostgresStore keeps the outbox in an outbox table owned by the service.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the outbox table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			exchange TEXT NOT NULL,
			envelope TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			claimed_at TIMESTAMPTZ,
			published_at TIMESTAMPTZ,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (next_attempt_at) WHERE status = 'pending';
	`)
	if err != nil {
		return fmt.Errorf("ensuring outbox table: %w", err)
	}
	return nil
}

// EnqueueTx adds the envelope to the outbox inside the caller's transaction.
func EnqueueTx(ctx context.Context, tx pgx.Tx, exchange string, envelope events.Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshaling outbox envelope: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO outbox (exchange, envelope) VALUES ($1, $2)
	`, exchange, string(body)); err != nil {
		return fmt.Errorf("enqueuing outbox message: %w", err)
	}
	return nil
}

// ClaimMessages marks up to batchSize due rows as processing and returns
// them. Rows stuck in processing longer than staleAfterSeconds are
// reclaimed, so a dispatcher crash never strands a message.
func (s *PostgresStore) ClaimMessages(ctx context.Context, batchSize int, staleAfterSeconds int) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE outbox SET status = 'processing', claimed_at = now()
		WHERE id IN (
			SELECT id FROM outbox
			WHERE (status = 'pending' AND next_attempt_at <= now())
			   OR (status = 'processing' AND claimed_at < now() - make_interval(secs => $2))
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, exchange, envelope, attempts
	`, batchSize, staleAfterSeconds)
	if err != nil {
		return nil, fmt.Errorf("claiming outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m        Message
			envelope string
		)
		if err := rows.Scan(&m.ID, &m.Exchange, &envelope, &m.Attempts); err != nil {
			return nil, fmt.Errorf("scanning outbox message: %w", err)
		}
		m.Envelope = []byte(envelope)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox SET status = 'published', published_at = now() WHERE id = $1
	`, id)
	return err
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox
		SET status = 'pending',
		    attempts = attempts + 1,
		    next_attempt_at = now() + make_interval(secs => $2),
		    last_error = $3
		WHERE id = $1
	`, id, retryAfterSeconds, reason)
	return err
}
