package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/skillswap-backend/internal/videocall/domain"
)

// PostgresRepository implements Repository against the videocall database.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the videocall tables if they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS call_sessions (
			id UUID PRIMARY KEY,
			match_id UUID NOT NULL UNIQUE,
			skill_name TEXT NOT NULL,
			room_code TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS call_participants (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES call_sessions(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL,
			UNIQUE (session_id, user_id)
		);

		CREATE INDEX IF NOT EXISTS idx_call_participants_user
			ON call_participants (user_id);
	`)
	if err != nil {
		return fmt.Errorf("ensuring videocall tables: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *domain.CallSession, participants []domain.Participant) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO call_sessions (id, match_id, skill_name, room_code, status, created_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
		ON CONFLICT (match_id) DO NOTHING
	`, session.ID, session.MatchID, session.SkillName, session.RoomCode, session.Status, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting call session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Redelivery: the room already exists for this match.
		return tx.Commit(ctx)
	}

	for _, p := range participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO call_participants (id, session_id, user_id, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, user_id) DO NOTHING
		`, p.ID, p.SessionID, p.UserID, p.JoinedAt)
		if err != nil {
			return fmt.Errorf("inserting call participant: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetSessionByMatch(ctx context.Context, matchID uuid.UUID) (*domain.CallSession, error) {
	var s domain.CallSession
	err := r.db.QueryRow(ctx, `
		SELECT id, match_id, skill_name, room_code, status, created_at, ended_at
		FROM call_sessions WHERE match_id = $1
	`, matchID).Scan(&s.ID, &s.MatchID, &s.SkillName, &s.RoomCode, &s.Status, &s.CreatedAt, &s.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying call session: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]domain.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, user_id, joined_at FROM call_participants
		WHERE session_id = $1 ORDER BY joined_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListSessionsForUser(ctx context.Context, userID uuid.UUID) ([]domain.CallSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.match_id, s.skill_name, s.room_code, s.status, s.created_at, s.ended_at
		FROM call_sessions s
		JOIN call_participants p ON p.session_id = s.id
		WHERE p.user_id = $1
		ORDER BY s.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions for user: %w", err)
	}
	defer rows.Close()

	var out []domain.CallSession
	for rows.Next() {
		var s domain.CallSession
		if err := rows.Scan(&s.ID, &s.MatchID, &s.SkillName, &s.RoomCode, &s.Status, &s.CreatedAt, &s.EndedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) EndSessionForMatch(ctx context.Context, matchID uuid.UUID, endedAt time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE call_sessions SET status = $1, ended_at = $2
		WHERE match_id = $3 AND status = $4
	`, domain.SessionEnded, endedAt, matchID, domain.SessionActive)
	if err != nil {
		return 0, fmt.Errorf("ending call session: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) RemoveParticipant(ctx context.Context, userID uuid.UUID, endedAt time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// A call cannot proceed with one of its parties gone, so active sessions
	// the user was in close along with the row delete.
	_, err = tx.Exec(ctx, `
		UPDATE call_sessions SET status = $1, ended_at = $2
		WHERE status = $3
		  AND EXISTS (
			SELECT 1 FROM call_participants p
			WHERE p.session_id = call_sessions.id AND p.user_id = $4
		  )
	`, domain.SessionEnded, endedAt, domain.SessionActive, userID)
	if err != nil {
		return 0, fmt.Errorf("ending abandoned sessions: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM call_participants WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting participants: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
