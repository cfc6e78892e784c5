package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/skillswap-backend/internal/matchmaking/domain"
	"github.com/skillswap/skillswap-backend/internal/outbox"
	"github.com/skillswap/skillswap-backend/pkg/events"

	"github.com/skillswap/skillswap-backend/internal/eventlog"
)

// PostgresRepository implements Repository against the matchmaking database.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the matchmaking tables if they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS matches (
			id UUID PRIMARY KEY,
			requester_id UUID NOT NULL,
			target_id UUID NOT NULL,
			skill_name TEXT NOT NULL,
			is_exchange BOOLEAN NOT NULL DEFAULT false,
			exchange_skill_name TEXT NOT NULL DEFAULT '',
			score DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_matches_requester ON matches (requester_id);
		CREATE INDEX IF NOT EXISTS idx_matches_target ON matches (target_id);
		CREATE INDEX IF NOT EXISTS idx_matches_pending_created ON matches (created_at) WHERE status = 'pending';

		CREATE TABLE IF NOT EXISTS profiles (
			user_id UUID PRIMARY KEY,
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			preferred_days TEXT[] NOT NULL DEFAULT '{}',
			preferred_times TEXT[] NOT NULL DEFAULT '{}',
			skills_offered TEXT[] NOT NULL DEFAULT '{}',
			skills_wanted TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensuring matchmaking tables: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateMatch(ctx context.Context, m *domain.Match) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO matches (id, requester_id, target_id, skill_name, is_exchange, exchange_skill_name, score, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.RequesterID, m.TargetID, m.SkillName, m.IsExchange, m.ExchangeSkillName, m.Score, m.Status, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

const matchColumns = `id, requester_id, target_id, skill_name, is_exchange, exchange_skill_name, score, status, created_at, updated_at`

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	err := row.Scan(&m.ID, &m.RequesterID, &m.TargetID, &m.SkillName, &m.IsExchange, &m.ExchangeSkillName, &m.Score, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepository) GetMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("querying match: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListMatchesForUser(ctx context.Context, userID uuid.UUID) ([]domain.Match, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE requester_id = $1 OR target_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

func (r *PostgresRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Match, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stale pending matches: %w", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

func collectMatches(rows pgx.Rows) ([]domain.Match, error) {
	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// TransitionMatch applies a lifecycle transition, appends the event to the
// log, and enqueues it on the outbox — one transaction, so the state change
// and its event cannot diverge. The WHERE clause re-checks the previous
// status; losing that race returns ErrMatchConflict and changes nothing.
func (r *PostgresRepository) TransitionMatch(ctx context.Context, m *domain.Match, previous domain.MatchStatus, envelope events.Envelope) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE matches SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, m.Status, m.UpdatedAt, m.ID, previous)
	if err != nil {
		return fmt.Errorf("updating match status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMatchConflict
	}

	if err := eventlog.AppendTx(ctx, tx, envelope); err != nil {
		return err
	}
	if err := outbox.EnqueueTx(ctx, tx, events.MatchEventsExchange, envelope); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) DeleteMatchesForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM matches WHERE requester_id = $1 OR target_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting matches for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeletePendingMatchesForSkill(ctx context.Context, userID uuid.UUID, skillName string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM matches
		WHERE status = 'pending'
		  AND (requester_id = $1 OR target_id = $1)
		  AND lower(skill_name) = lower($2)
	`, userID, skillName)
	if err != nil {
		return 0, fmt.Errorf("deleting pending matches for skill: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (user_id, rating, preferred_days, preferred_times, skills_offered, skills_wanted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			preferred_days = EXCLUDED.preferred_days,
			preferred_times = EXCLUDED.preferred_times,
			skills_offered = EXCLUDED.skills_offered,
			skills_wanted = EXCLUDED.skills_wanted,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, p.Rating, p.PreferredDays, p.PreferredTimes, p.SkillsOffered, p.SkillsWanted, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

const profileColumns = `user_id, rating, preferred_days, preferred_times, skills_offered, skills_wanted, updated_at`

func (r *PostgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Rating, &p.PreferredDays, &p.PreferredTimes, &p.SkillsOffered, &p.SkillsWanted, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) ListProfilesOfferingSkill(ctx context.Context, skillName string) ([]domain.Profile, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE EXISTS (
			SELECT 1 FROM unnest(skills_offered) AS s WHERE lower(s) = lower($1)
		)
	`, skillName)
	if err != nil {
		return nil, fmt.Errorf("listing profiles offering skill: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.UserID, &p.Rating, &p.PreferredDays, &p.PreferredTimes, &p.SkillsOffered, &p.SkillsWanted, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *PostgresRepository) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
