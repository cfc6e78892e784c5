package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/skillswap-backend/internal/eventlog"
	"github.com/skillswap/skillswap-backend/internal/outbox"
	"github.com/skillswap/skillswap-backend/internal/users/domain"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

// PostgresRepository implements Repository against the users database.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the users tables if they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			rating_count INT NOT NULL DEFAULT 0,
			preferred_days TEXT[] NOT NULL DEFAULT '{}',
			preferred_times TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS skills (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, name, kind)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensuring users tables: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u *domain.User, profileEnvelope events.Envelope) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, display_name, bio, rating, rating_count, preferred_days, preferred_times, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.Email, u.DisplayName, u.Bio, u.Rating, u.RatingCount, u.PreferredDays, u.PreferredTimes, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	if err := enqueueUserEventTx(ctx, tx, profileEnvelope); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, display_name, bio, rating, rating_count, preferred_days, preferred_times, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.Bio, &u.Rating, &u.RatingCount, &u.PreferredDays, &u.PreferredTimes, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) ListSkills(ctx context.Context, userID uuid.UUID) ([]domain.Skill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, kind, created_at FROM skills
		WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	defer rows.Close()

	var skills []domain.Skill
	for rows.Next() {
		var s domain.Skill
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Kind, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

func (r *PostgresRepository) UpdateAvailability(ctx context.Context, u *domain.User, profileEnvelope events.Envelope) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET preferred_days = $1, preferred_times = $2, updated_at = $3 WHERE id = $4
	`, u.PreferredDays, u.PreferredTimes, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("updating availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err := enqueueUserEventTx(ctx, tx, profileEnvelope); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) UpdateRating(ctx context.Context, u *domain.User, profileEnvelope events.Envelope) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET rating = $1, rating_count = $2, updated_at = $3 WHERE id = $4
	`, u.Rating, u.RatingCount, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("updating rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err := enqueueUserEventTx(ctx, tx, profileEnvelope); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) AddSkill(ctx context.Context, s *domain.Skill, profileEnvelope events.Envelope) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO skills (id, user_id, name, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, name, kind) DO NOTHING
	`, s.ID, s.UserID, s.Name, s.Kind, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting skill: %w", err)
	}

	if err := enqueueUserEventTx(ctx, tx, profileEnvelope); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) RemoveSkill(ctx context.Context, userID uuid.UUID, skillName string, envelopes []events.Envelope) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		DELETE FROM skills WHERE user_id = $1 AND lower(name) = lower($2)
	`, userID, skillName)
	if err != nil {
		return fmt.Errorf("deleting skill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSkillNotFound
	}

	for _, envelope := range envelopes {
		if err := enqueueUserEventTx(ctx, tx, envelope); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, userID uuid.UUID, envelope events.Envelope) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Skills go with the user via ON DELETE CASCADE; everything in other
	// services reacts to the event instead.
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err := enqueueUserEventTx(ctx, tx, envelope); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func enqueueUserEventTx(ctx context.Context, tx pgx.Tx, envelope events.Envelope) error {
	if err := eventlog.AppendTx(ctx, tx, envelope); err != nil {
		return err
	}
	return outbox.EnqueueTx(ctx, tx, events.UserEventsExchange, envelope)
}
