package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
)

// PostgresRepository implements Repository against the scheduling database.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the scheduling tables if they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS active_matches (
			match_id UUID PRIMARY KEY,
			offering_user_id UUID NOT NULL,
			requesting_user_id UUID NOT NULL,
			skill_name TEXT NOT NULL,
			accepted_at TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			match_id UUID NOT NULL,
			booked_by UUID NOT NULL,
			scheduled_for TIMESTAMPTZ NOT NULL,
			duration_minutes INT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_appointments_match
			ON appointments (match_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_status_scheduled_for
			ON appointments (status, scheduled_for);
	`)
	if err != nil {
		return fmt.Errorf("ensuring scheduling tables: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertActiveMatch(ctx context.Context, m domain.ActiveMatch) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO active_matches (match_id, offering_user_id, requesting_user_id, skill_name, accepted_at, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (match_id) DO UPDATE SET
			offering_user_id = EXCLUDED.offering_user_id,
			requesting_user_id = EXCLUDED.requesting_user_id,
			skill_name = EXCLUDED.skill_name,
			accepted_at = EXCLUDED.accepted_at
	`, m.MatchID, m.OfferingUserID, m.RequestingUserID, m.SkillName, m.AcceptedAt)
	if err != nil {
		return fmt.Errorf("upserting active match: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetActiveMatch(ctx context.Context, matchID uuid.UUID) (*domain.ActiveMatch, error) {
	var m domain.ActiveMatch
	err := r.db.QueryRow(ctx, `
		SELECT match_id, offering_user_id, requesting_user_id, skill_name, accepted_at, active
		FROM active_matches WHERE match_id = $1
	`, matchID).Scan(&m.MatchID, &m.OfferingUserID, &m.RequestingUserID, &m.SkillName, &m.AcceptedAt, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotActive
		}
		return nil, fmt.Errorf("querying active match: %w", err)
	}
	return &m, nil
}

func (r *PostgresRepository) DeactivateMatch(ctx context.Context, matchID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE active_matches SET active = FALSE WHERE match_id = $1 AND active
	`, matchID)
	if err != nil {
		return 0, fmt.Errorf("deactivating match: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeactivateMatchesForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE active_matches SET active = FALSE
		WHERE active AND (offering_user_id = $1 OR requesting_user_id = $1)
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("deactivating matches for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CreateAppointment(ctx context.Context, a *domain.Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, match_id, booked_by, scheduled_for, duration_minutes, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.MatchID, a.BookedBy, a.ScheduledFor, a.DurationMinutes, a.Notes, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.QueryRow(ctx, `
		SELECT id, match_id, booked_by, scheduled_for, duration_minutes, notes, status, created_at, updated_at
		FROM appointments WHERE id = $1
	`, id).Scan(&a.ID, &a.MatchID, &a.BookedBy, &a.ScheduledFor, &a.DurationMinutes, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("querying appointment: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListAppointmentsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.match_id, a.booked_by, a.scheduled_for, a.duration_minutes, a.notes, a.status, a.created_at, a.updated_at
		FROM appointments a
		JOIN active_matches m ON m.match_id = a.match_id
		WHERE m.offering_user_id = $1 OR m.requesting_user_id = $1
		ORDER BY a.scheduled_for
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	defer rows.Close()

	var out []domain.Appointment
	for rows.Next() {
		var a domain.Appointment
		if err := rows.Scan(&a.ID, &a.MatchID, &a.BookedBy, &a.ScheduledFor, &a.DurationMinutes, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CancelAppointment(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, domain.AppointmentCancelled, at, id, domain.AppointmentScheduled)
	if err != nil {
		return fmt.Errorf("cancelling appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PostgresRepository) CancelOpenAppointmentsForMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE match_id = $3 AND status = $4
	`, domain.AppointmentCancelled, at, matchID, domain.AppointmentScheduled)
	if err != nil {
		return 0, fmt.Errorf("cancelling appointments for match: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CancelAppointmentsForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	// The user participates through the match projection, not just through
	// appointments they booked themselves.
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE status = $3
		  AND (booked_by = $4 OR match_id IN (
			SELECT match_id FROM active_matches
			WHERE offering_user_id = $4 OR requesting_user_id = $4
		  ))
	`, domain.AppointmentCancelled, at, domain.AppointmentScheduled, userID)
	if err != nil {
		return 0, fmt.Errorf("cancelling appointments for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CompletePastAppointments(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE status = $3
		  AND scheduled_for + make_interval(mins => duration_minutes) <= $2
	`, domain.AppointmentCompleted, now, domain.AppointmentScheduled)
	if err != nil {
		return 0, fmt.Errorf("completing past appointments: %w", err)
	}
	return tag.RowsAffected(), nil
}
