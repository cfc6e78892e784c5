package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
)

var (
	// ErrAppointmentNotFound is returned when an appointment id resolves to
	// nothing.
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrMatchNotActive is returned when booking against a match this
	// service has not seen accepted, or has seen end.
	ErrMatchNotActive = errors.New("match is not active")
)

// Repository is the store surface used by the scheduling service and its
// consumers and jobs.
type Repository interface {
	// UpsertActiveMatch records an accepted match so bookings against it
	// are allowed. Idempotent on match id.
	UpsertActiveMatch(ctx context.Context, m domain.ActiveMatch) error
	GetActiveMatch(ctx context.Context, matchID uuid.UUID) (*domain.ActiveMatch, error)

	// DeactivateMatch flips the projection inactive. Returns the number of
	// rows changed; zero means the match was already inactive or unknown.
	DeactivateMatch(ctx context.Context, matchID uuid.UUID) (int64, error)
	DeactivateMatchesForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	CreateAppointment(ctx context.Context, a *domain.Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
	ListAppointmentsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, at time.Time) error

	CancelOpenAppointmentsForMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (int64, error)
	CancelAppointmentsForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)

	// CompletePastAppointments marks scheduled appointments whose end time
	// has passed as completed. Driven by the cron sweep.
	CompletePastAppointments(ctx context.Context, now time.Time) (int64, error)
}
