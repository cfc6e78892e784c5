/**
 * @description
 * Application logic for appointment booking. Bookings are validated against
 * the active-match projection maintained by the event consumers; this
 * service never calls matchmaking synchronously to check match state.
 */
package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
	"github.com/skillswap/skillswap-backend/internal/scheduling/store"
)

type Service struct {
	repo store.Repository
	now  func() time.Time
}

func NewService(repo store.Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// BookParams describes a booking request.
type BookParams struct {
	MatchID         uuid.UUID
	BookedBy        uuid.UUID
	ScheduledFor    time.Time
	DurationMinutes int
	Notes           string
}

func (s *Service) BookAppointment(ctx context.Context, p BookParams) (*domain.Appointment, error) {
	match, err := s.repo.GetActiveMatch(ctx, p.MatchID)
	if err != nil {
		return nil, err
	}
	if !match.Active {
		return nil, store.ErrMatchNotActive
	}

	appointment, err := domain.NewAppointment(*match, p.BookedBy, p.ScheduledFor, p.DurationMinutes, p.Notes, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateAppointment(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *Service) ListAppointmentsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Appointment, error) {
	return s.repo.ListAppointmentsForUser(ctx, userID)
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	return s.repo.CancelAppointment(ctx, id, s.now())
}
