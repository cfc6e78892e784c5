package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
	"github.com/skillswap/skillswap-backend/internal/scheduling/store"
)

func activeMatch(matchID uuid.UUID) *domain.ActiveMatch {
	return &domain.ActiveMatch{
		MatchID:          matchID,
		OfferingUserID:   uuid.New(),
		RequestingUserID: uuid.New(),
		SkillName:        "guitar",
		AcceptedAt:       time.Now().UTC(),
		Active:           true,
	}
}

func TestBookAppointmentStoresScheduled(t *testing.T) {
	repo := newRepoStub()
	matchID := uuid.New()
	m := activeMatch(matchID)
	repo.matches[matchID] = m

	svc := NewService(repo)
	a, err := svc.BookAppointment(context.Background(), BookParams{
		MatchID:      matchID,
		BookedBy:     m.RequestingUserID,
		ScheduledFor: time.Now().UTC().Add(24 * time.Hour),
		Notes:        "first session",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if a.Status != domain.AppointmentScheduled {
		t.Fatalf("expected scheduled, got %s", a.Status)
	}
	if _, ok := repo.appointments[a.ID]; !ok {
		t.Fatal("expected the appointment stored")
	}
}

func TestBookAppointmentRefusesInactiveMatch(t *testing.T) {
	repo := newRepoStub()
	matchID := uuid.New()
	m := activeMatch(matchID)
	m.Active = false
	repo.matches[matchID] = m

	svc := NewService(repo)
	if _, err := svc.BookAppointment(context.Background(), BookParams{
		MatchID:      matchID,
		BookedBy:     m.OfferingUserID,
		ScheduledFor: time.Now().UTC().Add(time.Hour),
	}); err != store.ErrMatchNotActive {
		t.Fatalf("expected ErrMatchNotActive, got %v", err)
	}
}

func TestBookAppointmentRefusesOutsiders(t *testing.T) {
	repo := newRepoStub()
	matchID := uuid.New()
	repo.matches[matchID] = activeMatch(matchID)

	svc := NewService(repo)
	if _, err := svc.BookAppointment(context.Background(), BookParams{
		MatchID:      matchID,
		BookedBy:     uuid.New(),
		ScheduledFor: time.Now().UTC().Add(time.Hour),
	}); err != domain.ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}
