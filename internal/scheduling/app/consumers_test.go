package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
	"github.com/skillswap/skillswap-backend/internal/scheduling/store"
	"github.com/skillswap/skillswap-backend/pkg/dedupe"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

type repoStub struct {
	store.Repository

	matches      map[uuid.UUID]*domain.ActiveMatch
	appointments map[uuid.UUID]*domain.Appointment

	failNext bool
}

func newRepoStub() *repoStub {
	return &repoStub{
		matches:      make(map[uuid.UUID]*domain.ActiveMatch),
		appointments: make(map[uuid.UUID]*domain.Appointment),
	}
}

func (s *repoStub) UpsertActiveMatch(ctx context.Context, m domain.ActiveMatch) error {
	if s.failNext {
		return errors.New("store unavailable")
	}
	copied := m
	s.matches[m.MatchID] = &copied
	return nil
}

func (s *repoStub) GetActiveMatch(ctx context.Context, matchID uuid.UUID) (*domain.ActiveMatch, error) {
	m, ok := s.matches[matchID]
	if !ok {
		return nil, store.ErrMatchNotActive
	}
	copied := *m
	return &copied, nil
}

func (s *repoStub) DeactivateMatch(ctx context.Context, matchID uuid.UUID) (int64, error) {
	if s.failNext {
		return 0, errors.New("store unavailable")
	}
	m, ok := s.matches[matchID]
	if !ok || !m.Active {
		return 0, nil
	}
	m.Active = false
	return 1, nil
}

func (s *repoStub) DeactivateMatchesForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range s.matches {
		if m.Active && m.HasParticipant(userID) {
			m.Active = false
			n++
		}
	}
	return n, nil
}

func (s *repoStub) CreateAppointment(ctx context.Context, a *domain.Appointment) error {
	s.appointments[a.ID] = a
	return nil
}

func (s *repoStub) CancelOpenAppointmentsForMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	for _, a := range s.appointments {
		if a.MatchID == matchID && a.Status == domain.AppointmentScheduled {
			a.Status = domain.AppointmentCancelled
			a.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (s *repoStub) CancelAppointmentsForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	for _, a := range s.appointments {
		if a.Status != domain.AppointmentScheduled {
			continue
		}
		m, ok := s.matches[a.MatchID]
		if a.BookedBy == userID || (ok && m.HasParticipant(userID)) {
			a.Status = domain.AppointmentCancelled
			a.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (s *repoStub) CompletePastAppointments(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, a := range s.appointments {
		if a.Status == domain.AppointmentScheduled && !a.EndsAt().After(now) {
			a.Status = domain.AppointmentCompleted
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func acceptedEnvelope(t *testing.T, matchID, offering, requesting uuid.UUID) events.Envelope {
	t.Helper()
	envelope, err := events.NewEnvelope(events.TypeMatchAccepted, events.MatchAcceptedEvent{
		MatchID:          matchID.String(),
		OfferingUserID:   offering.String(),
		RequestingUserID: requesting.String(),
		SkillName:        "guitar",
		AcceptedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("building envelope: %v", err)
	}
	return envelope
}

func bookedAppointment(t *testing.T, repo *repoStub, matchID uuid.UUID) *domain.Appointment {
	t.Helper()
	m, err := repo.GetActiveMatch(context.Background(), matchID)
	if err != nil {
		t.Fatalf("match not projected: %v", err)
	}
	now := time.Now().UTC()
	a, err := domain.NewAppointment(*m, m.OfferingUserID, now.Add(time.Hour), 60, "", now)
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if err := repo.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("storing appointment: %v", err)
	}
	return a
}

func TestHandleMatchAcceptedProjectsMatch(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))
	matchID := uuid.New()

	if !h.HandleMatchAccepted(acceptedEnvelope(t, matchID, uuid.New(), uuid.New())) {
		t.Fatal("expected ack")
	}
	m, ok := repo.matches[matchID]
	if !ok || !m.Active {
		t.Fatal("expected an active projection for the match")
	}
}

func TestHandleMatchCompletedCancelsOpenAppointments(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))
	matchID := uuid.New()
	if !h.HandleMatchAccepted(acceptedEnvelope(t, matchID, uuid.New(), uuid.New())) {
		t.Fatal("projection failed")
	}
	appointment := bookedAppointment(t, repo, matchID)

	envelope, err := events.NewEnvelope(events.TypeMatchCompleted, events.MatchCompletedEvent{
		MatchID:     matchID.String(),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("building envelope: %v", err)
	}
	if !h.HandleMatchCompleted(envelope) {
		t.Fatal("expected ack")
	}
	if repo.matches[matchID].Active {
		t.Fatal("match must deactivate on completion")
	}
	if repo.appointments[appointment.ID].Status != domain.AppointmentCancelled {
		t.Fatal("open appointments must cancel on completion")
	}

	// Redelivery finds nothing left to do and still acks.
	redelivery, _ := events.NewEnvelope(events.TypeMatchCompleted, events.MatchCompletedEvent{
		MatchID:     matchID.String(),
		CompletedAt: time.Now().UTC(),
	})
	if !h.HandleMatchCompleted(redelivery) {
		t.Fatal("redelivery must ack")
	}
}

func TestHandleUserDeletedCancelsAndDeactivates(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))
	matchID, offering := uuid.New(), uuid.New()
	if !h.HandleMatchAccepted(acceptedEnvelope(t, matchID, offering, uuid.New())) {
		t.Fatal("projection failed")
	}
	appointment := bookedAppointment(t, repo, matchID)

	envelope, err := events.NewEnvelope(events.TypeUserDeleted, events.UserDeletedEvent{
		UserID: offering.String(),
		Email:  "ana@example.com",
	})
	if err != nil {
		t.Fatalf("building envelope: %v", err)
	}
	if !h.HandleUserDeleted(envelope) {
		t.Fatal("expected ack")
	}
	if repo.appointments[appointment.ID].Status != domain.AppointmentCancelled {
		t.Fatal("the deleted user's appointments must cancel")
	}
	if repo.matches[matchID].Active {
		t.Fatal("the deleted user's matches must deactivate")
	}
}

func TestHandleMatchAcceptedRequeuesOnStoreFailure(t *testing.T) {
	repo := newRepoStub()
	repo.failNext = true
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))

	if h.HandleMatchAccepted(acceptedEnvelope(t, uuid.New(), uuid.New(), uuid.New())) {
		t.Fatal("store failures must re-queue")
	}
}
