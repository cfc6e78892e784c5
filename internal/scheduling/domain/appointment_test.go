package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewAppointmentRequiresParticipant(t *testing.T) {
	match := ActiveMatch{
		MatchID:          uuid.New(),
		OfferingUserID:   uuid.New(),
		RequestingUserID: uuid.New(),
		Active:           true,
	}
	now := time.Now().UTC()

	if _, err := NewAppointment(match, uuid.New(), now.Add(time.Hour), 60, "", now); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := NewAppointment(match, match.OfferingUserID, now.Add(time.Hour), 60, "", now); err != nil {
		t.Fatalf("offering party must be able to book, got %v", err)
	}
	if _, err := NewAppointment(match, match.RequestingUserID, now.Add(time.Hour), 60, "", now); err != nil {
		t.Fatalf("requesting party must be able to book, got %v", err)
	}
}

func TestNewAppointmentRejectsPastSlots(t *testing.T) {
	match := ActiveMatch{
		MatchID:          uuid.New(),
		OfferingUserID:   uuid.New(),
		RequestingUserID: uuid.New(),
	}
	now := time.Now().UTC()

	if _, err := NewAppointment(match, match.OfferingUserID, now.Add(-time.Minute), 60, "", now); err != ErrPastAppointment {
		t.Fatalf("expected ErrPastAppointment, got %v", err)
	}
	if _, err := NewAppointment(match, match.OfferingUserID, now, 60, "", now); err != ErrPastAppointment {
		t.Fatalf("booking exactly now must fail, got %v", err)
	}
}

func TestNewAppointmentDefaultsDuration(t *testing.T) {
	match := ActiveMatch{
		MatchID:        uuid.New(),
		OfferingUserID: uuid.New(),
	}
	now := time.Now().UTC()

	a, err := NewAppointment(match, match.OfferingUserID, now.Add(time.Hour), 0, "intro session", now)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if a.DurationMinutes != 60 {
		t.Fatalf("expected default 60 minutes, got %d", a.DurationMinutes)
	}
	if got := a.EndsAt(); !got.Equal(a.ScheduledFor.Add(time.Hour)) {
		t.Fatalf("unexpected end time %v", got)
	}
	if a.Status != AppointmentScheduled {
		t.Fatalf("expected scheduled status, got %s", a.Status)
	}
}
