package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/scheduling/config"
	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
)

type matchClientStub struct {
	calls   []int
	expired int
	err     error
}

func (s *matchClientStub) ExpireStaleMatches(ctx context.Context, maxAgeHours int) (int, error) {
	s.calls = append(s.calls, maxAgeHours)
	return s.expired, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpirePendingMatchesUsesConfiguredWindow(t *testing.T) {
	client := &matchClientStub{expired: 2}
	jobs := NewJobs(newRepoStub(), client, discardLogger(), config.Config{MatchExpiryMaxHours: 72})

	jobs.ExpirePendingMatches()
	if len(client.calls) != 1 || client.calls[0] != 72 {
		t.Fatalf("expected one call with 72h window, got %v", client.calls)
	}
}

func TestExpirePendingMatchesToleratesClientFailure(t *testing.T) {
	client := &matchClientStub{err: errors.New("matchmaking unreachable")}
	jobs := NewJobs(newRepoStub(), client, discardLogger(), config.Config{MatchExpiryMaxHours: 72})

	// Must not panic; cron re-runs on the next tick.
	jobs.ExpirePendingMatches()
}

func TestCompletePastAppointmentsFlipsOnlyEndedOnes(t *testing.T) {
	repo := newRepoStub()
	now := time.Now().UTC()

	past := &domain.Appointment{
		ID:              uuid.New(),
		MatchID:         uuid.New(),
		ScheduledFor:    now.Add(-2 * time.Hour),
		DurationMinutes: 60,
		Status:          domain.AppointmentScheduled,
	}
	running := &domain.Appointment{
		ID:              uuid.New(),
		MatchID:         uuid.New(),
		ScheduledFor:    now.Add(-30 * time.Minute),
		DurationMinutes: 60,
		Status:          domain.AppointmentScheduled,
	}
	repo.appointments[past.ID] = past
	repo.appointments[running.ID] = running

	jobs := NewJobs(repo, &matchClientStub{}, discardLogger(), config.Config{})
	jobs.now = func() time.Time { return now }
	jobs.CompletePastAppointments()

	if past.Status != domain.AppointmentCompleted {
		t.Fatal("an ended appointment must complete")
	}
	if running.Status != domain.AppointmentScheduled {
		t.Fatal("a session still running must stay scheduled")
	}
}
