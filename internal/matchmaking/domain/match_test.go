package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func pendingMatch() *Match {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return NewMatch(uuid.New(), uuid.New(), "piano", false, "", 0.72, now)
}

func TestNewMatchStartsPending(t *testing.T) {
	m := pendingMatch()
	if m.Status != StatusPending {
		t.Fatalf("expected pending, got %s", m.Status)
	}
	if m.Terminal() {
		t.Fatal("pending must not be terminal")
	}
}

func TestAcceptEmitsEventWithParticipants(t *testing.T) {
	m := pendingMatch()
	now := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)

	ev, err := m.Accept(now)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if m.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", m.Status)
	}
	if ev.MatchID != m.ID.String() {
		t.Fatalf("event match id mismatch: %s vs %s", ev.MatchID, m.ID)
	}
	if ev.OfferingUserID != m.TargetID.String() || ev.RequestingUserID != m.RequesterID.String() {
		t.Fatal("event participants mismatch")
	}
	if !ev.AcceptedAt.Equal(now) {
		t.Fatalf("expected accepted_at %v, got %v", now, ev.AcceptedAt)
	}
}

func TestPendingTransitions(t *testing.T) {
	now := time.Now().UTC()

	m := pendingMatch()
	if _, err := m.Reject(now, "not available"); err != nil {
		t.Fatalf("reject from pending: %v", err)
	}
	if m.Status != StatusRejected || !m.Terminal() {
		t.Fatalf("expected terminal rejected, got %s", m.Status)
	}

	m = pendingMatch()
	if _, err := m.Expire(now); err != nil {
		t.Fatalf("expire from pending: %v", err)
	}
	if m.Status != StatusExpired || !m.Terminal() {
		t.Fatalf("expected terminal expired, got %s", m.Status)
	}
}

func TestAcceptedTransitions(t *testing.T) {
	now := time.Now().UTC()

	m := pendingMatch()
	if _, err := m.Accept(now); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := m.Complete(now); err != nil {
		t.Fatalf("complete from accepted: %v", err)
	}
	if m.Status != StatusCompleted || !m.Terminal() {
		t.Fatalf("expected terminal completed, got %s", m.Status)
	}

	m = pendingMatch()
	if _, err := m.Accept(now); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := m.Dissolve(now, "partner unresponsive"); err != nil {
		t.Fatalf("dissolve from accepted: %v", err)
	}
	if m.Status != StatusDissolved || !m.Terminal() {
		t.Fatalf("expected terminal dissolved, got %s", m.Status)
	}
}

func TestGuardsRejectInvalidTransitions(t *testing.T) {
	now := time.Now().UTC()

	// Cannot complete or dissolve a pending match.
	m := pendingMatch()
	if _, err := m.Complete(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := m.Dissolve(now, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// Terminal states refuse everything.
	m = pendingMatch()
	if _, err := m.Reject(now, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := m.Accept(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after reject, got %v", err)
	}

	// Accepted cannot be accepted twice or expired.
	m = pendingMatch()
	if _, err := m.Accept(now); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := m.Accept(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double accept, got %v", err)
	}
	if _, err := m.Expire(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition expiring accepted, got %v", err)
	}

	// Failed transition must not move the state.
	if m.Status != StatusAccepted {
		t.Fatalf("guard failure mutated state to %s", m.Status)
	}
}
