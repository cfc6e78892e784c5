package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/videocall/domain"
	"github.com/skillswap/skillswap-backend/internal/videocall/store"
	"github.com/skillswap/skillswap-backend/pkg/dedupe"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

type repoStub struct {
	store.Repository

	sessions     map[uuid.UUID]*domain.CallSession
	participants map[uuid.UUID][]domain.Participant

	failNext bool
}

func newRepoStub() *repoStub {
	return &repoStub{
		sessions:     make(map[uuid.UUID]*domain.CallSession),
		participants: make(map[uuid.UUID][]domain.Participant),
	}
}

func (s *repoStub) CreateSession(ctx context.Context, session *domain.CallSession, participants []domain.Participant) error {
	if s.failNext {
		return errors.New("store unavailable")
	}
	if _, ok := s.sessions[session.MatchID]; ok {
		return nil
	}
	s.sessions[session.MatchID] = session
	s.participants[session.ID] = participants
	return nil
}

func (s *repoStub) EndSessionForMatch(ctx context.Context, matchID uuid.UUID, endedAt time.Time) (int64, error) {
	if s.failNext {
		return 0, errors.New("store unavailable")
	}
	session, ok := s.sessions[matchID]
	if !ok || session.Status != domain.SessionActive {
		return 0, nil
	}
	session.Status = domain.SessionEnded
	session.EndedAt = &endedAt
	return 1, nil
}

func (s *repoStub) RemoveParticipant(ctx context.Context, userID uuid.UUID, endedAt time.Time) (int64, error) {
	if s.failNext {
		return 0, errors.New("store unavailable")
	}
	var removed int64
	for sessionID, list := range s.participants {
		kept := list[:0:0]
		for _, p := range list {
			if p.UserID == userID {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) != len(list) {
			s.participants[sessionID] = kept
			for _, session := range s.sessions {
				if session.ID == sessionID && session.Status == domain.SessionActive {
					session.Status = domain.SessionEnded
					session.EndedAt = &endedAt
				}
			}
		}
	}
	return removed, nil
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

func TestHandleMatchAcceptedProvisionsSession(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))
	matchID, offering, requesting := uuid.New(), uuid.New(), uuid.New()

	if !h.HandleMatchAccepted(acceptedEnvelope(t, matchID, offering, requesting)) {
		t.Fatal("expected ack")
	}
	session, ok := repo.sessions[matchID]
	if !ok {
		t.Fatal("expected a session for the match")
	}
	if session.Status != domain.SessionActive {
		t.Fatalf("expected active session, got %s", session.Status)
	}
	participants := repo.participants[session.ID]
	if len(participants) != 2 {
		t.Fatalf("expected both parties admitted, got %d", len(participants))
	}
}

func TestHandleMatchAcceptedRedeliveryKeepsOneSession(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))
	matchID, offering, requesting := uuid.New(), uuid.New(), uuid.New()

	first := acceptedEnvelope(t, matchID, offering, requesting)
	second := acceptedEnvelope(t, matchID, offering, requesting)
	if !h.HandleMatchAccepted(first) || !h.HandleMatchAccepted(second) {
		t.Fatal("expected both deliveries acked")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected exactly one session, got %d", len(repo.sessions))
	}
}

func TestHandleMatchAcceptedDropsMalformedPayload(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))

	envelope := events.Envelope{
		EventID:    uuid.NewString(),
		EventType:  events.TypeMatchAccepted,
		OccurredOn: time.Now().UTC(),
		Payload:    json.RawMessage(`{"match_id": "not-a-uuid"}`),
	}
	if !h.HandleMatchAccepted(envelope) {
		t.Fatal("malformed payloads must be acked, not re-queued")
	}
	if len(repo.sessions) != 0 {
		t.Fatal("malformed payloads must not create sessions")
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

func TestHandleMatchCompletedEndsSession(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))
	matchID := uuid.New()
	if !h.HandleMatchAccepted(acceptedEnvelope(t, matchID, uuid.New(), uuid.New())) {
		t.Fatal("provisioning failed")
	}

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
	if repo.sessions[matchID].Status != domain.SessionEnded {
		t.Fatalf("expected ended session, got %s", repo.sessions[matchID].Status)
	}

	// Second delivery finds the session already ended and still acks.
	redelivery, _ := events.NewEnvelope(events.TypeMatchCompleted, events.MatchCompletedEvent{
		MatchID:     matchID.String(),
		CompletedAt: time.Now().UTC(),
	})
	if !h.HandleMatchCompleted(redelivery) {
		t.Fatal("redelivery on an ended session must ack")
	}
}

func TestHandleUserDeletedRemovesParticipantAndEndsRoom(t *testing.T) {
	repo := newRepoStub()
	h := NewCascadeHandler(repo, dedupe.NewMarker(nil, ""))
	matchID, offering, requesting := uuid.New(), uuid.New(), uuid.New()
	if !h.HandleMatchAccepted(acceptedEnvelope(t, matchID, offering, requesting)) {
		t.Fatal("provisioning failed")
	}

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

	session := repo.sessions[matchID]
	if session.Status != domain.SessionEnded {
		t.Fatal("session must end when a party is deleted")
	}
	for _, p := range repo.participants[session.ID] {
		if p.UserID == offering {
			t.Fatal("deleted user must not remain a participant")
		}
	}
}
