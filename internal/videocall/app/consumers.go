/**
 * @description
 * Cascade consumers for the videocall-service. An accepted match provisions
 * a call session; completed and dissolved matches close it; a deleted user
 * is pulled out of every room. All reactions are local writes keyed to make
 * redelivery harmless.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/videocall/domain"
	"github.com/skillswap/skillswap-backend/internal/videocall/store"
	"github.com/skillswap/skillswap-backend/pkg/dedupe"
	"github.com/skillswap/skillswap-backend/pkg/events"
	"github.com/skillswap/skillswap-backend/pkg/rabbitmq"
)

const handlerTimeout = 30 * time.Second

// CascadeHandler reacts to match and user events.
type CascadeHandler struct {
	repo   store.Repository
	marker *dedupe.Marker
	now    func() time.Time
}

func NewCascadeHandler(repo store.Repository, marker *dedupe.Marker) *CascadeHandler {
	return &CascadeHandler{
		repo:   repo,
		marker: marker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// MatchBindings returns the routing-key handler table for the match queue.
func (h *CascadeHandler) MatchBindings() map[string]rabbitmq.HandlerFunc {
	return map[string]rabbitmq.HandlerFunc{
		events.TypeMatchAccepted:  h.HandleMatchAccepted,
		events.TypeMatchCompleted: h.HandleMatchCompleted,
		events.TypeMatchDissolved: h.HandleMatchDissolved,
	}
}

// UserBindings returns the routing-key handler table for the user queue.
func (h *CascadeHandler) UserBindings() map[string]rabbitmq.HandlerFunc {
	return map[string]rabbitmq.HandlerFunc{
		events.TypeUserDeleted: h.HandleUserDeleted,
	}
}

// HandleMatchAccepted provisions a session with both match parties. The
// store treats an existing session for the match as success, so redelivery
// never opens a second room.
func (h *CascadeHandler) HandleMatchAccepted(envelope events.Envelope) bool {
	var event events.MatchAcceptedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"malformed match.accepted payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	matchID, err := uuid.Parse(event.MatchID)
	if err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"invalid match id in match.accepted; dropping\" event_id=%s match_id=%q", envelope.EventID, event.MatchID)
		return true
	}
	offeringID, err := uuid.Parse(event.OfferingUserID)
	if err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"invalid offering user id; dropping\" event_id=%s user_id=%q", envelope.EventID, event.OfferingUserID)
		return true
	}
	requestingID, err := uuid.Parse(event.RequestingUserID)
	if err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"invalid requesting user id; dropping\" event_id=%s user_id=%q", envelope.EventID, event.RequestingUserID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if h.marker.Seen(ctx, envelope.EventID) {
		return true
	}

	now := h.now()
	session := domain.NewSession(matchID, event.SkillName, now)
	participants := []domain.Participant{
		domain.NewParticipant(session.ID, offeringID, now),
		domain.NewParticipant(session.ID, requestingID, now),
	}
	if err := h.repo.CreateSession(ctx, session, participants); err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"session provisioning failed; re-queuing\" event_id=%s match_id=%s err=%v", envelope.EventID, matchID, err)
		return false
	}

	if err := h.marker.MarkProcessed(ctx, envelope.EventID); err != nil {
		log.Printf("level=warn component=videocall_consumer msg=\"failed to mark event processed\" event_id=%s err=%v", envelope.EventID, err)
	}
	log.Printf("level=info component=videocall_consumer msg=\"session provisioned\" event_id=%s match_id=%s", envelope.EventID, matchID)
	return true
}

// HandleMatchCompleted closes the session for a finished exchange. Zero
// sessions closed is success: the room was already ended or never opened.
func (h *CascadeHandler) HandleMatchCompleted(envelope events.Envelope) bool {
	var event events.MatchCompletedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"malformed match.completed payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	return h.endSessionForMatch(envelope, event.MatchID)
}

// HandleMatchDissolved closes the session for a dissolved match.
func (h *CascadeHandler) HandleMatchDissolved(envelope events.Envelope) bool {
	var event events.MatchDissolvedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"malformed match.dissolved payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	return h.endSessionForMatch(envelope, event.MatchID)
}

func (h *CascadeHandler) endSessionForMatch(envelope events.Envelope, rawMatchID string) bool {
	matchID, err := uuid.Parse(rawMatchID)
	if err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"invalid match id; dropping\" event_id=%s match_id=%q", envelope.EventID, rawMatchID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if h.marker.Seen(ctx, envelope.EventID) {
		return true
	}

	ended, err := h.repo.EndSessionForMatch(ctx, matchID, h.now())
	if err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"session close failed; re-queuing\" event_id=%s match_id=%s err=%v", envelope.EventID, matchID, err)
		return false
	}

	if err := h.marker.MarkProcessed(ctx, envelope.EventID); err != nil {
		log.Printf("level=warn component=videocall_consumer msg=\"failed to mark event processed\" event_id=%s err=%v", envelope.EventID, err)
	}
	log.Printf("level=info component=videocall_consumer msg=\"session cascade applied\" event_id=%s match_id=%s sessions_ended=%d", envelope.EventID, matchID, ended)
	return true
}

// HandleUserDeleted removes the user from every room. Zero rows deleted is
// success: the cascade already ran.
func (h *CascadeHandler) HandleUserDeleted(envelope events.Envelope) bool {
	var event events.UserDeletedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"malformed user.deleted payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"invalid user id in user.deleted; dropping\" event_id=%s user_id=%q", envelope.EventID, event.UserID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if h.marker.Seen(ctx, envelope.EventID) {
		return true
	}

	removed, err := h.repo.RemoveParticipant(ctx, userID, h.now())
	if err != nil {
		log.Printf("level=error component=videocall_consumer msg=\"participant cascade failed; re-queuing\" event_id=%s user_id=%s err=%v", envelope.EventID, userID, err)
		return false
	}

	if err := h.marker.MarkProcessed(ctx, envelope.EventID); err != nil {
		log.Printf("level=warn component=videocall_consumer msg=\"failed to mark event processed\" event_id=%s err=%v", envelope.EventID, err)
	}
	log.Printf("level=info component=videocall_consumer msg=\"user cascade applied\" event_id=%s user_id=%s participants_removed=%d", envelope.EventID, userID, removed)
	return true
}
