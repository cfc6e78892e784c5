/**
 * @description
 * Cascade consumers for the scheduling-service. Accepted matches open the
 * booking window by landing in the active-match projection; completed and
 * dissolved matches close it and cancel open appointments; deleted users
 * take their matches and appointments with them.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
	"github.com/skillswap/skillswap-backend/internal/scheduling/store"
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

// HandleMatchAccepted records the match in the projection so its parties
// can book appointments. Upserts are idempotent by construction.
func (h *CascadeHandler) HandleMatchAccepted(envelope events.Envelope) bool {
	var event events.MatchAcceptedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"malformed match.accepted payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	matchID, err := uuid.Parse(event.MatchID)
	if err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"invalid match id in match.accepted; dropping\" event_id=%s match_id=%q", envelope.EventID, event.MatchID)
		return true
	}
	offeringID, err := uuid.Parse(event.OfferingUserID)
	if err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"invalid offering user id; dropping\" event_id=%s user_id=%q", envelope.EventID, event.OfferingUserID)
		return true
	}
	requestingID, err := uuid.Parse(event.RequestingUserID)
	if err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"invalid requesting user id; dropping\" event_id=%s user_id=%q", envelope.EventID, event.RequestingUserID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := h.repo.UpsertActiveMatch(ctx, domain.ActiveMatch{
		MatchID:          matchID,
		OfferingUserID:   offeringID,
		RequestingUserID: requestingID,
		SkillName:        event.SkillName,
		AcceptedAt:       event.AcceptedAt,
		Active:           true,
	}); err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"match projection failed; re-queuing\" event_id=%s match_id=%s err=%v", envelope.EventID, matchID, err)
		return false
	}
	return true
}

// HandleMatchCompleted closes the booking window and cancels anything still
// scheduled on the match.
func (h *CascadeHandler) HandleMatchCompleted(envelope events.Envelope) bool {
	var event events.MatchCompletedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"malformed match.completed payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	return h.closeMatch(envelope, event.MatchID)
}

// HandleMatchDissolved behaves like completion for scheduling purposes.
func (h *CascadeHandler) HandleMatchDissolved(envelope events.Envelope) bool {
	var event events.MatchDissolvedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"malformed match.dissolved payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	return h.closeMatch(envelope, event.MatchID)
}

func (h *CascadeHandler) closeMatch(envelope events.Envelope, rawMatchID string) bool {
	matchID, err := uuid.Parse(rawMatchID)
	if err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"invalid match id; dropping\" event_id=%s match_id=%q", envelope.EventID, rawMatchID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if h.marker.Seen(ctx, envelope.EventID) {
		return true
	}

	if _, err := h.repo.DeactivateMatch(ctx, matchID); err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"match deactivation failed; re-queuing\" event_id=%s match_id=%s err=%v", envelope.EventID, matchID, err)
		return false
	}
	cancelled, err := h.repo.CancelOpenAppointmentsForMatch(ctx, matchID, h.now())
	if err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"appointment cascade failed; re-queuing\" event_id=%s match_id=%s err=%v", envelope.EventID, matchID, err)
		return false
	}

	if err := h.marker.MarkProcessed(ctx, envelope.EventID); err != nil {
		log.Printf("level=warn component=scheduling_consumer msg=\"failed to mark event processed\" event_id=%s err=%v", envelope.EventID, err)
	}
	log.Printf("level=info component=scheduling_consumer msg=\"match cascade applied\" event_id=%s match_id=%s appointments_cancelled=%d", envelope.EventID, matchID, cancelled)
	return true
}

// HandleUserDeleted deactivates the user's matches and cancels their open
// appointments. Zero rows changed is success: the cascade already ran.
func (h *CascadeHandler) HandleUserDeleted(envelope events.Envelope) bool {
	var event events.UserDeletedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"malformed user.deleted payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"invalid user id in user.deleted; dropping\" event_id=%s user_id=%q", envelope.EventID, event.UserID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if h.marker.Seen(ctx, envelope.EventID) {
		return true
	}

	// Cancellation runs before deactivation: the appointment query walks
	// the projection to find the user's matches.
	cancelled, err := h.repo.CancelAppointmentsForUser(ctx, userID, h.now())
	if err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"appointment cascade failed; re-queuing\" event_id=%s user_id=%s err=%v", envelope.EventID, userID, err)
		return false
	}
	if _, err := h.repo.DeactivateMatchesForUser(ctx, userID); err != nil {
		log.Printf("level=error component=scheduling_consumer msg=\"match cascade failed; re-queuing\" event_id=%s user_id=%s err=%v", envelope.EventID, userID, err)
		return false
	}

	if err := h.marker.MarkProcessed(ctx, envelope.EventID); err != nil {
		log.Printf("level=warn component=scheduling_consumer msg=\"failed to mark event processed\" event_id=%s err=%v", envelope.EventID, err)
	}
	log.Printf("level=info component=scheduling_consumer msg=\"user cascade applied\" event_id=%s user_id=%s appointments_cancelled=%d", envelope.EventID, userID, cancelled)
	return true
}
