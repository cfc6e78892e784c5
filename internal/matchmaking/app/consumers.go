/**
 * @description
 * Cascade consumers for the matchmaking-service. When another service
 * deletes a user or a skill, the handlers below delete the dependent rows in
 * this service's own store — no distributed transaction, just an idempotent
 * local reaction to the event.
 *
 * Handler contract: return true to acknowledge, false to re-queue. The bus
 * delivers at least once, so every handler must tolerate redelivery. A Redis
 * marker short-circuits known event IDs; the delete-where cascades are
 * naturally idempotent anyway.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/matchmaking/domain"
	"github.com/skillswap/skillswap-backend/internal/matchmaking/store"
	"github.com/skillswap/skillswap-backend/pkg/dedupe"
	"github.com/skillswap/skillswap-backend/pkg/events"
	"github.com/skillswap/skillswap-backend/pkg/rabbitmq"
)

const handlerTimeout = 30 * time.Second

// CascadeHandler reacts to user-service events.
type CascadeHandler struct {
	repo   store.Repository
	marker *dedupe.Marker
}

func NewCascadeHandler(repo store.Repository, marker *dedupe.Marker) *CascadeHandler {
	return &CascadeHandler{repo: repo, marker: marker}
}

// Bindings returns the routing-key handler table for the service queue.
// Registered once at startup; unknown event types never reach a handler.
func (h *CascadeHandler) Bindings() map[string]rabbitmq.HandlerFunc {
	return map[string]rabbitmq.HandlerFunc{
		events.TypeUserDeleted:        h.HandleUserDeleted,
		events.TypeSkillRemoved:       h.HandleSkillRemoved,
		events.TypeUserProfileUpdated: h.HandleProfileUpdated,
	}
}

// HandleUserDeleted removes every match and the profile projection for the
// deleted user. Zero rows deleted is success: the cascade already ran.
func (h *CascadeHandler) HandleUserDeleted(envelope events.Envelope) bool {
	var event events.UserDeletedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"malformed user.deleted payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"invalid user id in user.deleted; dropping\" event_id=%s user_id=%q", envelope.EventID, event.UserID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if h.marker.Seen(ctx, envelope.EventID) {
		return true
	}

	deleted, err := h.repo.DeleteMatchesForUser(ctx, userID)
	if err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"match cascade failed; re-queuing\" event_id=%s user_id=%s err=%v", envelope.EventID, userID, err)
		return false
	}
	if err := h.repo.DeleteProfile(ctx, userID); err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"profile cascade failed; re-queuing\" event_id=%s user_id=%s err=%v", envelope.EventID, userID, err)
		return false
	}

	if err := h.marker.MarkProcessed(ctx, envelope.EventID); err != nil {
		log.Printf("level=warn component=matchmaking_consumer msg=\"failed to mark event processed\" event_id=%s err=%v", envelope.EventID, err)
	}
	log.Printf("level=info component=matchmaking_consumer msg=\"user cascade applied\" event_id=%s user_id=%s matches_deleted=%d", envelope.EventID, userID, deleted)
	return true
}

// HandleSkillRemoved drops pending matches built on a skill the user no
// longer lists. Accepted matches survive: the pairing already committed.
func (h *CascadeHandler) HandleSkillRemoved(envelope events.Envelope) bool {
	var event events.SkillRemovedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"malformed skill.removed payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"invalid user id in skill.removed; dropping\" event_id=%s user_id=%q", envelope.EventID, event.UserID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if h.marker.Seen(ctx, envelope.EventID) {
		return true
	}

	deleted, err := h.repo.DeletePendingMatchesForSkill(ctx, userID, event.SkillName)
	if err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"skill cascade failed; re-queuing\" event_id=%s user_id=%s err=%v", envelope.EventID, userID, err)
		return false
	}

	if err := h.marker.MarkProcessed(ctx, envelope.EventID); err != nil {
		log.Printf("level=warn component=matchmaking_consumer msg=\"failed to mark event processed\" event_id=%s err=%v", envelope.EventID, err)
	}
	log.Printf("level=info component=matchmaking_consumer msg=\"skill cascade applied\" event_id=%s user_id=%s skill=%s matches_deleted=%d", envelope.EventID, userID, event.SkillName, deleted)
	return true
}

// HandleProfileUpdated upserts the local scoring projection. Upserts are
// idempotent by construction.
func (h *CascadeHandler) HandleProfileUpdated(envelope events.Envelope) bool {
	var event events.UserProfileUpdatedEvent
	if err := envelope.Decode(&event); err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"malformed profile payload; dropping\" event_id=%s err=%v", envelope.EventID, err)
		return true
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"invalid user id in profile event; dropping\" event_id=%s user_id=%q", envelope.EventID, event.UserID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	profile := domain.Profile{
		UserID:         userID,
		Rating:         event.Rating,
		PreferredDays:  event.PreferredDays,
		PreferredTimes: event.PreferredTimes,
		SkillsOffered:  event.SkillsOffered,
		SkillsWanted:   event.SkillsWanted,
		UpdatedAt:      envelope.OccurredOn,
	}
	if err := h.repo.UpsertProfile(ctx, profile); err != nil {
		log.Printf("level=error component=matchmaking_consumer msg=\"profile upsert failed; re-queuing\" event_id=%s user_id=%s err=%v", envelope.EventID, userID, err)
		return false
	}
	return true
}
