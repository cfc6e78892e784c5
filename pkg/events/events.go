/**
 * @description
 * This package defines the event contracts shared by all SkillSwap services.
 * Events are the only coupling between services: each service owns its own
 * database and reacts to the events the others publish.
 *
 * Every event travels inside an Envelope carrying a globally unique event ID,
 * the stable dotted event-type name (which doubles as the AMQP routing key),
 * and the UTC timestamp at which the event occurred. The payload is kept as
 * raw JSON so the generic store/replay path never needs to know the concrete
 * type.
 */
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Exchange names. user_events carries everything emitted by the
// users-service; match_events carries the match lifecycle.
const (
	UserEventsExchange  = "user_events"
	MatchEventsExchange = "match_events"
)

// Event type names. These are stable wire identifiers: they are stored in the
// event log, used as AMQP routing keys, and bound to handlers at startup.
// Renaming one is a breaking change for every consumer.
const (
	TypeUserDeleted        = "user.deleted"
	TypeUserProfileUpdated = "user.profile.updated"
	TypeSkillRemoved       = "user.skill.removed"

	TypeMatchAccepted  = "match.accepted"
	TypeMatchRejected  = "match.rejected"
	TypeMatchExpired   = "match.expired"
	TypeMatchCompleted = "match.completed"
	TypeMatchDissolved = "match.dissolved"
)

// Envelope wraps every event on the wire and in the event log.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredOn time.Time       `json:"occurred_on"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope builds an immutable envelope around the given payload. The
// event ID and timestamp are fixed at construction and never change.
func NewEnvelope(eventType string, payload interface{}) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredOn: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// Decode unmarshals the envelope payload into the given concrete event.
func (e Envelope) Decode(out interface{}) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// UserDeletedEvent is published when a user account is removed. Every other
// service deletes its own rows for the user in reaction to it.
type UserDeletedEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	DeletedBy string `json:"deleted_by"`
	Reason    string `json:"reason"`
}

// UserProfileUpdatedEvent carries the scoring-relevant slice of a profile so
// the matchmaking-service can keep a local projection and never has to call
// back into the users-service at scoring time.
type UserProfileUpdatedEvent struct {
	UserID         string   `json:"user_id"`
	Rating         float64  `json:"rating"`
	PreferredDays  []string `json:"preferred_days"`
	PreferredTimes []string `json:"preferred_times"`
	SkillsOffered  []string `json:"skills_offered"`
	SkillsWanted   []string `json:"skills_wanted"`
}

// SkillRemovedEvent is published when a user drops a skill from their
// profile. Open match requests built on that skill are no longer viable.
type SkillRemovedEvent struct {
	UserID    string `json:"user_id"`
	SkillName string `json:"skill_name"`
}

type MatchAcceptedEvent struct {
	MatchID          string    `json:"match_id"`
	OfferingUserID   string    `json:"offering_user_id"`
	RequestingUserID string    `json:"requesting_user_id"`
	SkillName        string    `json:"skill_name"`
	AcceptedAt       time.Time `json:"accepted_at"`
}

type MatchRejectedEvent struct {
	MatchID    string    `json:"match_id"`
	RejectedAt time.Time `json:"rejected_at"`
	Reason     string    `json:"reason"`
}

type MatchExpiredEvent struct {
	MatchID   string    `json:"match_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

type MatchCompletedEvent struct {
	MatchID     string    `json:"match_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type MatchDissolvedEvent struct {
	MatchID     string    `json:"match_id"`
	DissolvedAt time.Time `json:"dissolved_at"`
	Reason      string    `json:"reason"`
}
