package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/pkg/events"
)

// MatchStatus is the lifecycle state of a match request.
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusAccepted  MatchStatus = "accepted"
	StatusRejected  MatchStatus = "rejected"
	StatusExpired   MatchStatus = "expired"
	StatusCompleted MatchStatus = "completed"
	StatusDissolved MatchStatus = "dissolved"
)

// ErrInvalidTransition is returned when a lifecycle method is called on a
// match that is not in the required state. Guards live here, in the owning
// aggregate — consumers downstream only react to the emitted events.
var ErrInvalidTransition = errors.New("invalid match state transition")

// Match is a request from RequesterID to learn SkillName from TargetID.
// Transitions: pending -> accepted | rejected | expired; accepted ->
// completed | dissolved. All other states are terminal. Each successful
// transition emits exactly one event, persisted in the same transaction as
// the state change.
type Match struct {
	ID                uuid.UUID
	RequesterID       uuid.UUID
	TargetID          uuid.UUID
	SkillName         string
	IsExchange        bool
	ExchangeSkillName string
	Score             float64
	Status            MatchStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewMatch creates a pending match request with a precomputed score.
func NewMatch(requesterID, targetID uuid.UUID, skillName string, isExchange bool, exchangeSkillName string, score float64, now time.Time) *Match {
	return &Match{
		ID:                uuid.New(),
		RequesterID:       requesterID,
		TargetID:          targetID,
		SkillName:         skillName,
		IsExchange:        isExchange,
		ExchangeSkillName: exchangeSkillName,
		Score:             score,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Accept moves a pending match to accepted.
func (m *Match) Accept(now time.Time) (events.MatchAcceptedEvent, error) {
	if m.Status != StatusPending {
		return events.MatchAcceptedEvent{}, fmt.Errorf("%w: cannot accept a %s match", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusAccepted
	m.UpdatedAt = now
	return events.MatchAcceptedEvent{
		MatchID:          m.ID.String(),
		OfferingUserID:   m.TargetID.String(),
		RequestingUserID: m.RequesterID.String(),
		SkillName:        m.SkillName,
		AcceptedAt:       now,
	}, nil
}

// Reject moves a pending match to rejected. Terminal.
func (m *Match) Reject(now time.Time, reason string) (events.MatchRejectedEvent, error) {
	if m.Status != StatusPending {
		return events.MatchRejectedEvent{}, fmt.Errorf("%w: cannot reject a %s match", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusRejected
	m.UpdatedAt = now
	return events.MatchRejectedEvent{
		MatchID:    m.ID.String(),
		RejectedAt: now,
		Reason:     reason,
	}, nil
}

// Expire moves a pending match to expired. Terminal. Driven by the
// scheduling-service sweep, but the transition itself always runs here.
func (m *Match) Expire(now time.Time) (events.MatchExpiredEvent, error) {
	if m.Status != StatusPending {
		return events.MatchExpiredEvent{}, fmt.Errorf("%w: cannot expire a %s match", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusExpired
	m.UpdatedAt = now
	return events.MatchExpiredEvent{
		MatchID:   m.ID.String(),
		ExpiredAt: now,
	}, nil
}

// Complete moves an accepted match to completed. Terminal.
func (m *Match) Complete(now time.Time) (events.MatchCompletedEvent, error) {
	if m.Status != StatusAccepted {
		return events.MatchCompletedEvent{}, fmt.Errorf("%w: cannot complete a %s match", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusCompleted
	m.UpdatedAt = now
	return events.MatchCompletedEvent{
		MatchID:     m.ID.String(),
		CompletedAt: now,
	}, nil
}

// Dissolve moves an accepted match to dissolved. Terminal.
func (m *Match) Dissolve(now time.Time, reason string) (events.MatchDissolvedEvent, error) {
	if m.Status != StatusAccepted {
		return events.MatchDissolvedEvent{}, fmt.Errorf("%w: cannot dissolve a %s match", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusDissolved
	m.UpdatedAt = now
	return events.MatchDissolvedEvent{
		MatchID:     m.ID.String(),
		DissolvedAt: now,
		Reason:      reason,
	}, nil
}

// Terminal reports whether the match can never change state again.
func (m *Match) Terminal() bool {
	switch m.Status {
	case StatusRejected, StatusExpired, StatusCompleted, StatusDissolved:
		return true
	}
	return false
}
