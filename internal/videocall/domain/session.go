package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks whether a call room is still open.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// CallSession is one provisioned call room for an accepted match. The
// service stores session and participant state only; media negotiation
// happens elsewhere.
type CallSession struct {
	ID        uuid.UUID
	MatchID   uuid.UUID
	SkillName string
	RoomCode  string
	Status    SessionStatus
	CreatedAt time.Time
	EndedAt   *time.Time
}

// Participant is one user admitted to a call session.
type Participant struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID
	JoinedAt  time.Time
}

// NewSession provisions an active session for a match. The room code is
// opaque to this service; clients exchange it out of band.
func NewSession(matchID uuid.UUID, skillName string, now time.Time) *CallSession {
	return &CallSession{
		ID:        uuid.New(),
		MatchID:   matchID,
		SkillName: skillName,
		RoomCode:  uuid.NewString(),
		Status:    SessionActive,
		CreatedAt: now,
	}
}

// NewParticipant admits a user to a session.
func NewParticipant(sessionID, userID uuid.UUID, now time.Time) Participant {
	return Participant{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		JoinedAt:  now,
	}
}
