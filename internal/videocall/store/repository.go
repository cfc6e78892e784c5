package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/videocall/domain"
)

// ErrSessionNotFound is returned when a match has no provisioned session.
var ErrSessionNotFound = errors.New("call session not found")

// Repository is the store surface used by the videocall consumers and API.
type Repository interface {
	// CreateSession provisions the session and its participants. A session
	// already existing for the match is success, not an error; redelivered
	// match.accepted events must not open a second room.
	CreateSession(ctx context.Context, session *domain.CallSession, participants []domain.Participant) error

	GetSessionByMatch(ctx context.Context, matchID uuid.UUID) (*domain.CallSession, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]domain.Participant, error)
	ListSessionsForUser(ctx context.Context, userID uuid.UUID) ([]domain.CallSession, error)

	// EndSessionForMatch closes the active session for the match. Returns
	// the number of sessions closed; zero means the session was already
	// ended or never existed.
	EndSessionForMatch(ctx context.Context, matchID uuid.UUID, endedAt time.Time) (int64, error)

	// RemoveParticipant deletes the user's participant rows across all
	// sessions and ends any active session the user was part of.
	RemoveParticipant(ctx context.Context, userID uuid.UUID, endedAt time.Time) (int64, error)
}
