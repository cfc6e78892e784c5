/**
 * @description
 * This file defines the data access contract for the matchmaking-service.
 * The interface is implemented by the Postgres repository and stubbed in
 * tests. The matchmaking-service owns its store exclusively; nothing else
 * reads or writes these tables.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/matchmaking/domain"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

var (
	// ErrMatchNotFound is returned when a match id resolves to nothing.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchConflict is returned when a guarded status update finds the
	// row already moved past the expected state.
	ErrMatchConflict = errors.New("match state changed concurrently")
	// ErrProfileNotFound is returned when no projection row exists for a
	// user.
	ErrProfileNotFound = errors.New("profile not found")
)

// Repository is the full store surface used by the application layer.
type Repository interface {
	CreateMatch(ctx context.Context, m *domain.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	ListMatchesForUser(ctx context.Context, userID uuid.UUID) ([]domain.Match, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Match, error)

	// TransitionMatch persists an already-guarded lifecycle transition and
	// enqueues its event atomically. The previous status is re-checked in
	// SQL so two concurrent transitions cannot both win.
	TransitionMatch(ctx context.Context, m *domain.Match, previous domain.MatchStatus, envelope events.Envelope) error

	// DeleteMatchesForUser removes every match the user participates in.
	// Returns the number of rows removed; zero is success (idempotent
	// cascade).
	DeleteMatchesForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeletePendingMatchesForSkill removes pending matches that depend on a
	// skill the user no longer offers or wants.
	DeletePendingMatchesForSkill(ctx context.Context, userID uuid.UUID, skillName string) (int64, error)

	UpsertProfile(ctx context.Context, p domain.Profile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	ListProfilesOfferingSkill(ctx context.Context, skillName string) ([]domain.Profile, error)
	DeleteProfile(ctx context.Context, userID uuid.UUID) error
}
