/**
 * @description
 * Data access contract for the users-service. Mutating methods accept the
 * event envelopes to enqueue so the row change, the event-log append, and
 * the outbox insert commit in one transaction.
 */
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/users/domain"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

var (
	// ErrUserNotFound is returned when a user id resolves to nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email unique constraint trips.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrSkillNotFound is returned when removing a skill the user never
	// listed.
	ErrSkillNotFound = errors.New("skill not found")
)

// Repository is the store surface used by the users application service.
type Repository interface {
	CreateUser(ctx context.Context, u *domain.User, profileEnvelope events.Envelope) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListSkills(ctx context.Context, userID uuid.UUID) ([]domain.Skill, error)

	UpdateAvailability(ctx context.Context, u *domain.User, profileEnvelope events.Envelope) error
	UpdateRating(ctx context.Context, u *domain.User, profileEnvelope events.Envelope) error
	AddSkill(ctx context.Context, s *domain.Skill, profileEnvelope events.Envelope) error

	// RemoveSkill deletes the named skill rows and enqueues both the
	// skill.removed event and the refreshed profile snapshot.
	RemoveSkill(ctx context.Context, userID uuid.UUID, skillName string, envelopes []events.Envelope) error

	// DeleteUser removes the user and their skills and enqueues
	// user.deleted. Downstream cascades run asynchronously off that event.
	DeleteUser(ctx context.Context, userID uuid.UUID, envelope events.Envelope) error
}
