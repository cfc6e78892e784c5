/**
 * @description
 * Application logic for the users-service. Every profile mutation publishes
 * a fresh user.profile.updated snapshot so downstream projections stay
 * current; deletions publish user.deleted and skill removals publish
 * user.skill.removed, which drive the cascades in the other services.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/users/domain"
	"github.com/skillswap/skillswap-backend/internal/users/store"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

var (
	// ErrInvalidEmail is returned for blank or obviously broken emails.
	ErrInvalidEmail = errors.New("a valid email is required")
	// ErrInvalidSkill is returned for blank skill names or unknown kinds.
	ErrInvalidSkill = errors.New("skill name and kind are required")
)

type Service struct {
	repo store.Repository
	now  func() time.Time
}

func NewService(repo store.Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// RegisterParams describes a new account.
type RegisterParams struct {
	Email       string
	DisplayName string
	Bio         string
}

func (s *Service) RegisterUser(ctx context.Context, p RegisterParams) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	u := domain.NewUser(email, strings.TrimSpace(p.DisplayName), strings.TrimSpace(p.Bio), s.now())
	envelope, err := events.NewEnvelope(events.TypeUserProfileUpdated, domain.ProfileSnapshot(u, nil))
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, u, envelope); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListSkills(ctx context.Context, userID uuid.UUID) ([]domain.Skill, error) {
	return s.repo.ListSkills(ctx, userID)
}

// UpdateAvailability replaces the user's preferred days and times.
func (s *Service) UpdateAvailability(ctx context.Context, userID uuid.UUID, days, times []string) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.PreferredDays = cleanList(days)
	u.PreferredTimes = cleanList(times)
	u.UpdatedAt = s.now()

	envelope, err := s.snapshotEnvelope(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAvailability(ctx, u, envelope); err != nil {
		return nil, err
	}
	return u, nil
}

// RateUser folds a new rating into the user's running average.
func (s *Service) RateUser(ctx context.Context, userID uuid.UUID, value float64) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.ApplyRating(value, s.now())

	envelope, err := s.snapshotEnvelope(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRating(ctx, u, envelope); err != nil {
		return nil, err
	}
	return u, nil
}

// AddSkill lists a new offered or wanted skill on the profile.
func (s *Service) AddSkill(ctx context.Context, userID uuid.UUID, name string, kind domain.SkillKind) (*domain.Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" || (kind != domain.SkillOffered && kind != domain.SkillWanted) {
		return nil, ErrInvalidSkill
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	skill := &domain.Skill{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Kind:      kind,
		CreatedAt: s.now(),
	}

	skills, err := s.repo.ListSkills(ctx, userID)
	if err != nil {
		return nil, err
	}
	envelope, err := events.NewEnvelope(events.TypeUserProfileUpdated, domain.ProfileSnapshot(u, append(skills, *skill)))
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddSkill(ctx, skill, envelope); err != nil {
		return nil, err
	}
	return skill, nil
}

// RemoveSkill drops a skill from the profile. Two events go out atomically
// with the delete: the cascade trigger and the refreshed snapshot.
func (s *Service) RemoveSkill(ctx context.Context, userID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidSkill
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	removedEnvelope, err := events.NewEnvelope(events.TypeSkillRemoved, events.SkillRemovedEvent{
		UserID:    userID.String(),
		SkillName: name,
	})
	if err != nil {
		return err
	}

	skills, err := s.repo.ListSkills(ctx, userID)
	if err != nil {
		return err
	}
	remaining := skills[:0:0]
	for _, skill := range skills {
		if !strings.EqualFold(skill.Name, name) {
			remaining = append(remaining, skill)
		}
	}
	snapshotEnvelope, err := events.NewEnvelope(events.TypeUserProfileUpdated, domain.ProfileSnapshot(u, remaining))
	if err != nil {
		return err
	}

	return s.repo.RemoveSkill(ctx, userID, name, []events.Envelope{removedEnvelope, snapshotEnvelope})
}

// DeleteUser removes the account. The cascades in matchmaking, videocall,
// and scheduling run asynchronously off the published event; this call
// returns as soon as the local delete commits.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID, deletedBy, reason string) error {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	envelope, err := events.NewEnvelope(events.TypeUserDeleted, events.UserDeletedEvent{
		UserID:    userID.String(),
		Email:     u.Email,
		DeletedBy: deletedBy,
		Reason:    reason,
	})
	if err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, userID, envelope)
}

func (s *Service) snapshotEnvelope(ctx context.Context, u *domain.User) (events.Envelope, error) {
	skills, err := s.repo.ListSkills(ctx, u.ID)
	if err != nil {
		return events.Envelope{}, fmt.Errorf("loading skills for snapshot: %w", err)
	}
	return events.NewEnvelope(events.TypeUserProfileUpdated, domain.ProfileSnapshot(u, skills))
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
