package app

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/users/domain"
	"github.com/skillswap/skillswap-backend/internal/users/store"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

type repoStub struct {
	store.Repository

	users  map[uuid.UUID]*domain.User
	skills map[uuid.UUID][]domain.Skill

	enqueued []events.Envelope
	deleted  []uuid.UUID
}

func newRepoStub() *repoStub {
	return &repoStub{
		users:  make(map[uuid.UUID]*domain.User),
		skills: make(map[uuid.UUID][]domain.Skill),
	}
}

func (s *repoStub) CreateUser(ctx context.Context, u *domain.User, envelope events.Envelope) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrDuplicateEmail
		}
	}
	s.users[u.ID] = u
	s.enqueued = append(s.enqueued, envelope)
	return nil
}

func (s *repoStub) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *repoStub) ListSkills(ctx context.Context, userID uuid.UUID) ([]domain.Skill, error) {
	return s.skills[userID], nil
}

func (s *repoStub) UpdateAvailability(ctx context.Context, u *domain.User, envelope events.Envelope) error {
	s.users[u.ID] = u
	s.enqueued = append(s.enqueued, envelope)
	return nil
}

func (s *repoStub) UpdateRating(ctx context.Context, u *domain.User, envelope events.Envelope) error {
	s.users[u.ID] = u
	s.enqueued = append(s.enqueued, envelope)
	return nil
}

func (s *repoStub) AddSkill(ctx context.Context, skill *domain.Skill, envelope events.Envelope) error {
	s.skills[skill.UserID] = append(s.skills[skill.UserID], *skill)
	s.enqueued = append(s.enqueued, envelope)
	return nil
}

func (s *repoStub) RemoveSkill(ctx context.Context, userID uuid.UUID, skillName string, envelopes []events.Envelope) error {
	kept := s.skills[userID][:0:0]
	removed := false
	for _, skill := range s.skills[userID] {
		if skill.Name == skillName {
			removed = true
			continue
		}
		kept = append(kept, skill)
	}
	if !removed {
		return store.ErrSkillNotFound
	}
	s.skills[userID] = kept
	s.enqueued = append(s.enqueued, envelopes...)
	return nil
}

func (s *repoStub) DeleteUser(ctx context.Context, userID uuid.UUID, envelope events.Envelope) error {
	if _, ok := s.users[userID]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, userID)
	delete(s.skills, userID)
	s.deleted = append(s.deleted, userID)
	s.enqueued = append(s.enqueued, envelope)
	return nil
}

func TestRegisterUserPublishesInitialSnapshot(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)

	u, err := svc.RegisterUser(context.Background(), RegisterParams{
		Email:       "  Ana@Example.COM ",
		DisplayName: "Ana",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if len(repo.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(repo.enqueued))
	}
	if repo.enqueued[0].EventType != events.TypeUserProfileUpdated {
		t.Fatalf("expected profile snapshot, got %s", repo.enqueued[0].EventType)
	}
}

func TestRegisterUserValidatesEmail(t *testing.T) {
	svc := NewService(newRepoStub())
	if _, err := svc.RegisterUser(context.Background(), RegisterParams{Email: "not-an-email"}); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRateUserKeepsRunningAverage(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	u, err := svc.RegisterUser(context.Background(), RegisterParams{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.RateUser(context.Background(), u.ID, 4); err != nil {
		t.Fatalf("first rating failed: %v", err)
	}
	rated, err := svc.RateUser(context.Background(), u.ID, 5)
	if err != nil {
		t.Fatalf("second rating failed: %v", err)
	}
	if rated.Rating != 4.5 || rated.RatingCount != 2 {
		t.Fatalf("expected average 4.5 over 2 ratings, got %v over %d", rated.Rating, rated.RatingCount)
	}
}

func TestAddSkillSnapshotsIncludeNewSkill(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	u, err := svc.RegisterUser(context.Background(), RegisterParams{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.AddSkill(context.Background(), u.ID, "guitar", domain.SkillOffered); err != nil {
		t.Fatalf("add skill failed: %v", err)
	}

	last := repo.enqueued[len(repo.enqueued)-1]
	var snapshot events.UserProfileUpdatedEvent
	if err := last.Decode(&snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(snapshot.SkillsOffered) != 1 || snapshot.SkillsOffered[0] != "guitar" {
		t.Fatalf("expected snapshot to carry the new skill, got %v", snapshot.SkillsOffered)
	}
}

func TestAddSkillRejectsUnknownKind(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	u, _ := svc.RegisterUser(context.Background(), RegisterParams{Email: "ana@example.com"})

	if _, err := svc.AddSkill(context.Background(), u.ID, "guitar", domain.SkillKind("teaches")); err != ErrInvalidSkill {
		t.Fatalf("expected ErrInvalidSkill, got %v", err)
	}
}

func TestRemoveSkillEmitsCascadeAndSnapshot(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	u, _ := svc.RegisterUser(context.Background(), RegisterParams{Email: "ana@example.com"})
	if _, err := svc.AddSkill(context.Background(), u.ID, "guitar", domain.SkillOffered); err != nil {
		t.Fatalf("add skill failed: %v", err)
	}
	before := len(repo.enqueued)

	if err := svc.RemoveSkill(context.Background(), u.ID, "guitar"); err != nil {
		t.Fatalf("remove skill failed: %v", err)
	}
	got := repo.enqueued[before:]
	if len(got) != 2 {
		t.Fatalf("expected 2 events for a removal, got %d", len(got))
	}
	if got[0].EventType != events.TypeSkillRemoved {
		t.Fatalf("expected skill.removed first, got %s", got[0].EventType)
	}
	if got[1].EventType != events.TypeUserProfileUpdated {
		t.Fatalf("expected refreshed snapshot second, got %s", got[1].EventType)
	}

	var snapshot events.UserProfileUpdatedEvent
	if err := got[1].Decode(&snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(snapshot.SkillsOffered) != 0 {
		t.Fatalf("snapshot must not carry the removed skill, got %v", snapshot.SkillsOffered)
	}
}

func TestDeleteUserEmitsUserDeleted(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)
	u, _ := svc.RegisterUser(context.Background(), RegisterParams{Email: "ana@example.com"})

	if err := svc.DeleteUser(context.Background(), u.ID, "self", "leaving"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	last := repo.enqueued[len(repo.enqueued)-1]
	if last.EventType != events.TypeUserDeleted {
		t.Fatalf("expected user.deleted, got %s", last.EventType)
	}
	var payload events.UserDeletedEvent
	if err := last.Decode(&payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.UserID != u.ID.String() || payload.Email != "ana@example.com" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected the row delete to run, got %d", len(repo.deleted))
	}
}

func TestDeleteUserUnknownID(t *testing.T) {
	svc := NewService(newRepoStub())
	if err := svc.DeleteUser(context.Background(), uuid.New(), "admin", ""); err != store.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
