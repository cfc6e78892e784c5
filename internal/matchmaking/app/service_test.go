package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/matchmaking/domain"
	"github.com/skillswap/skillswap-backend/internal/matchmaking/store"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

type repoStub struct {
	store.Repository

	profiles map[uuid.UUID]domain.Profile
	matches  map[uuid.UUID]*domain.Match

	created      []*domain.Match
	transitions  []events.Envelope
	transitionEr error
}

func newRepoStub() *repoStub {
	return &repoStub{
		profiles: make(map[uuid.UUID]domain.Profile),
		matches:  make(map[uuid.UUID]*domain.Match),
	}
}

func (s *repoStub) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	return &p, nil
}

func (s *repoStub) ListProfilesOfferingSkill(ctx context.Context, skillName string) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, p := range s.profiles {
		if p.Offers(skillName) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *repoStub) CreateMatch(ctx context.Context, m *domain.Match) error {
	s.created = append(s.created, m)
	s.matches[m.ID] = m
	return nil
}

func (s *repoStub) GetMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	m, ok := s.matches[id]
	if !ok {
		return nil, store.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *repoStub) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Match, error) {
	var out []domain.Match
	for _, m := range s.matches {
		if m.Status == domain.StatusPending && m.CreatedAt.Before(cutoff) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *repoStub) TransitionMatch(ctx context.Context, m *domain.Match, previous domain.MatchStatus, envelope events.Envelope) error {
	if s.transitionEr != nil {
		return s.transitionEr
	}
	existing, ok := s.matches[m.ID]
	if !ok || existing.Status != previous {
		return store.ErrMatchConflict
	}
	s.matches[m.ID] = m
	s.transitions = append(s.transitions, envelope)
	return nil
}

func profileWith(skillsOffered, skillsWanted []string, rating float64) domain.Profile {
	return domain.Profile{
		UserID:         uuid.New(),
		Rating:         rating,
		PreferredDays:  []string{"Mon", "Wed"},
		PreferredTimes: []string{"evening"},
		SkillsOffered:  skillsOffered,
		SkillsWanted:   skillsWanted,
		UpdatedAt:      time.Now().UTC(),
	}
}

func TestCreateMatchRequestScoresAndStoresPending(t *testing.T) {
	repo := newRepoStub()
	requester := profileWith([]string{"spanish"}, []string{"guitar"}, 4)
	target := profileWith([]string{"guitar"}, []string{"spanish"}, 5)
	repo.profiles[requester.UserID] = requester
	repo.profiles[target.UserID] = target

	svc := NewService(repo, domain.DefaultWeights())
	m, err := svc.CreateMatchRequest(context.Background(), CreateMatchParams{
		RequesterID:       requester.UserID,
		TargetID:          target.UserID,
		SkillName:         "guitar",
		IsExchange:        true,
		ExchangeSkillName: "spanish",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if m.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", m.Status)
	}
	// skill 0.40 + rating 4.5/5*0.20 + full schedule overlap 0.30 +
	// exchange 0.10 = 0.98
	if m.Score < 0.979 || m.Score > 0.981 {
		t.Fatalf("expected score 0.98, got %v", m.Score)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 stored match, got %d", len(repo.created))
	}
}

func TestCreateMatchRequestRejectsSelfAndMissingSkill(t *testing.T) {
	repo := newRepoStub()
	requester := profileWith(nil, []string{"guitar"}, 3)
	target := profileWith([]string{"piano"}, nil, 3)
	repo.profiles[requester.UserID] = requester
	repo.profiles[target.UserID] = target
	svc := NewService(repo, domain.DefaultWeights())

	if _, err := svc.CreateMatchRequest(context.Background(), CreateMatchParams{
		RequesterID: requester.UserID,
		TargetID:    requester.UserID,
		SkillName:   "guitar",
	}); err != ErrSelfMatch {
		t.Fatalf("expected ErrSelfMatch, got %v", err)
	}

	if _, err := svc.CreateMatchRequest(context.Background(), CreateMatchParams{
		RequesterID: requester.UserID,
		TargetID:    target.UserID,
		SkillName:   "guitar",
	}); err != ErrTargetDoesNotOffer {
		t.Fatalf("expected ErrTargetDoesNotOffer, got %v", err)
	}
}

func TestRankCandidatesOrdersByScoreAndSkipsRequester(t *testing.T) {
	repo := newRepoStub()
	requester := profileWith([]string{"guitar"}, []string{"piano"}, 5)
	strong := profileWith([]string{"piano"}, []string{"guitar"}, 5)
	weak := domain.Profile{UserID: uuid.New(), Rating: 1, SkillsOffered: []string{"piano"}}
	repo.profiles[requester.UserID] = requester
	repo.profiles[strong.UserID] = strong
	repo.profiles[weak.UserID] = weak

	svc := NewService(repo, domain.DefaultWeights())
	ranked, err := svc.RankCandidates(context.Background(), requester.UserID, "piano", true, "guitar")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].Profile.UserID != strong.UserID {
		t.Fatal("expected the mutual-exchange candidate first")
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("expected strictly better score first: %v vs %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestAcceptMatchPersistsTransitionWithEvent(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo, domain.DefaultWeights())
	m := domain.NewMatch(uuid.New(), uuid.New(), "guitar", false, "", 0.6, time.Now().UTC())
	repo.matches[m.ID] = m

	accepted, err := svc.AcceptMatch(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if accepted.Status != domain.StatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
	if len(repo.transitions) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(repo.transitions))
	}
	if repo.transitions[0].EventType != events.TypeMatchAccepted {
		t.Fatalf("expected match.accepted, got %s", repo.transitions[0].EventType)
	}
}

func TestAcceptMatchRefusesNonPending(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo, domain.DefaultWeights())
	m := domain.NewMatch(uuid.New(), uuid.New(), "guitar", false, "", 0.6, time.Now().UTC())
	m.Status = domain.StatusRejected
	repo.matches[m.ID] = m

	if _, err := svc.AcceptMatch(context.Background(), m.ID); err == nil {
		t.Fatal("expected guard error accepting a rejected match")
	}
	if len(repo.transitions) != 0 {
		t.Fatal("guard failure must not persist anything")
	}
}

func TestExpireStaleMatchesEmitsOneEventPerMatch(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo, domain.DefaultWeights())
	old := time.Now().UTC().Add(-100 * time.Hour)

	for i := 0; i < 3; i++ {
		m := domain.NewMatch(uuid.New(), uuid.New(), "guitar", false, "", 0.5, old)
		repo.matches[m.ID] = m
	}
	fresh := domain.NewMatch(uuid.New(), uuid.New(), "guitar", false, "", 0.5, time.Now().UTC())
	repo.matches[fresh.ID] = fresh

	expired, err := svc.ExpireStaleMatches(context.Background(), 72*time.Hour)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if expired != 3 {
		t.Fatalf("expected 3 expired, got %d", expired)
	}
	if len(repo.transitions) != 3 {
		t.Fatalf("expected 3 events, got %d", len(repo.transitions))
	}
	for _, env := range repo.transitions {
		if env.EventType != events.TypeMatchExpired {
			t.Fatalf("expected match.expired, got %s", env.EventType)
		}
	}
	if repo.matches[fresh.ID].Status != domain.StatusPending {
		t.Fatal("fresh pending match must not expire")
	}
}

func TestExpireStaleMatchesSkipsConcurrentWinners(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo, domain.DefaultWeights())
	old := time.Now().UTC().Add(-100 * time.Hour)

	m := domain.NewMatch(uuid.New(), uuid.New(), "guitar", false, "", 0.5, old)
	repo.matches[m.ID] = m
	repo.transitionEr = store.ErrMatchConflict

	expired, err := svc.ExpireStaleMatches(context.Background(), 72*time.Hour)
	if err != nil {
		t.Fatalf("conflicts must not fail the sweep, got %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected 0 expired, got %d", expired)
	}
}
