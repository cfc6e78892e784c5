/**
 * @description
 * Core application logic for the matchmaking-service: candidate ranking,
 * match request creation, and the lifecycle transitions. Every transition is
 * guarded by the Match aggregate and persisted together with its event in
 * one transaction via the repository.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/matchmaking/domain"
	"github.com/skillswap/skillswap-backend/internal/matchmaking/store"
	"github.com/skillswap/skillswap-backend/pkg/events"
)

var (
	// ErrSelfMatch is returned when a user requests a match with themselves.
	ErrSelfMatch = errors.New("cannot request a match with yourself")
	// ErrTargetDoesNotOffer is returned when the target profile does not
	// list the requested skill.
	ErrTargetDoesNotOffer = errors.New("target user does not offer the requested skill")
)

// Service wires the scorer, the aggregate, and the repository together.
type Service struct {
	repo    store.Repository
	weights domain.Weights
	now     func() time.Time
}

func NewService(repo store.Repository, weights domain.Weights) *Service {
	return &Service{
		repo:    repo,
		weights: weights,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateMatchParams describes a new match request.
type CreateMatchParams struct {
	RequesterID       uuid.UUID
	TargetID          uuid.UUID
	SkillName         string
	IsExchange        bool
	ExchangeSkillName string
}

// CreateMatchRequest scores the pairing from the local profile projection
// and stores a pending match.
func (s *Service) CreateMatchRequest(ctx context.Context, p CreateMatchParams) (*domain.Match, error) {
	if p.RequesterID == p.TargetID {
		return nil, ErrSelfMatch
	}

	requester, err := s.repo.GetProfile(ctx, p.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("loading requester profile: %w", err)
	}
	target, err := s.repo.GetProfile(ctx, p.TargetID)
	if err != nil {
		return nil, fmt.Errorf("loading target profile: %w", err)
	}
	if !target.Offers(p.SkillName) {
		return nil, ErrTargetDoesNotOffer
	}

	score := s.weights.Score(s.buildPair(*requester, *target, p.SkillName, p.IsExchange, p.ExchangeSkillName))

	m := domain.NewMatch(p.RequesterID, p.TargetID, p.SkillName, p.IsExchange, p.ExchangeSkillName, score, s.now())
	if err := s.repo.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RankedCandidate is one scored entry of a candidate listing.
type RankedCandidate struct {
	Profile domain.Profile
	Score   float64
}

// RankCandidates scores every profile offering the skill against the
// requester and returns them best-first. Ties break on user id so the
// ordering is stable across calls.
func (s *Service) RankCandidates(ctx context.Context, requesterID uuid.UUID, skillName string, isExchange bool, exchangeSkillName string) ([]RankedCandidate, error) {
	requester, err := s.repo.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("loading requester profile: %w", err)
	}

	profiles, err := s.repo.ListProfilesOfferingSkill(ctx, skillName)
	if err != nil {
		return nil, err
	}

	candidates := make([]RankedCandidate, 0, len(profiles))
	for _, candidate := range profiles {
		if candidate.UserID == requesterID {
			continue
		}
		pair := s.buildPair(*requester, candidate, skillName, isExchange, exchangeSkillName)
		candidates = append(candidates, RankedCandidate{Profile: candidate, Score: s.weights.Score(pair)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Profile.UserID.String() < candidates[j].Profile.UserID.String()
	})
	return candidates, nil
}

func (s *Service) buildPair(requester, target domain.Profile, skillName string, isExchange bool, exchangeSkillName string) domain.CandidatePair {
	exchangeMatch := false
	if isExchange && exchangeSkillName != "" {
		// The reverse direction must also line up: the requester teaches
		// the exchange skill and the target wants to learn it.
		exchangeMatch = requester.Offers(exchangeSkillName) && target.Wants(exchangeSkillName)
	}
	return domain.CandidatePair{
		SkillsMatch:     target.Offers(skillName) && requester.Wants(skillName),
		RequesterRating: requester.Rating,
		TargetRating:    target.Rating,
		RequesterDays:   requester.PreferredDays,
		TargetDays:      target.PreferredDays,
		RequesterTimes:  requester.PreferredTimes,
		TargetTimes:     target.PreferredTimes,
		IsExchange:      isExchange,
		ExchangeMatch:   exchangeMatch,
	}
}

// AcceptMatch transitions a pending match to accepted and emits
// match.accepted.
func (s *Service) AcceptMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	m, err := s.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := m.Status
	ev, err := m.Accept(s.now())
	if err != nil {
		return nil, err
	}
	envelope, err := events.NewEnvelope(events.TypeMatchAccepted, ev)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TransitionMatch(ctx, m, previous, envelope); err != nil {
		return nil, err
	}
	return m, nil
}

// RejectMatch transitions a pending match to rejected and emits
// match.rejected.
func (s *Service) RejectMatch(ctx context.Context, id uuid.UUID, reason string) (*domain.Match, error) {
	m, err := s.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := m.Status
	ev, err := m.Reject(s.now(), reason)
	if err != nil {
		return nil, err
	}
	envelope, err := events.NewEnvelope(events.TypeMatchRejected, ev)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TransitionMatch(ctx, m, previous, envelope); err != nil {
		return nil, err
	}
	return m, nil
}

// CompleteMatch transitions an accepted match to completed and emits
// match.completed.
func (s *Service) CompleteMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	m, err := s.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := m.Status
	ev, err := m.Complete(s.now())
	if err != nil {
		return nil, err
	}
	envelope, err := events.NewEnvelope(events.TypeMatchCompleted, ev)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TransitionMatch(ctx, m, previous, envelope); err != nil {
		return nil, err
	}
	return m, nil
}

// DissolveMatch transitions an accepted match to dissolved and emits
// match.dissolved.
func (s *Service) DissolveMatch(ctx context.Context, id uuid.UUID, reason string) (*domain.Match, error) {
	m, err := s.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := m.Status
	ev, err := m.Dissolve(s.now(), reason)
	if err != nil {
		return nil, err
	}
	envelope, err := events.NewEnvelope(events.TypeMatchDissolved, ev)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TransitionMatch(ctx, m, previous, envelope); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMatch returns one match by id.
func (s *Service) GetMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	return s.repo.GetMatch(ctx, id)
}

// ListMatchesForUser returns every match the user participates in.
func (s *Service) ListMatchesForUser(ctx context.Context, userID uuid.UUID) ([]domain.Match, error) {
	return s.repo.ListMatchesForUser(ctx, userID)
}

// ExpireStaleMatches expires every pending match older than maxAge and
// returns how many were expired. Conflicts are skipped, not failed: another
// actor winning the race is a valid outcome of the sweep.
func (s *Service) ExpireStaleMatches(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	stale, err := s.repo.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		m := stale[i]
		previous := m.Status
		ev, err := m.Expire(s.now())
		if err != nil {
			continue
		}
		envelope, err := events.NewEnvelope(events.TypeMatchExpired, ev)
		if err != nil {
			return expired, err
		}
		if err := s.repo.TransitionMatch(ctx, &m, previous, envelope); err != nil {
			if errors.Is(err, store.ErrMatchConflict) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}
