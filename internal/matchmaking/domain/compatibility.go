/**
 * @description
 * Compatibility scoring for candidate pairings. Given the attributes of a
 * requester and a potential partner, Score produces a single value in
 * [0.0, 1.0] the matchmaking-service ranks and filters candidates by.
 *
 * The score is a fixed weighted sum, not a learned model. Rank order is an
 * observable contract: callers sort by this value, so the weights and the
 * empty-preference policy below must not drift casually.
 */
package domain

import "strings"

// CandidatePair carries everything the scorer looks at. It is built fresh
// per scoring call from the local profile projection and discarded after.
type CandidatePair struct {
	SkillsMatch     bool
	RequesterRating float64
	TargetRating    float64
	RequesterDays   []string
	TargetDays      []string
	RequesterTimes  []string
	TargetTimes     []string
	IsExchange      bool
	ExchangeMatch   bool
}

// Weights holds the contribution of each scoring factor. The defaults sum to
// 1.0; Score clamps anyway in case a custom set pushes past it.
type Weights struct {
	SkillMatch float64
	Rating     float64
	Schedule   float64
	Exchange   float64
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		SkillMatch: 0.40,
		Rating:     0.20,
		Schedule:   0.30,
		Exchange:   0.10,
	}
}

// Score computes the compatibility score for the pair. Pure and
// deterministic; it never fails. Ratings are assumed to be on a 0-5 scale —
// callers normalize anything else before building the pair.
func (w Weights) Score(p CandidatePair) float64 {
	score := 0.0

	if p.SkillsMatch {
		score += w.SkillMatch
	}

	avgRating := (p.RequesterRating + p.TargetRating) / 2
	score += avgRating / 5.0 * w.Rating

	dayOverlap := scheduleOverlap(p.RequesterDays, p.TargetDays)
	timeOverlap := scheduleOverlap(p.RequesterTimes, p.TargetTimes)
	score += (dayOverlap + timeOverlap) / 2 * w.Schedule

	if p.IsExchange && p.ExchangeMatch {
		score += w.Exchange
	}

	return clamp01(score)
}

// Score computes the compatibility score using the default weights.
func Score(p CandidatePair) float64 {
	return DefaultWeights().Score(p)
}

// scheduleOverlap is the case-insensitive Jaccard similarity of the two
// preference sets. A side that expressed no preference is scored a neutral
// 0.5 rather than 0, so unspecified availability does not sink a candidate.
func scheduleOverlap(a, b []string) float64 {
	setA := normalizeSet(a)
	setB := normalizeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.5
	}

	intersection := 0
	for v := range setA {
		if setB[v] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func normalizeSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
