package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the matchmaking-service's local projection of a user, kept in
// sync by consuming user.profile.updated events. Scoring never calls back
// into the users-service; everything it needs lives here.
type Profile struct {
	UserID         uuid.UUID
	Rating         float64
	PreferredDays  []string
	PreferredTimes []string
	SkillsOffered  []string
	SkillsWanted   []string
	UpdatedAt      time.Time
}

// Offers reports whether the profile lists the skill as offered,
// case-insensitively.
func (p Profile) Offers(skillName string) bool {
	return containsFold(p.SkillsOffered, skillName)
}

// Wants reports whether the profile lists the skill as wanted.
func (p Profile) Wants(skillName string) bool {
	return containsFold(p.SkillsWanted, skillName)
}

func containsFold(values []string, target string) bool {
	set := normalizeSet(values)
	norm := normalizeSet([]string{target})
	for v := range norm {
		if set[v] {
			return true
		}
	}
	return false
}
