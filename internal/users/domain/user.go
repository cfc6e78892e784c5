package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/pkg/events"
)

// SkillKind distinguishes what a user teaches from what they want to learn.
type SkillKind string

const (
	SkillOffered SkillKind = "offered"
	SkillWanted  SkillKind = "wanted"
)

// User is the users-service's own aggregate. Ratings are kept on a 0-5
// scale; other services receive them through profile events and never read
// this table.
type User struct {
	ID             uuid.UUID
	Email          string
	DisplayName    string
	Bio            string
	Rating         float64
	RatingCount    int
	PreferredDays  []string
	PreferredTimes []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Skill is one offered or wanted skill on a user's profile.
type Skill struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Kind      SkillKind
	CreatedAt time.Time
}

// NewUser creates a user with no skills and no ratings yet.
func NewUser(email, displayName, bio string, now time.Time) *User {
	return &User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: displayName,
		Bio:         bio,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyRating folds a new 0-5 rating into the running average.
func (u *User) ApplyRating(value float64, now time.Time) {
	if value < 0 {
		value = 0
	}
	if value > 5 {
		value = 5
	}
	total := u.Rating*float64(u.RatingCount) + value
	u.RatingCount++
	u.Rating = total / float64(u.RatingCount)
	u.UpdatedAt = now
}

// ProfileSnapshot builds the user.profile.updated payload from the current
// profile state. Consumers project it locally, so every profile mutation
// must publish a fresh snapshot.
func ProfileSnapshot(u *User, skills []Skill) events.UserProfileUpdatedEvent {
	snapshot := events.UserProfileUpdatedEvent{
		UserID:         u.ID.String(),
		Rating:         u.Rating,
		PreferredDays:  u.PreferredDays,
		PreferredTimes: u.PreferredTimes,
	}
	for _, s := range skills {
		switch s.Kind {
		case SkillOffered:
			snapshot.SkillsOffered = append(snapshot.SkillsOffered, s.Name)
		case SkillWanted:
			snapshot.SkillsWanted = append(snapshot.SkillsWanted, s.Name)
		}
	}
	return snapshot
}
