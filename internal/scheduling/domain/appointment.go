package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus tracks the booking lifecycle.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

var (
	// ErrNotParticipant is returned when the booking user is not part of
	// the match.
	ErrNotParticipant = errors.New("user is not a participant of the match")
	// ErrPastAppointment is returned when the requested slot is in the past.
	ErrPastAppointment = errors.New("appointment time must be in the future")
)

// ActiveMatch is the local projection of an accepted match. Bookings are
// only allowed against matches this service has seen accepted and not yet
// seen completed or dissolved.
type ActiveMatch struct {
	MatchID          uuid.UUID
	OfferingUserID   uuid.UUID
	RequestingUserID uuid.UUID
	SkillName        string
	AcceptedAt       time.Time
	Active           bool
}

// HasParticipant reports whether the user is one of the match parties.
func (m ActiveMatch) HasParticipant(userID uuid.UUID) bool {
	return m.OfferingUserID == userID || m.RequestingUserID == userID
}

// Appointment is one booked learning session between matched users.
type Appointment struct {
	ID              uuid.UUID
	MatchID         uuid.UUID
	BookedBy        uuid.UUID
	ScheduledFor    time.Time
	DurationMinutes int
	Notes           string
	Status          AppointmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewAppointment books a session on an active match. The caller must be one
// of the match parties and the slot must be in the future.
func NewAppointment(match ActiveMatch, bookedBy uuid.UUID, scheduledFor time.Time, durationMinutes int, notes string, now time.Time) (*Appointment, error) {
	if !match.HasParticipant(bookedBy) {
		return nil, ErrNotParticipant
	}
	if !scheduledFor.After(now) {
		return nil, ErrPastAppointment
	}
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	return &Appointment{
		ID:              uuid.New(),
		MatchID:         match.MatchID,
		BookedBy:        bookedBy,
		ScheduledFor:    scheduledFor,
		DurationMinutes: durationMinutes,
		Notes:           notes,
		Status:          AppointmentScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// EndsAt is the scheduled end of the session.
func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledFor.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
