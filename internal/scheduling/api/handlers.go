/**
 * @description
 * HTTP handlers for the scheduling-service appointment API.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillswap/skillswap-backend/internal/scheduling/app"
	"github.com/skillswap/skillswap-backend/internal/scheduling/domain"
	"github.com/skillswap/skillswap-backend/internal/scheduling/store"
)

type AppointmentHandlers struct {
	service *app.Service
}

func NewAppointmentHandlers(service *app.Service) *AppointmentHandlers {
	return &AppointmentHandlers{service: service}
}

type bookRequest struct {
	MatchID         string    `json:"match_id"`
	BookedBy        string    `json:"booked_by"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes"`
}

type appointmentResponse struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"match_id"`
	BookedBy        string    `json:"booked_by"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID.String(),
		MatchID:         a.MatchID.String(),
		BookedBy:        a.BookedBy.String(),
		ScheduledFor:    a.ScheduledFor,
		DurationMinutes: a.DurationMinutes,
		Notes:           a.Notes,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (h *AppointmentHandlers) BookAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		http.Error(w, "invalid match_id", http.StatusBadRequest)
		return
	}
	bookedBy, err := uuid.Parse(req.BookedBy)
	if err != nil {
		http.Error(w, "invalid booked_by", http.StatusBadRequest)
		return
	}

	a, err := h.service.BookAppointment(r.Context(), app.BookParams{
		MatchID:         matchID,
		BookedBy:        bookedBy,
		ScheduledFor:    req.ScheduledFor,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toAppointmentResponse(a))
}

func (h *AppointmentHandlers) GetAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	a, err := h.service.GetAppointment(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *AppointmentHandlers) ListAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	appointments, err := h.service.ListAppointmentsForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appointments))
	for i := range appointments {
		out = append(out, toAppointmentResponse(&appointments[i]))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *AppointmentHandlers) CancelAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	if err := h.service.CancelAppointment(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrAppointmentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrMatchNotActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrNotParticipant), errors.Is(err, domain.ErrPastAppointment):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=scheduling_api msg=\"failed to encode response\" err=%v", err)
	}
}
