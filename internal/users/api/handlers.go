/**
 * @description
 * HTTP handlers for the users-service. Profile and skill mutations go
 * through the application service so every change commits together with
 * its outgoing events.
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

	"github.com/skillswap/skillswap-backend/internal/eventlog"
	"github.com/skillswap/skillswap-backend/internal/users/app"
	"github.com/skillswap/skillswap-backend/internal/users/domain"
	"github.com/skillswap/skillswap-backend/internal/users/store"
)

type UserHandlers struct {
	service  *app.Service
	replayer *eventlog.Replayer
}

func NewUserHandlers(service *app.Service, replayer *eventlog.Replayer) *UserHandlers {
	return &UserHandlers{service: service, replayer: replayer}
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio,omitempty"`
	Rating         float64   `json:"rating"`
	RatingCount    int       `json:"rating_count"`
	PreferredDays  []string  `json:"preferred_days"`
	PreferredTimes []string  `json:"preferred_times"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:             u.ID.String(),
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		Rating:         u.Rating,
		RatingCount:    u.RatingCount,
		PreferredDays:  u.PreferredDays,
		PreferredTimes: u.PreferredTimes,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (h *UserHandlers) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	u, err := h.service.RegisterUser(r.Context(), app.RegisterParams{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *UserHandlers) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toUserResponse(u))
}

type availabilityRequest struct {
	PreferredDays  []string `json:"preferred_days"`
	PreferredTimes []string `json:"preferred_times"`
}

func (h *UserHandlers) UpdateAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	u, err := h.service.UpdateAvailability(r.Context(), id, req.PreferredDays, req.PreferredTimes)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toUserResponse(u))
}

type rateRequest struct {
	Rating float64 `json:"rating"`
}

func (h *UserHandlers) RateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	u, err := h.service.RateUser(r.Context(), id, req.Rating)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toUserResponse(u))
}

type skillResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *UserHandlers) ListSkillsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if _, err := h.service.GetUser(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	skills, err := h.service.ListSkills(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]skillResponse, 0, len(skills))
	for _, s := range skills {
		out = append(out, skillResponse{
			ID:        s.ID.String(),
			Name:      s.Name,
			Kind:      string(s.Kind),
			CreatedAt: s.CreatedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type addSkillRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (h *UserHandlers) AddSkillHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var req addSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	skill, err := h.service.AddSkill(r.Context(), id, req.Name, domain.SkillKind(req.Kind))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, skillResponse{
		ID:        skill.ID.String(),
		Name:      skill.Name,
		Kind:      string(skill.Kind),
		CreatedAt: skill.CreatedAt,
	})
}

func (h *UserHandlers) RemoveSkillHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	skillName := chi.URLParam(r, "skillName")
	if err := h.service.RemoveSkill(r.Context(), id, skillName); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteRequest struct {
	DeletedBy string `json:"deleted_by"`
	Reason    string `json:"reason"`
}

func (h *UserHandlers) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var req deleteRequest
	if r.Body != nil {
		// Body is optional; an anonymous self-delete is still valid.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.DeletedBy == "" {
		req.DeletedBy = "self"
	}
	if err := h.service.DeleteUser(r.Context(), id, req.DeletedBy, req.Reason); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type replayRequest struct {
	From time.Time `json:"from"`
}

// ReplayEventsHandler re-publishes stored user events from a point in time.
func (h *UserHandlers) ReplayEventsHandler(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	published, err := h.replayer.Replay(r.Context(), req.From)
	if err != nil {
		log.Printf("level=error component=users_api msg=\"replay failed\" published=%d err=%v", published, err)
		respondWithJSON(w, http.StatusBadGateway, map[string]interface{}{"published": published, "error": err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"published": published})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound), errors.Is(err, store.ErrSkillNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrDuplicateEmail):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, app.ErrInvalidEmail), errors.Is(err, app.ErrInvalidSkill):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=users_api msg=\"failed to encode response\" err=%v", err)
	}
}
