/**
 * @description
 * HTTP handlers for the matchmaking-service. Handlers parse the request,
 * call the application service, and map domain errors to status codes. The
 * /internal surface carries the expiry sweep and event replay, both driven
 * by other services.
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
	"github.com/skillswap/skillswap-backend/internal/matchmaking/app"
	"github.com/skillswap/skillswap-backend/internal/matchmaking/domain"
	"github.com/skillswap/skillswap-backend/internal/matchmaking/store"
)

type MatchHandlers struct {
	service  *app.Service
	replayer *eventlog.Replayer
}

func NewMatchHandlers(service *app.Service, replayer *eventlog.Replayer) *MatchHandlers {
	return &MatchHandlers{service: service, replayer: replayer}
}

type createMatchRequest struct {
	RequesterID       string `json:"requester_id"`
	TargetID          string `json:"target_id"`
	SkillName         string `json:"skill_name"`
	IsExchange        bool   `json:"is_exchange"`
	ExchangeSkillName string `json:"exchange_skill_name"`
}

type matchResponse struct {
	ID                string    `json:"id"`
	RequesterID       string    `json:"requester_id"`
	TargetID          string    `json:"target_id"`
	SkillName         string    `json:"skill_name"`
	IsExchange        bool      `json:"is_exchange"`
	ExchangeSkillName string    `json:"exchange_skill_name,omitempty"`
	Score             float64   `json:"score"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toMatchResponse(m *domain.Match) matchResponse {
	return matchResponse{
		ID:                m.ID.String(),
		RequesterID:       m.RequesterID.String(),
		TargetID:          m.TargetID.String(),
		SkillName:         m.SkillName,
		IsExchange:        m.IsExchange,
		ExchangeSkillName: m.ExchangeSkillName,
		Score:             m.Score,
		Status:            string(m.Status),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (h *MatchHandlers) CreateMatchHandler(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	requesterID, err := uuid.Parse(req.RequesterID)
	if err != nil {
		http.Error(w, "invalid requester_id", http.StatusBadRequest)
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		http.Error(w, "invalid target_id", http.StatusBadRequest)
		return
	}
	if req.SkillName == "" {
		http.Error(w, "skill_name is required", http.StatusBadRequest)
		return
	}

	m, err := h.service.CreateMatchRequest(r.Context(), app.CreateMatchParams{
		RequesterID:       requesterID,
		TargetID:          targetID,
		SkillName:         req.SkillName,
		IsExchange:        req.IsExchange,
		ExchangeSkillName: req.ExchangeSkillName,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toMatchResponse(m))
}

func (h *MatchHandlers) GetMatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	m, err := h.service.GetMatch(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toMatchResponse(m))
}

func (h *MatchHandlers) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	matches, err := h.service.ListMatchesForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]matchResponse, 0, len(matches))
	for i := range matches {
		out = append(out, toMatchResponse(&matches[i]))
	}
	respondWithJSON(w, http.StatusOK, out)
}

type rankedCandidateResponse struct {
	UserID string  `json:"user_id"`
	Rating float64 `json:"rating"`
	Score  float64 `json:"score"`
}

func (h *MatchHandlers) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	skillName := r.URL.Query().Get("skill")
	if skillName == "" {
		http.Error(w, "skill query parameter is required", http.StatusBadRequest)
		return
	}
	isExchange := r.URL.Query().Get("exchange_skill") != ""
	exchangeSkill := r.URL.Query().Get("exchange_skill")

	ranked, err := h.service.RankCandidates(r.Context(), requesterID, skillName, isExchange, exchangeSkill)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]rankedCandidateResponse, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, rankedCandidateResponse{
			UserID: c.Profile.UserID.String(),
			Rating: c.Profile.Rating,
			Score:  c.Score,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

func (h *MatchHandlers) transition(w http.ResponseWriter, r *http.Request, apply func(uuid.UUID, string) (*domain.Match, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	var req transitionRequest
	if r.Body != nil {
		// Body is optional on transitions; ignore decode errors for empty
		// bodies.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	m, err := apply(id, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toMatchResponse(m))
}

func (h *MatchHandlers) AcceptMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, _ string) (*domain.Match, error) {
		return h.service.AcceptMatch(r.Context(), id)
	})
}

func (h *MatchHandlers) RejectMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, reason string) (*domain.Match, error) {
		return h.service.RejectMatch(r.Context(), id, reason)
	})
}

func (h *MatchHandlers) CompleteMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, _ string) (*domain.Match, error) {
		return h.service.CompleteMatch(r.Context(), id)
	})
}

func (h *MatchHandlers) DissolveMatchHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, reason string) (*domain.Match, error) {
		return h.service.DissolveMatch(r.Context(), id, reason)
	})
}

type expireRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// ExpireMatchesHandler is called by the scheduling-service sweep. The
// transition still runs through the owning aggregate here.
func (h *MatchHandlers) ExpireMatchesHandler(w http.ResponseWriter, r *http.Request) {
	var req expireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaxAgeHours <= 0 {
		http.Error(w, "max_age_hours must be positive", http.StatusBadRequest)
		return
	}
	expired, err := h.service.ExpireStaleMatches(r.Context(), time.Duration(req.MaxAgeHours)*time.Hour)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

type replayRequest struct {
	From time.Time `json:"from"`
}

// ReplayEventsHandler re-publishes stored events from a point in time. The
// recovery path when the broker lost events after the local commit.
func (h *MatchHandlers) ReplayEventsHandler(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	published, err := h.replayer.Replay(r.Context(), req.From)
	if err != nil {
		log.Printf("level=error component=matchmaking_api msg=\"replay failed\" published=%d err=%v", published, err)
		respondWithJSON(w, http.StatusBadGateway, map[string]interface{}{"published": published, "error": err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"published": published})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrMatchNotFound), errors.Is(err, store.ErrProfileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, store.ErrMatchConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, app.ErrSelfMatch), errors.Is(err, app.ErrTargetDoesNotOffer):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=matchmaking_api msg=\"failed to encode response\" err=%v", err)
	}
}
