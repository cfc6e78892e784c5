/**
 * @description
 * HTTP handlers for the videocall-service. The service is read-mostly over
 * HTTP; sessions are created and ended by the event consumers.
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

	"github.com/skillswap/skillswap-backend/internal/videocall/domain"
	"github.com/skillswap/skillswap-backend/internal/videocall/store"
)

type SessionHandlers struct {
	repo store.Repository
}

func NewSessionHandlers(repo store.Repository) *SessionHandlers {
	return &SessionHandlers{repo: repo}
}

type sessionResponse struct {
	ID        string     `json:"id"`
	MatchID   string     `json:"match_id"`
	SkillName string     `json:"skill_name"`
	RoomCode  string     `json:"room_code"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func toSessionResponse(s *domain.CallSession) sessionResponse {
	return sessionResponse{
		ID:        s.ID.String(),
		MatchID:   s.MatchID.String(),
		SkillName: s.SkillName,
		RoomCode:  s.RoomCode,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		EndedAt:   s.EndedAt,
	}
}

func (h *SessionHandlers) GetSessionByMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}
	session, err := h.repo.GetSessionByMatch(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, toSessionResponse(session))
}

type participantResponse struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

func (h *SessionHandlers) ListParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	participants, err := h.repo.ListParticipants(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	out := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, participantResponse{UserID: p.UserID.String(), JoinedAt: p.JoinedAt})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *SessionHandlers) ListSessionsForUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	sessions, err := h.repo.ListSessionsForUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=videocall_api msg=\"failed to encode response\" err=%v", err)
	}
}
