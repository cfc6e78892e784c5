package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SessionRoutes creates and returns the router for the videocall service.
func SessionRoutes(h *SessionHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessionsForUserHandler)
		r.Get("/match/{matchID}", h.GetSessionByMatchHandler)
		r.Get("/{sessionID}/participants", h.ListParticipantsHandler)
	})

	return r
}
