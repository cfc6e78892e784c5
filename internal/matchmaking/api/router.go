/**
 * @description
 * HTTP router for the matchmaking-service. Public match operations sit at
 * the root; the sweep and replay endpoints live under /internal behind the
 * shared-key middleware.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MatchRoutes creates and returns the router for the matchmaking service.
func MatchRoutes(h *MatchHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/matches", func(r chi.Router) {
		r.Post("/", h.CreateMatchHandler)
		r.Get("/", h.ListMatchesHandler)
		r.Get("/candidates", h.ListCandidatesHandler)
		r.Get("/{matchID}", h.GetMatchHandler)
		r.Post("/{matchID}/accept", h.AcceptMatchHandler)
		r.Post("/{matchID}/reject", h.RejectMatchHandler)
		r.Post("/{matchID}/complete", h.CompleteMatchHandler)
		r.Post("/{matchID}/dissolve", h.DissolveMatchHandler)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalAPIKey))
		r.Post("/matches/expire", h.ExpireMatchesHandler)
		r.Post("/events/replay", h.ReplayEventsHandler)
	})

	return r
}
