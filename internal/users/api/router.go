/**
 * @description
 * HTTP router for the users-service. Profile and skill operations sit at
 * the root; event replay lives under /internal behind the shared-key
 * middleware.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UserRoutes creates and returns the router for the users service.
func UserRoutes(h *UserHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.RegisterUserHandler)
		r.Get("/{userID}", h.GetUserHandler)
		r.Delete("/{userID}", h.DeleteUserHandler)
		r.Put("/{userID}/availability", h.UpdateAvailabilityHandler)
		r.Post("/{userID}/ratings", h.RateUserHandler)
		r.Get("/{userID}/skills", h.ListSkillsHandler)
		r.Post("/{userID}/skills", h.AddSkillHandler)
		r.Delete("/{userID}/skills/{skillName}", h.RemoveSkillHandler)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalAPIKey))
		r.Post("/events/replay", h.ReplayEventsHandler)
	})

	return r
}
