package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AppointmentRoutes creates and returns the router for the scheduling
// service.
func AppointmentRoutes(h *AppointmentHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.BookAppointmentHandler)
		r.Get("/", h.ListAppointmentsHandler)
		r.Get("/{appointmentID}", h.GetAppointmentHandler)
		r.Post("/{appointmentID}/cancel", h.CancelAppointmentHandler)
	})

	return r
}
