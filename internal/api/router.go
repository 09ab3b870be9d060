package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router builds the HTTP surface. CORS is only enabled when origins are
// configured.
func Router(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/v1/health", h.Health)
	r.Post("/v1/admin/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)

		r.Get("/admin/attendance/{eventID}/{attendeeID}", h.MarkAttendance)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Delete("/logout", h.Logout)
			r.Get("/me", h.Me)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.ListEvents)
				r.Post("/", h.CreateEvent)

				r.Route("/{eventID}", func(r chi.Router) {
					r.Get("/", h.GetEvent)
					r.Put("/", h.UpdateEvent)
					r.Delete("/", h.DeleteEvent)
					r.Post("/invitations", h.SendInvitations)

					r.Route("/attendees", func(r chi.Router) {
						r.Get("/", h.ListEventAttendees)
						r.Post("/", h.CreateAttendee)
						r.Delete("/", h.RemoveAllAttendees)
						r.Post("/import", h.ImportAttendees)
						r.Get("/{attendeeID}", h.GetEventAttendee)
						r.Put("/{attendeeID}", h.UpdateAttendee)
						r.Delete("/{attendeeID}", h.DeleteAttendee)
					})
				})
			})

			r.Route("/attendees", func(r chi.Router) {
				r.Get("/", h.ListAllAttendees)
				r.Get("/{attendeeID}", h.GetAttendee)
				r.Post("/{attendeeID}/invitation", h.SendInvitation)
				r.Get("/{attendeeID}/qr.png", h.AttendeeQR)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})

	return r
}
