package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/podushkina/notifyqueue/internal/auth"
)

type RouterOptions struct {
	// JWT guards operator routes. Nil leaves them open.
	JWT            *auth.JWT
	AllowedOrigins []string
}

func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.HealthCheck)
	r.Post("/contact", h.Contact)

	r.Group(func(r chi.Router) {
		if opts.JWT != nil {
			r.Use(auth.RequireAuth(opts.JWT))
		}

		r.Get("/debug/jobs", h.Stats)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Get("/{id}", h.GetJob)
			r.Delete("/{id}", h.DeleteJob)
			r.Post("/{id}/retry", h.RetryJob)
		})
	})

	return r
}
