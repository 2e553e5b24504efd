// Package httpapi assembles the HTTP surface: middleware chain, domain
// handlers, and the operational endpoints.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tawf-labs/amana-reserve/internal/platform/middleware"
)

// Registrar mounts a handler's participant-facing routes.
type Registrar interface {
	Register(r chi.Router)
}

// AdminRegistrar mounts a handler's admin routes.
type AdminRegistrar interface {
	RegisterAdmin(r chi.Router)
}

// Config carries router dependencies from main.
type Config struct {
	Logger        *slog.Logger
	JWTSigningKey string
	AdminToken    string

	// Handlers registers participant routes behind bearer auth.
	Handlers []Registrar
	// AdminHandlers registers routes behind the shared admin token.
	AdminHandlers []AdminRegistrar
}

// NewRouter wires the full HTTP surface. Participant routes require a bearer
// token; admin routes require the admin token header on top of it.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.JWTSigningKey, cfg.Logger))
		for _, h := range cfg.Handlers {
			h.Register(r)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(cfg.AdminToken, cfg.Logger))
			for _, h := range cfg.AdminHandlers {
				h.RegisterAdmin(r)
			}
		})
	})

	return r
}
