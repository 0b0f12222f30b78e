// Package server assembles the HTTP handler tree: middleware, CORS and the
// routes of the CRM API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/crm-api/internal/config"
	"github.com/aanand-mishra/crm-api/internal/http/handlers/customer"
	"github.com/aanand-mishra/crm-api/internal/http/middleware"
	"github.com/aanand-mishra/crm-api/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter returns the root handler. All API routes are mounted under
// /api; /healthz sits at the top level.
func NewRouter(cfg config.HTTPServer, s storage.Storage, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	r.Get("/healthz", customer.Health(s))

	r.Route("/api", func(r chi.Router) {
		r.Get("/customers", customer.List(s))

		r.Route("/customer/{id}", func(r chi.Router) {
			r.Get("/", customer.GetByID(s))
			r.Get("/opportunities", customer.ListOpportunities(s))
			r.Post("/opportunities", customer.CreateOpportunity(s))
			r.Put("/opportunity/{oid}", customer.UpdateOpportunity(s))
			r.Delete("/opportunity/{oid}", customer.DeleteOpportunity(s))
		})
	})

	return r
}

// New wraps the router in an http.Server configured from cfg.
func New(cfg config.HTTPServer, s storage.Storage, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(cfg, s, log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}
}
