package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/auth"
	"github.com/jkorhonen/carrier/internal/config"
	"github.com/jkorhonen/carrier/internal/queue"
	"github.com/jkorhonen/carrier/internal/storage"
)

// NewRouter creates a chi.Mux with all routes, middleware, and handlers
// configured. The enqueuer is optional; when nil, message creation skips
// the trigger publish and relies on the periodic sweeps.
func NewRouter(cfg *config.Config, queries storage.Querier, db *storage.DB, enqueuer queue.Enqueuer, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoverMiddleware(log))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// Development stand-in for the directory service
	if cfg.Directory.Fake {
		r.Get("/get_contact_info", FakeContactInfoHandler(cfg.Languages))
	}

	// API routes (auth required)
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.BearerAuth(cfg.API.APIKeys))

		r.Post("/messages", CreateMessageHandler(queries, enqueuer, log))
		r.Get("/messages", ListMessagesHandler(queries, log))
		r.Get("/messages/{id}", GetMessageHandler(queries))
	})

	return r
}
