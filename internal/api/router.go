package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ledgerchat/ledgerchat/internal/api/middleware"
	"github.com/ledgerchat/ledgerchat/internal/handlers"
	"github.com/ledgerchat/ledgerchat/internal/ledger"
)

// NewRouter creates and configures the HTTP router. Every route is
// read-only; writes reach the ledger through the append path, never HTTP.
func NewRouter(logger zerolog.Logger, led *ledger.Ledger) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger, led.Namespace()))
	r.Use(chimw.Recoverer)

	// CORS - the ledger is public data, readable from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Room-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(led, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)
	r.Get("/room", h.Room)
	r.Get("/messages", h.Messages)
	r.Get("/stats", h.Stats)

	return r
}
