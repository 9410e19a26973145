package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerbot/internal/adapter/http/handler"
	"github.com/iho/ledgerbot/internal/adapter/http/middleware"
	"github.com/iho/ledgerbot/internal/infrastructure/metrics"
	"github.com/iho/ledgerbot/internal/usecase"
)

// RouterConfig holds dependencies for the router. Optional fields left nil
// switch the matching feature off.
type RouterConfig struct {
	ChatHandler     *handler.ChatHandler
	AccountHandler  *handler.AccountHandler
	TransferHandler *handler.TransferHandler
	HealthHandler   *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	TokenVerifier    middleware.TokenVerifier
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Post("/chat", cfg.ChatHandler.Send)

		// Accounts
		r.Route("/accounts/{iban}", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.Get)
			r.Get("/entries", cfg.AccountHandler.ListEntries)
			r.Get("/entries/recent", cfg.AccountHandler.RecentEntries)
		})

		r.Get("/customers/{id}", cfg.AccountHandler.GetCustomer)
		r.Get("/customers/{id}/accounts", cfg.AccountHandler.ListByCustomer)

		// Transfers
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", cfg.TransferHandler.Create)
			r.Get("/{id}", cfg.TransferHandler.Get)
		})
	})

	return r
}
