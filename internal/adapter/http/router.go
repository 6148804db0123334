package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/iho/boxoffice/internal/adapter/http/handler"
	"github.com/iho/boxoffice/internal/adapter/http/middleware"
	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	HealthHandler         *handler.HealthHandler
	WalletHandler         *handler.WalletHandler
	PurchaseHandler       *handler.PurchaseHandler
	TicketHandler         *handler.TicketHandler
	InvoiceHandler        *handler.InvoiceHandler
	ReconciliationHandler *handler.ReconciliationHandler

	// Authenticator guards /api/v1. Nil rejects every API request.
	Authenticator    *middleware.Authenticator
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	RateLimiter        *middleware.RateLimiter
	WebhookRateLimiter *middleware.RateLimiter

	Metrics            *metrics.Metrics
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics(cfg.Metrics))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders:   []string{middleware.IdempotencyReplayHeader, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Processor callbacks authenticate by signature, not by user token.
	if cfg.InvoiceHandler != nil {
		r.Group(func(r chi.Router) {
			if cfg.WebhookRateLimiter != nil {
				r.Use(cfg.WebhookRateLimiter.Limit)
			}
			r.Post("/webhooks/payments", cfg.InvoiceHandler.Webhook)
		})
	}

	auth := cfg.Authenticator
	if auth == nil {
		cfg.Logger.Warn().Msg("no authenticator configured: API requests will be rejected")
		auth = middleware.NewAuthenticator(nil, nil, cfg.Logger)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		r.Use(auth.Require)

		// Idempotency runs after auth so keys are scoped to the caller.
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		if h := cfg.WalletHandler; h != nil {
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Get("/summary", h.Summary)
				r.Get("/history", h.History)
				r.Put("/preferred-currency", h.UpdatePreferredCurrency)
				r.Post("/transfers", h.Transfer)
			})
		}

		if h := cfg.PurchaseHandler; h != nil {
			r.Post("/purchases", h.Create)
			r.Get("/purchases/{id}", h.Get)
		}

		if h := cfg.TicketHandler; h != nil {
			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", h.List)
				r.Get("/{id}", h.Get)
				r.Post("/{id}/transfer", h.Transfer)
			})

			r.With(middleware.RequireRole(domain.Role.CanRedeem)).Post("/venue/redeem", h.Redeem)
		}

		if h := cfg.InvoiceHandler; h != nil {
			r.Post("/invoices", h.Create)
			r.Get("/invoices/{orderId}", h.Get)
		}

		if h := cfg.ReconciliationHandler; h != nil {
			r.Route("/admin/reconciliation", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.Role.CanReconcile))
				r.Get("/", h.Report)
				r.Get("/{userId}", h.User)
			})
		}
	})

	return r
}
