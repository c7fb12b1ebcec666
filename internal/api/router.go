// Package api provides the HTTP API for TripRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/api/handler"
	"github.com/triproute/triproute/internal/api/middleware"
	"github.com/triproute/triproute/internal/provider/resilience"
	"github.com/triproute/triproute/internal/routing"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Service is the routing engine (required).
	Service *routing.Service

	// Registry reports provider circuit state on the ops endpoints.
	Registry *resilience.Registry

	// RateLimitPerMinute bounds planning requests per client IP. Zero disables it.
	RateLimitPerMinute int

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "triproute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	routeHandler := handler.NewRouteHandler(cfg.Service, cfg.Logger)
	placeHandler := handler.NewPlaceHandler(cfg.Service)

	planningRateLimit := middleware.RateLimitByIP(middleware.PlanningRateLimit(cfg.RateLimitPerMinute))
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Planning fans out into several provider calls per request
		r.Group(func(r chi.Router) {
			r.Use(planningRateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/routes:plan", routeHandler.PlanRoute)
			r.Post("/routes:chain", routeHandler.PlanChain)
			r.Post("/routes:recommend", routeHandler.Recommend)
		})

		r.With(standardRateLimit).Get("/places:search", placeHandler.SearchPlaces)
	})

	return r
}
