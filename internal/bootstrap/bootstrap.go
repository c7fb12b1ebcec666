// Package bootstrap assembles the routing engine from configuration for the
// cmd binaries.
package bootstrap

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/config"
	"github.com/triproute/triproute/internal/provider/resilience"
	"github.com/triproute/triproute/internal/routing"
	"github.com/triproute/triproute/internal/routing/amap"
	"github.com/triproute/triproute/internal/telemetry"
)

// Engine is a routing service plus the registry tracking its provider.
type Engine struct {
	Service  *routing.Service
	Registry *resilience.Registry
}

// NewEngine builds the AMap client and the routing service on top of it.
// Provider metrics are recorded through the global meter, so telemetry
// should be initialized first.
func NewEngine(cfg *config.Config, logger zerolog.Logger) (*Engine, error) {
	loc, err := cfg.Planner.Location()
	if err != nil {
		return nil, fmt.Errorf("planner location: %w", err)
	}

	metrics, err := telemetry.NewProviderMetrics(amap.ProviderName)
	if err != nil {
		return nil, fmt.Errorf("provider metrics: %w", err)
	}

	registry := resilience.NewRegistry()
	client := amap.NewClient(amap.ClientConfig{
		APIKey:            cfg.Provider.APIKey,
		BaseURL:           cfg.Provider.BaseURL,
		Timeout:           cfg.Provider.Timeout,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Registry:          registry,
		Metrics:           metrics,
		Logger:            logger,
	})

	service := routing.NewService(routing.ServiceConfig{
		Provider:         client,
		Fares:            cfg.Planner.Fares,
		ChainConcurrency: cfg.Planner.ChainConcurrency,
		Location:         loc,
		Logger:           logger,
	})

	logger.Info().
		Str("provider", client.Name()).
		Str("base_url", cfg.Provider.BaseURL).
		Dur("timeout", cfg.Provider.Timeout).
		Str("timezone", cfg.Planner.Timezone).
		Msg("routing engine initialized")

	return &Engine{Service: service, Registry: registry}, nil
}
