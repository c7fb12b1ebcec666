package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Alternative route bounds for Plan.
const (
	MinAlternatives = 1
	MaxAlternatives = 3
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the mapping provider (required).
	Provider Provider

	// Fares is the cost model for recommendations. Zero fields take defaults.
	Fares FareConfig

	// ChainConcurrency bounds concurrent leg planning (default: 3).
	ChainConcurrency int

	// Location is the zone arrival times are rendered in (default: UTC).
	Location *time.Location

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service is the entry point to the routing engine. It holds no per-request
// state: every call re-resolves locations and re-queries the provider.
type Service struct {
	provider   Provider
	resolver   *Resolver
	planners   PlannerSet
	composer   *Composer
	aggregator *Aggregator
	location   *time.Location
	logger     zerolog.Logger
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	resolver := NewResolver(ResolverConfig{Provider: cfg.Provider, Logger: cfg.Logger})
	planners := NewPlannerSet(PlannerConfig{
		Provider: cfg.Provider,
		Resolver: resolver,
		Logger:   cfg.Logger,
	})

	return &Service{
		provider: cfg.Provider,
		resolver: resolver,
		planners: planners,
		composer: NewComposer(ComposerConfig{
			Planners:    planners,
			Concurrency: cfg.ChainConcurrency,
			Logger:      cfg.Logger,
		}),
		aggregator: NewAggregator(cfg.Fares),
		location:   location,
		logger:     cfg.Logger,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Location returns the zone arrival times are rendered in.
func (s *Service) Location() *time.Location {
	return s.location
}

// Resolve resolves a single location query.
func (s *Service) Resolve(ctx context.Context, query, city string) ResolvedLocation {
	return s.resolver.Resolve(ctx, query, city)
}

// SearchPlaces looks a place up by geocoding, then by POI keyword search.
func (s *Service) SearchPlaces(ctx context.Context, query, city string, limit int) (PlaceSearch, error) {
	return s.resolver.SearchPlaces(ctx, query, city, limit)
}

// ClampAlternatives bounds a requested route count to [MinAlternatives, MaxAlternatives].
func ClampAlternatives(n int) int {
	switch {
	case n < MinAlternatives:
		return MinAlternatives
	case n > MaxAlternatives:
		return MaxAlternatives
	default:
		return n
	}
}

// Plan plans a trip in mode and returns the primary plan with up to
// alternatives-1 further provider candidates nested as Alternatives.
func (s *Service) Plan(ctx context.Context, mode Mode, req PlanRequest, alternatives int) (*RoutePlan, error) {
	planner, err := s.planners.For(mode)
	if err != nil {
		return nil, err
	}

	plans, err := planner.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	n := min(ClampAlternatives(alternatives), len(plans))
	primary := plans[0]
	if n > 1 {
		primary.Alternatives = append([]RoutePlan(nil), plans[1:n]...)
	}
	return &primary, nil
}

// Chain plans an ordered multi-stop trip.
func (s *Service) Chain(ctx context.Context, stops []string, mode Mode, city string) (*ChainResult, error) {
	return s.composer.PlanChain(ctx, stops, mode, city)
}

// TripRecommendation is a ranked recommendation with the plans it was built from.
type TripRecommendation struct {
	Recommendation
	Plans    map[string]RoutePlan
	Failures map[string]error
}

// Recommend plans walking, transit and driving concurrently for one pair of
// locations and ranks the results. Methods that fail are reported in Failures;
// the call only fails when no option remains.
func (s *Service) Recommend(ctx context.Context, origin, destination, city string) (*TripRecommendation, error) {
	methods := map[string]Mode{
		MethodWalking: ModeWalking,
		MethodTransit: ModeTransit,
		MethodDriving: ModeDriving,
	}

	var mu sync.Mutex
	result := &TripRecommendation{
		Plans:    make(map[string]RoutePlan, len(methods)),
		Failures: make(map[string]error),
	}

	var g errgroup.Group
	for method, mode := range methods {
		g.Go(func() error {
			plan, err := s.Plan(ctx, mode, PlanRequest{
				Origin:      origin,
				Destination: destination,
				City:        city,
			}, 1)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Debug().Err(err).Str("method", method).Msg("recommendation option failed")
				result.Failures[method] = err
				return nil
			}
			result.Plans[method] = *plan
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // options never return errors

	options := make(map[string]OptionInput, len(result.Plans))
	for method, plan := range result.Plans {
		options[method] = OptionFromPlan(plan)
	}

	rec, err := s.aggregator.Recommend(options)
	if err != nil {
		errs := []error{err}
		for _, method := range []string{MethodWalking, MethodTransit, MethodDriving} {
			if failure, ok := result.Failures[method]; ok {
				errs = append(errs, fmt.Errorf("%s: %w", method, failure))
			}
		}
		return nil, errors.Join(errs...)
	}
	result.Recommendation = rec
	return result, nil
}

// TextSummary renders the recommendation as human-readable text.
func (r *TripRecommendation) TextSummary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Recommended: %s (%s)\n", r.Best.Method, r.Best.Reason)
	b.WriteString("\nOptions by duration:\n")
	for i, opt := range r.AllOptions {
		duration := FormatDuration(opt.DurationS)
		if duration == "" {
			duration = "unknown"
		}
		fmt.Fprintf(&b, "%d. %s: %s, %s", i+1, opt.Method, duration, FormatDistance(opt.DistanceM))
		if opt.MonetaryCost != nil {
			fmt.Fprintf(&b, ", %.1f CNY", *opt.MonetaryCost)
		}
		fmt.Fprintf(&b, " - %s\n", opt.Reason)
	}

	for _, method := range []string{MethodWalking, MethodTransit, MethodDriving} {
		if err, ok := r.Failures[method]; ok {
			fmt.Fprintf(&b, "\n%s unavailable: %s", method, Describe(err))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
