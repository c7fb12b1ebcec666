package routing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/triproute/triproute/internal/routing"

// PlannerConfig holds configuration shared by all planner variants.
type PlannerConfig struct {
	// Provider is the mapping provider (required).
	Provider Provider

	// Resolver resolves endpoints. If nil, one is built over Provider.
	Resolver *Resolver

	// ScopeLadder overrides the transit city-scope retry strategies.
	// If nil, uses DefaultScopeLadder.
	ScopeLadder []ScopeStrategy

	// Logger for planner operations.
	Logger zerolog.Logger
}

// NewPlanner returns the planner variant for mode.
func NewPlanner(mode Mode, cfg PlannerConfig) (Planner, error) {
	switch mode {
	case ModeDriving:
		return NewDrivingPlanner(cfg), nil
	case ModeWalking, ModeCycling, ModeElectroBike:
		return NewActivePlanner(mode, cfg), nil
	case ModeTransit:
		return NewTransitPlanner(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
}

// PlannerSet maps modes to planners.
type PlannerSet map[Mode]Planner

// NewPlannerSet builds one planner per mode, sharing a resolver.
func NewPlannerSet(cfg PlannerConfig) PlannerSet {
	if cfg.Resolver == nil {
		cfg.Resolver = NewResolver(ResolverConfig{Provider: cfg.Provider, Logger: cfg.Logger})
	}
	cycling := NewActivePlanner(ModeCycling, cfg)
	return PlannerSet{
		ModeDriving:     NewDrivingPlanner(cfg),
		ModeWalking:     NewActivePlanner(ModeWalking, cfg),
		ModeCycling:     cycling,
		ModeElectroBike: cycling,
		ModeTransit:     NewTransitPlanner(cfg),
	}
}

// For returns the planner registered for mode.
func (s PlannerSet) For(mode Mode) (Planner, error) {
	p, ok := s[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
	return p, nil
}

type planner struct {
	provider Provider
	resolver *Resolver
	logger   zerolog.Logger
	tracer   trace.Tracer
}

func newPlanner(cfg PlannerConfig) planner {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewResolver(ResolverConfig{Provider: cfg.Provider, Logger: cfg.Logger})
	}
	return planner{
		provider: cfg.Provider,
		resolver: resolver,
		logger:   cfg.Logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// run tracks one planning call through its lifecycle stages.
type run struct {
	span   trace.Span
	logger zerolog.Logger
	stage  Stage
}

func (p planner) start(ctx context.Context, mode Mode) (context.Context, *run) {
	ctx, span := p.tracer.Start(ctx, "routing.Plan",
		trace.WithAttributes(attribute.String("routing.mode", string(mode))),
	)
	r := &run{
		span:   span,
		logger: p.logger.With().Str("mode", string(mode)).Logger(),
	}
	r.advance(StageUnresolved)
	return ctx, r
}

func (r *run) advance(stage Stage) {
	r.stage = stage
	r.span.AddEvent("stage", trace.WithAttributes(attribute.String("routing.stage", string(stage))))
	r.logger.Debug().Str("stage", string(stage)).Msg("planning stage")
}

func (r *run) fail(err error) error {
	kind := Classify(err)
	r.span.AddEvent("stage", trace.WithAttributes(
		attribute.String("routing.stage", string(StageFailed)),
		attribute.String("routing.failure", string(kind)),
	))
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, string(kind))
	r.logger.Debug().
		Err(err).
		Str("stage", string(StageFailed)).
		Str("failed_after", string(r.stage)).
		Str("failure", string(kind)).
		Msg("planning failed")
	r.stage = StageFailed
	return err
}

func (r *run) end() {
	r.span.End()
}

// resolveEndpoints resolves both endpoints or reports the side that failed.
func (p planner) resolveEndpoints(ctx context.Context, req PlanRequest) (ResolvedLocation, ResolvedLocation, error) {
	origin := p.resolver.Resolve(ctx, req.Origin, req.City)
	if !origin.Resolved() {
		return origin, ResolvedLocation{}, &LocationError{Side: SideOrigin, Query: req.Origin}
	}
	destination := p.resolver.Resolve(ctx, req.Destination, req.City)
	if !destination.Resolved() {
		return origin, destination, &LocationError{Side: SideDestination, Query: req.Destination}
	}
	return origin, destination, nil
}

// finish attaches endpoints to provider plans and applies the estimation fallbacks.
func (p planner) finish(plans []RoutePlan, mode Mode, origin, destination ResolvedLocation, waypoints []ResolvedLocation) ([]RoutePlan, error) {
	if len(plans) == 0 {
		return nil, &Error{
			Provider: p.provider.Name(),
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      ErrNoRouteFound,
		}
	}

	speed := ReferenceSpeedKmh(mode)
	out := make([]RoutePlan, len(plans))
	for i, plan := range plans {
		plan.Mode = mode
		plan.Origin = origin
		plan.Destination = destination
		plan.Waypoints = waypoints
		out[i] = Normalize(plan, speed)
	}
	return out, nil
}

// DrivingPlanner plans car trips with optional waypoints and strategy.
type DrivingPlanner struct {
	planner
}

// NewDrivingPlanner creates a new DrivingPlanner.
func NewDrivingPlanner(cfg PlannerConfig) *DrivingPlanner {
	return &DrivingPlanner{planner: newPlanner(cfg)}
}

// Mode returns ModeDriving.
func (p *DrivingPlanner) Mode() Mode {
	return ModeDriving
}

// Plan plans a driving trip. Waypoints that fail to resolve are skipped.
func (p *DrivingPlanner) Plan(ctx context.Context, req PlanRequest) ([]RoutePlan, error) {
	ctx, r := p.start(ctx, ModeDriving)
	defer r.end()

	origin, destination, err := p.resolveEndpoints(ctx, req)
	if err != nil {
		return nil, r.fail(err)
	}

	var waypoints []ResolvedLocation
	var coords []Coordinate
	for _, query := range req.Waypoints {
		wp := p.resolver.Resolve(ctx, query, req.City)
		if !wp.Resolved() {
			r.logger.Warn().Str("waypoint", query).Msg("skipping unresolved waypoint")
			continue
		}
		waypoints = append(waypoints, wp)
		coords = append(coords, *wp.Coordinate)
	}
	r.advance(StageLocationsResolved)

	plans, err := p.provider.Directions(ctx, DirectionsRequest{
		Mode:        ModeDriving,
		Origin:      *origin.Coordinate,
		Destination: *destination.Coordinate,
		Waypoints:   coords,
		Strategy:    req.Strategy,
	})
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageProviderQueried)

	out, err := p.finish(plans, ModeDriving, origin, destination, waypoints)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageNormalized)
	return out, nil
}

// ActivePlanner plans walking, cycling and e-bike trips. E-bike trips use
// the cycling endpoint and speed and are reported as cycling.
type ActivePlanner struct {
	planner
	mode Mode
}

// NewActivePlanner creates a planner for ModeWalking, ModeCycling or ModeElectroBike.
func NewActivePlanner(mode Mode, cfg PlannerConfig) *ActivePlanner {
	if mode == ModeElectroBike {
		mode = ModeCycling
	}
	return &ActivePlanner{planner: newPlanner(cfg), mode: mode}
}

// Mode returns the planned mode.
func (p *ActivePlanner) Mode() Mode {
	return p.mode
}

// Plan plans a single-leg trip. Waypoints and strategy are ignored.
func (p *ActivePlanner) Plan(ctx context.Context, req PlanRequest) ([]RoutePlan, error) {
	ctx, r := p.start(ctx, p.mode)
	defer r.end()

	origin, destination, err := p.resolveEndpoints(ctx, req)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageLocationsResolved)

	plans, err := p.provider.Directions(ctx, DirectionsRequest{
		Mode:        p.mode,
		Origin:      *origin.Coordinate,
		Destination: *destination.Coordinate,
	})
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageProviderQueried)

	out, err := p.finish(plans, p.mode, origin, destination, nil)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageNormalized)
	return out, nil
}
