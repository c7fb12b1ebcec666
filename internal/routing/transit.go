package routing

import (
	"context"
	"errors"
)

// MaxTransitCandidates caps the transit plans returned per request.
const MaxTransitCandidates = 3

const infoMissingRequiredParams = "MISSING_REQUIRED_PARAMS"

// TransitQuery is a transit request together with the resolved endpoints the
// scope strategies draw codes from.
type TransitQuery struct {
	Request        TransitRequest
	Origin         ResolvedLocation
	Destination    ResolvedLocation
	DistrictScoped bool
}

// ScopeStrategy revises a rejected transit query. It returns false when it
// does not apply to the failure, in which case the next strategy is tried.
type ScopeStrategy func(q TransitQuery, failure error) (TransitQuery, bool)

// DefaultScopeLadder drops city scoping on a missing-parameter rejection and
// falls back to district codes as a last resort.
var DefaultScopeLadder = []ScopeStrategy{DropCityScope, ScopeByDistrict}

// DropCityScope retries without city codes when the provider reported missing
// required parameters for a city-scoped query.
func DropCityScope(q TransitQuery, failure error) (TransitQuery, bool) {
	if rejectionCode(failure) != infoMissingRequiredParams || !q.Request.CityScoped() {
		return q, false
	}
	q.Request.City1 = ""
	q.Request.City2 = ""
	return q, true
}

// ScopeByDistrict retries an unscoped rejected query with the endpoints'
// administrative codes. Codes still blank are looked up by district name when
// the query runs. Quota rejections are not retried.
func ScopeByDistrict(q TransitQuery, failure error) (TransitQuery, bool) {
	if !errors.Is(failure, ErrProviderRejected) || errors.Is(failure, ErrRateLimitExceeded) {
		return q, false
	}
	if q.Request.CityScoped() || q.DistrictScoped {
		return q, false
	}
	q.DistrictScoped = true
	q.Request.AD1 = q.Origin.AdminCode
	q.Request.AD2 = q.Destination.AdminCode
	return q, true
}

// RunScopeLadder runs attempt and, after each definite provider rejection,
// moves to the first remaining strategy that applies. Each strategy is used
// at most once. Transport failures and exhausted ladders return the last error.
func RunScopeLadder(
	ctx context.Context,
	q TransitQuery,
	ladder []ScopeStrategy,
	attempt func(context.Context, TransitQuery) ([]RoutePlan, error),
) ([]RoutePlan, error) {
	next := 0
	for {
		plans, err := attempt(ctx, q)
		if err == nil {
			return plans, nil
		}
		if !errors.Is(err, ErrProviderRejected) {
			return nil, err
		}

		advanced := false
		for next < len(ladder) && !advanced {
			var revised TransitQuery
			revised, advanced = ladder[next](q, err)
			if advanced {
				q = revised
			}
			next++
		}
		if !advanced {
			return nil, err
		}
	}
}

// TransitPlanner plans public transit trips.
type TransitPlanner struct {
	planner
	ladder []ScopeStrategy
}

// NewTransitPlanner creates a new TransitPlanner.
func NewTransitPlanner(cfg PlannerConfig) *TransitPlanner {
	ladder := cfg.ScopeLadder
	if ladder == nil {
		ladder = DefaultScopeLadder
	}
	return &TransitPlanner{planner: newPlanner(cfg), ladder: ladder}
}

// Mode returns ModeTransit.
func (p *TransitPlanner) Mode() Mode {
	return ModeTransit
}

// Plan plans a transit trip, returning at most MaxTransitCandidates plans.
func (p *TransitPlanner) Plan(ctx context.Context, req PlanRequest) ([]RoutePlan, error) {
	ctx, r := p.start(ctx, ModeTransit)
	defer r.end()

	origin, destination, err := p.resolveEndpoints(ctx, req)
	if err != nil {
		return nil, r.fail(err)
	}

	code := p.initialCityCode(ctx, req.City, origin)
	q := TransitQuery{
		Request: TransitRequest{
			Origin:      *origin.Coordinate,
			Destination: *destination.Coordinate,
			City1:       code,
			City2:       code,
		},
		Origin:      origin,
		Destination: destination,
	}
	r.advance(StageLocationsResolved)

	plans, err := RunScopeLadder(ctx, q, p.ladder, func(ctx context.Context, q TransitQuery) ([]RoutePlan, error) {
		req := p.fillDistricts(ctx, q)
		r.logger.Debug().
			Str("city1", req.City1).
			Str("city2", req.City2).
			Str("ad1", req.AD1).
			Str("ad2", req.AD2).
			Msg("querying transit")
		return p.provider.Transit(ctx, req)
	})
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageProviderQueried)

	if len(plans) > MaxTransitCandidates {
		plans = plans[:MaxTransitCandidates]
	}
	out, err := p.finish(plans, ModeTransit, origin, destination, nil)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StageNormalized)
	return out, nil
}

// initialCityCode picks the city scope: the code geocoded from the city hint,
// else the origin's admin code when a hint was given, else a district lookup
// of the origin's city. Lookup failures leave the request unscoped.
func (p *TransitPlanner) initialCityCode(ctx context.Context, cityHint string, origin ResolvedLocation) string {
	if cityHint != "" {
		loc, err := p.provider.Geocode(ctx, cityHint, "")
		switch {
		case err != nil:
			p.logger.Debug().Err(err).Str("city", cityHint).Msg("city code lookup failed")
		case loc != nil && loc.CityCode != "":
			return loc.CityCode
		case loc != nil && loc.AdminCode != "":
			return loc.AdminCode
		}
		if origin.AdminCode != "" {
			return origin.AdminCode
		}
	}

	if origin.City != "" {
		return p.lookupDistrict(ctx, origin.City)
	}
	return ""
}

func (p *TransitPlanner) fillDistricts(ctx context.Context, q TransitQuery) TransitRequest {
	req := q.Request
	if !q.DistrictScoped {
		return req
	}
	if req.AD1 == "" && q.Origin.City != "" {
		req.AD1 = p.lookupDistrict(ctx, q.Origin.City)
	}
	if req.AD2 == "" && q.Destination.City != "" {
		req.AD2 = p.lookupDistrict(ctx, q.Destination.City)
	}
	return req
}

func (p *TransitPlanner) lookupDistrict(ctx context.Context, name string) string {
	code, err := p.provider.LookupDistrict(ctx, name)
	if err != nil {
		p.logger.Debug().Err(err).Str("district", name).Msg("district lookup failed")
		return ""
	}
	return code
}
