package routing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Place search limits.
const (
	DefaultPlaceLimit = 5
	MaxPlaceLimit     = 25
)

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	Provider Provider
	Logger   zerolog.Logger
}

// Resolver turns free-form location text into coordinates. It holds no state
// between calls.
type Resolver struct {
	provider Provider
	logger   zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Resolve reduces query to a ResolvedLocation. It never fails: when every
// strategy comes up empty only Query is populated.
//
// Strategies run in order: literal "lon,lat", forward geocoding, then POI
// keyword search. Provider errors in one strategy fall through to the next.
func (r *Resolver) Resolve(ctx context.Context, query, cityHint string) ResolvedLocation {
	if c, ok := ParseCoordinate(query); ok {
		return ResolvedLocation{Query: query, Coordinate: &c}
	}

	if strings.TrimSpace(query) == "" {
		return ResolvedLocation{Query: query}
	}

	if loc := r.geocode(ctx, query, cityHint); loc != nil {
		return *loc
	}

	if loc := r.searchFirst(ctx, query, cityHint); loc != nil {
		return *loc
	}

	r.logger.Warn().
		Str("query", query).
		Str("city", cityHint).
		Msg("location could not be resolved")

	return ResolvedLocation{Query: query}
}

// Coordinates runs the same chain as Resolve and returns only the coordinate,
// or nil when resolution failed.
func (r *Resolver) Coordinates(ctx context.Context, query, cityHint string) *Coordinate {
	return r.Resolve(ctx, query, cityHint).Coordinate
}

// PlaceSearch is the outcome of SearchPlaces: either a single geocoded match
// or a list of POI hits.
type PlaceSearch struct {
	Query    string
	Geocoded *ResolvedLocation
	Places   []Place
}

// Found reports whether anything matched.
func (s PlaceSearch) Found() bool {
	return s.Geocoded != nil || len(s.Places) > 0
}

// SearchPlaces looks query up by geocoding first and falls back to a POI list
// of at most limit entries. Unlike Resolve, provider failures on the POI
// search are returned.
func (r *Resolver) SearchPlaces(ctx context.Context, query, cityHint string, limit int) (PlaceSearch, error) {
	result := PlaceSearch{Query: query}

	if loc := r.geocode(ctx, query, cityHint); loc != nil {
		result.Geocoded = loc
		return result, nil
	}

	places, err := r.provider.SearchPlaces(ctx, query, cityHint, ClampPlaceLimit(limit))
	if err != nil {
		return result, err
	}
	result.Places = places
	return result, nil
}

// ClampPlaceLimit bounds a requested POI count to [1, MaxPlaceLimit], using
// DefaultPlaceLimit for non-positive values.
func ClampPlaceLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPlaceLimit
	case limit > MaxPlaceLimit:
		return MaxPlaceLimit
	default:
		return limit
	}
}

func (r *Resolver) geocode(ctx context.Context, query, cityHint string) *ResolvedLocation {
	loc, err := r.provider.Geocode(ctx, query, cityHint)
	if err != nil {
		r.logger.Debug().Err(err).Str("query", query).Msg("geocoding failed, trying next strategy")
		return nil
	}
	if loc == nil || loc.Coordinate == nil {
		return nil
	}
	loc.Query = query
	return loc
}

func (r *Resolver) searchFirst(ctx context.Context, query, cityHint string) *ResolvedLocation {
	places, err := r.provider.SearchPlaces(ctx, query, cityHint, 1)
	if err != nil {
		r.logger.Debug().Err(err).Str("query", query).Msg("place search failed")
		return nil
	}
	if len(places) == 0 || places[0].Coordinate == nil {
		return nil
	}

	poi := places[0]
	address := poi.Address
	if address == "" {
		address = poi.Name
	}
	return &ResolvedLocation{
		Query:            query,
		Coordinate:       poi.Coordinate,
		FormattedAddress: address,
		Name:             poi.Name,
		City:             poi.City,
		AdminCode:        poi.AdminCode,
	}
}
