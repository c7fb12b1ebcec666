package routing

import (
	"context"
)

// Provider is the mapping service the engine resolves and plans against.
// Implementations decode provider payloads into the domain model but leave
// estimation fallbacks to the planners.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Geocode returns the first forward-geocoding candidate, or nil when there is none.
	Geocode(ctx context.Context, address, city string) (*ResolvedLocation, error)

	// SearchPlaces returns up to limit POI keyword matches.
	SearchPlaces(ctx context.Context, keywords, city string, limit int) ([]Place, error)

	// LookupDistrict returns the administrative code of the first district
	// matching keywords, or "" when there is none.
	LookupDistrict(ctx context.Context, keywords string) (string, error)

	// Directions plans a driving, walking or cycling trip. Results keep the
	// provider's ranking.
	Directions(ctx context.Context, req DirectionsRequest) ([]RoutePlan, error)

	// Transit plans a public transit trip. Results keep the provider's ranking.
	Transit(ctx context.Context, req TransitRequest) ([]RoutePlan, error)
}

// DirectionsRequest is a single-mode provider query between coordinates.
type DirectionsRequest struct {
	Mode        Mode
	Origin      Coordinate
	Destination Coordinate
	Waypoints   []Coordinate     // driving only
	Strategy    *DrivingStrategy // driving only
}

// TransitRequest is a transit provider query. City1/City2 scope the request by
// city code; AD1/AD2 scope it by administrative district code.
type TransitRequest struct {
	Origin      Coordinate
	Destination Coordinate
	City1       string
	City2       string
	AD1         string
	AD2         string
}

// CityScoped reports whether a city code scope is set.
func (r TransitRequest) CityScoped() bool {
	return r.City1 != "" || r.City2 != ""
}
