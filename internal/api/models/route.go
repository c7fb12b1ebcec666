package models

// PlanRouteRequest is the body of POST /v1/routes:plan.
type PlanRouteRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Mode        string   `json:"mode,omitempty"`
	Waypoints   []string `json:"waypoints,omitempty"`
	City        string   `json:"city,omitempty"`
	Strategy    *int     `json:"strategy,omitempty"`
	// Alternatives is the number of plans wanted, 1-3; out-of-range values are clamped.
	Alternatives int `json:"alternatives,omitempty"`
}

// PlanChainRequest is the body of POST /v1/routes:chain.
type PlanChainRequest struct {
	Stops []string `json:"stops"`
	Mode  string   `json:"mode,omitempty"`
	City  string   `json:"city,omitempty"`
}

// RecommendRequest is the body of POST /v1/routes:recommend.
type RecommendRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	City        string `json:"city,omitempty"`
}

// Location is a resolved (or unresolved) free-form location.
type Location struct {
	Query     string `json:"query"`
	Label     string `json:"label"`
	Point     *Point `json:"point,omitempty"`
	City      string `json:"city,omitempty"`
	AdminCode string `json:"adminCode,omitempty"`
}

// RouteStep is one instruction of a plan.
type RouteStep struct {
	Instruction     string  `json:"instruction"`
	Road            string  `json:"road,omitempty"`
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
	Polyline        string  `json:"polyline,omitempty"`
}

// RoutePlan is a normalized plan for a single mode.
type RoutePlan struct {
	Mode            string      `json:"mode"`
	Origin          Location    `json:"origin"`
	Destination     Location    `json:"destination"`
	Waypoints       []Location  `json:"waypoints,omitempty"`
	DistanceMeters  float64     `json:"distanceMeters"`
	DurationSeconds float64     `json:"durationSeconds"`
	Cost            *float64    `json:"cost,omitempty"`
	Tolls           *float64    `json:"tolls,omitempty"`
	TrafficLights   *int        `json:"trafficLights,omitempty"`
	Restricted      *bool       `json:"restricted,omitempty"`
	ArrivalAt       *Timestamp  `json:"arrivalAt,omitempty"`
	Steps           []RouteStep `json:"steps"`
	Alternatives    []RoutePlan `json:"alternatives,omitempty"`
}

// PlanRouteResponse is returned by POST /v1/routes:plan.
type PlanRouteResponse struct {
	GeneratedAt Timestamp `json:"generatedAt"`
	Provider    string    `json:"provider"`
	Plan        RoutePlan `json:"plan"`
	Summary     string    `json:"summary"`
}

// LegFailure explains why a chain leg could not be planned.
type LegFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ChainLeg is one consecutive pair of stops.
type ChainLeg struct {
	Index   int         `json:"index"`
	From    string      `json:"from"`
	To      string      `json:"to"`
	Plan    *RoutePlan  `json:"plan,omitempty"`
	Failure *LegFailure `json:"failure,omitempty"`
}

// PlanChainResponse is returned by POST /v1/routes:chain. Totals cover
// successful legs only.
type PlanChainResponse struct {
	GeneratedAt          Timestamp  `json:"generatedAt"`
	Mode                 string     `json:"mode"`
	Stops                []string   `json:"stops"`
	Legs                 []ChainLeg `json:"legs"`
	FailedLegs           int        `json:"failedLegs"`
	TotalDistanceMeters  float64    `json:"totalDistanceMeters"`
	TotalDurationSeconds float64    `json:"totalDurationSeconds"`
	Summary              string     `json:"summary"`
}

// TravelOption is one ranked way to make a trip.
type TravelOption struct {
	Method          string   `json:"method"`
	DurationSeconds float64  `json:"durationSeconds"`
	DistanceMeters  float64  `json:"distanceMeters"`
	Cost            float64  `json:"cost"`
	FuelCost        *float64 `json:"fuelCost,omitempty"`
	Reason          string   `json:"reason"`
}

// RecommendResponse is returned by POST /v1/routes:recommend.
type RecommendResponse struct {
	GeneratedAt Timestamp         `json:"generatedAt"`
	Best        TravelOption      `json:"best"`
	Options     []TravelOption    `json:"options"`
	Unavailable map[string]string `json:"unavailable,omitempty"`
	Summary     string            `json:"summary"`
}

// Place is a POI search hit.
type Place struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Point     *Point `json:"point,omitempty"`
	City      string `json:"city,omitempty"`
	AdminCode string `json:"adminCode,omitempty"`
	Type      string `json:"type,omitempty"`
}

// PlaceSearchResponse is returned by GET /v1/places:search. Geocoded is set
// when the query resolved to a single address; otherwise Places lists POI hits.
type PlaceSearchResponse struct {
	Query    string    `json:"query"`
	Found    bool      `json:"found"`
	Geocoded *Location `json:"geocoded,omitempty"`
	Places   []Place   `json:"places"`
}
