// Package routing resolves free-form locations and plans, normalizes, ranks and
// chains trips across driving, walking, cycling and public transit.
package routing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Mode is a travel mode.
type Mode string

const (
	ModeDriving     Mode = "driving"
	ModeWalking     Mode = "walking"
	ModeCycling     Mode = "cycling"
	ModeElectroBike Mode = "electrobike"
	ModeTransit     Mode = "transit"
)

// ParseMode maps user input to a Mode. "bicycling" and "ebike" are accepted aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "driving", "drive", "car":
		return ModeDriving, nil
	case "walking", "walk":
		return ModeWalking, nil
	case "cycling", "bicycling", "bike":
		return ModeCycling, nil
	case "electrobike", "ebike", "e-bike":
		return ModeElectroBike, nil
	case "transit", "bus", "public_transit":
		return ModeTransit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// DrivingStrategy is the provider's driving route preference, passed through unmodified.
type DrivingStrategy int

const (
	StrategyRecommended     DrivingStrategy = 0
	StrategyAvoidCongestion DrivingStrategy = 1
	StrategyHighwayFirst    DrivingStrategy = 2
	StrategyNoHighway       DrivingStrategy = 3
	StrategyLessToll        DrivingStrategy = 4
	StrategyMainRoadFirst   DrivingStrategy = 5
	StrategyFastest         DrivingStrategy = 6
)

// Valid reports whether s is one of the provider-supported strategies.
func (s DrivingStrategy) Valid() bool {
	return s >= StrategyRecommended && s <= StrategyFastest
}

// Coordinate is a WGS84/GCJ-02 point in provider order (longitude first).
type Coordinate struct {
	Lon float64
	Lat float64
}

// Valid reports whether the coordinate is within longitude/latitude ranges.
func (c Coordinate) Valid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// String renders the coordinate in provider form "lon,lat" with at most six decimals.
func (c Coordinate) String() string {
	return formatDegrees(c.Lon) + "," + formatDegrees(c.Lat)
}

func formatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ParseCoordinate parses a literal "lon,lat" string. Exactly two numeric tokens
// within range are required.
func ParseCoordinate(s string) (Coordinate, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lon: lon, Lat: lat}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}

// ResolvedLocation is a location query reduced to a coordinate plus best-effort
// descriptive metadata. A nil Coordinate means resolution failed.
type ResolvedLocation struct {
	Query            string
	Coordinate       *Coordinate
	FormattedAddress string
	Name             string
	City             string
	AdminCode        string
	CityCode         string
}

// Resolved reports whether a coordinate was found.
func (l ResolvedLocation) Resolved() bool {
	return l.Coordinate != nil
}

// Label returns the most descriptive name available.
func (l ResolvedLocation) Label() string {
	switch {
	case l.FormattedAddress != "":
		return l.FormattedAddress
	case l.Name != "":
		return l.Name
	default:
		return l.Query
	}
}

// Place is a single POI search hit.
type Place struct {
	Name       string
	Address    string
	Coordinate *Coordinate
	City       string
	AdminCode  string
	Type       string
}

// RouteStep is one maneuver or transit sub-leg.
type RouteStep struct {
	Instruction string
	RoadName    string
	DistanceM   float64
	DurationS   float64
	Polyline    string // encoded polyline, empty when the provider sent no geometry
}

// RoutePlan is the normalized, mode-agnostic result of one planning call.
type RoutePlan struct {
	Mode           Mode
	Origin         ResolvedLocation
	Destination    ResolvedLocation
	Waypoints      []ResolvedLocation
	TotalDistanceM float64
	TotalDurationS float64
	MonetaryCost   *float64 // fare for transit, taxi cost otherwise
	Tolls          *float64
	TrafficLights  *int
	Restricted     *bool
	Steps          []RouteStep
	Alternatives   []RoutePlan
}

// PlanRequest is the input to a Planner.
type PlanRequest struct {
	Origin      string
	Destination string
	Waypoints   []string // driving only
	Strategy    *DrivingStrategy
	City        string
}

// Planner plans routes for one travel mode. Results are ordered by the
// provider's ranking; the first plan is the primary route.
type Planner interface {
	Mode() Mode
	Plan(ctx context.Context, req PlanRequest) ([]RoutePlan, error)
}

// OptionInput is a per-method candidate fed to the Aggregator.
type OptionInput struct {
	DurationS float64
	DistanceM float64
	Cost      *float64
}

// RankedOption is one proposed way to travel, with its rationale.
type RankedOption struct {
	Method       string
	DurationS    float64
	DistanceM    float64
	MonetaryCost *float64
	FuelCost     *float64
	Reason       string
}

// Recommendation is the ranked outcome of an aggregation call.
type Recommendation struct {
	Best       RankedOption
	AllOptions []RankedOption
}

// Stage is a planning lifecycle state.
type Stage string

const (
	StageUnresolved        Stage = "UNRESOLVED"
	StageLocationsResolved Stage = "LOCATIONS_RESOLVED"
	StageProviderQueried   Stage = "PROVIDER_QUERIED"
	StageNormalized        Stage = "NORMALIZED"
	StageFailed            Stage = "FAILED"
)

func ptr[T any](v T) *T {
	return &v
}
