package handler

import (
	"time"

	"github.com/triproute/triproute/internal/api/models"
	"github.com/triproute/triproute/internal/routing"
)

func toPoint(c *routing.Coordinate) *models.Point {
	if c == nil {
		return nil
	}
	return &models.Point{Lon: c.Lon, Lat: c.Lat}
}

func toLocation(l routing.ResolvedLocation) models.Location {
	return models.Location{
		Query:     l.Query,
		Label:     l.Label(),
		Point:     toPoint(l.Coordinate),
		City:      l.City,
		AdminCode: l.AdminCode,
	}
}

// toRoutePlan converts a plan and its alternatives. Arrival is only set when
// the plan has a duration.
func toRoutePlan(p routing.RoutePlan, now time.Time, loc *time.Location) models.RoutePlan {
	out := models.RoutePlan{
		Mode:            string(p.Mode),
		Origin:          toLocation(p.Origin),
		Destination:     toLocation(p.Destination),
		DistanceMeters:  p.TotalDistanceM,
		DurationSeconds: p.TotalDurationS,
		Cost:            p.MonetaryCost,
		Tolls:           p.Tolls,
		TrafficLights:   p.TrafficLights,
		Restricted:      p.Restricted,
		Steps:           make([]models.RouteStep, 0, len(p.Steps)),
	}
	for _, wp := range p.Waypoints {
		out.Waypoints = append(out.Waypoints, toLocation(wp))
	}
	if p.TotalDurationS > 0 {
		arrival := models.Timestamp(routing.ArrivalTime(now, p.TotalDurationS, loc))
		out.ArrivalAt = &arrival
	}
	for _, s := range p.Steps {
		out.Steps = append(out.Steps, models.RouteStep{
			Instruction:     s.Instruction,
			Road:            s.RoadName,
			DistanceMeters:  s.DistanceM,
			DurationSeconds: s.DurationS,
			Polyline:        s.Polyline,
		})
	}
	for _, alt := range p.Alternatives {
		out.Alternatives = append(out.Alternatives, toRoutePlan(alt, now, loc))
	}
	return out
}

func toTravelOption(o routing.RankedOption) models.TravelOption {
	out := models.TravelOption{
		Method:          o.Method,
		DurationSeconds: o.DurationS,
		DistanceMeters:  o.DistanceM,
		FuelCost:        o.FuelCost,
		Reason:          o.Reason,
	}
	if o.MonetaryCost != nil {
		out.Cost = *o.MonetaryCost
	}
	return out
}

func toPlace(p routing.Place) models.Place {
	return models.Place{
		Name:      p.Name,
		Address:   p.Address,
		Point:     toPoint(p.Coordinate),
		City:      p.City,
		AdminCode: p.AdminCode,
		Type:      p.Type,
	}
}
