package amap

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/triproute/triproute/internal/routing"
)

const (
	pathDriving   = "/v5/direction/driving"
	pathWalking   = "/v5/direction/walking"
	pathBicycling = "/v5/direction/bicycling"
)

// Directions plans a driving, walking or cycling trip. E-bike trips use the
// bicycling endpoint.
func (c *Client) Directions(ctx context.Context, req routing.DirectionsRequest) ([]routing.RoutePlan, error) {
	params := url.Values{}
	params.Set("origin", req.Origin.String())
	params.Set("destination", req.Destination.String())

	var path string
	switch req.Mode {
	case routing.ModeDriving:
		path = pathDriving
		params.Set("extensions", "all")
		params.Set("show_fields", "cost,tmcs,polyline")
		if len(req.Waypoints) > 0 {
			points := make([]string, len(req.Waypoints))
			for i, wp := range req.Waypoints {
				points[i] = wp.String()
			}
			params.Set("waypoints", strings.Join(points, ";"))
		}
		if req.Strategy != nil {
			params.Set("strategy", strconv.Itoa(int(*req.Strategy)))
		}
	case routing.ModeWalking:
		path = pathWalking
		params.Set("show_fields", "cost,polyline")
	case routing.ModeCycling, routing.ModeElectroBike:
		path = pathBicycling
		params.Set("show_fields", "cost,polyline")
	default:
		return nil, fmt.Errorf("directions for %q: %w", req.Mode, routing.ErrUnsupportedMode)
	}

	c.logger.Debug().
		Str("mode", string(req.Mode)).
		Str("origin", req.Origin.String()).
		Str("destination", req.Destination.String()).
		Int("waypoints", len(req.Waypoints)).
		Msg("requesting directions")

	body, err := c.get(ctx, "directions_"+string(req.Mode), path, params)
	if err != nil {
		return nil, err
	}

	route := body.object("route")
	paths := route.objects("paths")
	plans := make([]routing.RoutePlan, 0, len(paths))
	for _, p := range paths {
		plans = append(plans, toRoutePlan(route, p))
	}

	c.logger.Debug().Int("route_count", len(plans)).Msg("received directions")
	return plans, nil
}

// toRoutePlan decodes one AMap path. Missing totals stay zero for the planner
// to fill in.
func toRoutePlan(route, p object) routing.RoutePlan {
	cost := p.object("cost")

	plan := routing.RoutePlan{
		TotalDistanceM: p.number("distance"),
		TotalDurationS: p.durationOf("duration", "time", "total_time"),
	}

	taxi := p.number("taxi_cost")
	if taxi == 0 {
		taxi = cost.number("taxi_cost", "taxi_fee")
	}
	if taxi == 0 {
		taxi = route.number("taxi_cost")
	}
	plan.MonetaryCost = positive(taxi)

	tolls := p.number("tolls")
	if tolls == 0 {
		tolls = cost.number("tolls")
	}
	plan.Tolls = positive(tolls)

	if lights, ok := p.optionalNumber("traffic_lights"); ok {
		n := int(lights)
		plan.TrafficLights = &n
	} else if lights, ok := cost.optionalNumber("traffic_lights"); ok {
		n := int(lights)
		plan.TrafficLights = &n
	}

	plan.Restricted = flag(p.str("restriction"))

	for _, s := range p.objects("steps") {
		plan.Steps = append(plan.Steps, routing.RouteStep{
			Instruction: s.str("instruction"),
			RoadName:    s.str("road", "road_name"),
			DistanceM:   s.number("distance", "step_distance"),
			DurationS:   s.durationOf("duration", "time", "step_time"),
			Polyline:    encodePolyline(s.str("polyline")),
		})
	}
	return plan
}
