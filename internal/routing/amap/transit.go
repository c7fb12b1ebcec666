package amap

import (
	"context"
	"fmt"
	"net/url"

	"github.com/triproute/triproute/internal/routing"
)

const pathTransit = "/v5/direction/transit/integrated"

// Transit plans a public transit trip. AMap rejects unscoped queries with
// MISSING_REQUIRED_PARAMS; retrying with a different scope is left to the
// transit planner.
func (c *Client) Transit(ctx context.Context, req routing.TransitRequest) ([]routing.RoutePlan, error) {
	params := url.Values{}
	params.Set("origin", req.Origin.String())
	params.Set("destination", req.Destination.String())
	params.Set("extensions", "all")
	params.Set("show_fields", "cost")
	setIfPresent(params, "city1", req.City1)
	setIfPresent(params, "city2", req.City2)
	setIfPresent(params, "ad1", req.AD1)
	setIfPresent(params, "ad2", req.AD2)

	c.logger.Debug().
		Str("origin", req.Origin.String()).
		Str("destination", req.Destination.String()).
		Str("city1", req.City1).
		Str("ad1", req.AD1).
		Msg("requesting transit")

	body, err := c.get(ctx, "transit", pathTransit, params)
	if err != nil {
		return nil, err
	}

	transits := body.object("route").objects("transits")
	plans := make([]routing.RoutePlan, 0, len(transits))
	for _, t := range transits {
		plans = append(plans, toTransitPlan(t))
	}

	c.logger.Debug().Int("route_count", len(plans)).Msg("received transit")
	return plans, nil
}

func setIfPresent(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// toTransitPlan decodes one transit candidate. cost is a plain fare on the v3
// shape and an object with transit_fee on v5.
func toTransitPlan(t object) routing.RoutePlan {
	fare := t.number("cost")
	if fare == 0 {
		fare = t.object("cost").number("transit_fee")
	}

	plan := routing.RoutePlan{
		TotalDistanceM: t.number("distance"),
		TotalDurationS: t.durationOf("duration"),
		MonetaryCost:   positive(fare),
	}

	for _, seg := range t.objects("segments") {
		plan.Steps = append(plan.Steps, segmentSteps(seg)...)
	}
	return plan
}

// segmentSteps flattens one segment into a walk step, one step per bus line
// and a rail step, in that order.
func segmentSteps(seg object) []routing.RouteStep {
	var steps []routing.RouteStep

	if walk, ok := walkingStep(seg); ok {
		steps = append(steps, walk)
	}

	for _, line := range seg.object("bus").objects("buslines") {
		steps = append(steps, rideStep(line, "bus"))
	}

	if rail := seg.object("railway"); len(rail) > 0 {
		steps = append(steps, rideStep(rail, "metro"))
	}
	return steps
}

// walkingStep reads the walking part of a segment. AMap sends an object, an
// empty array when there is no walk, or occasionally a bare string.
func walkingStep(seg object) (routing.RouteStep, bool) {
	raw, present := seg["walking"]
	if !present {
		return routing.RouteStep{}, false
	}

	walk := asObject(raw)
	if walk == nil {
		if s, ok := scalar(raw); ok && s != "" {
			return routing.RouteStep{Instruction: "walk a short distance"}, true
		}
		return routing.RouteStep{}, false
	}
	if len(walk) == 0 {
		return routing.RouteStep{}, false
	}

	step := routing.RouteStep{
		Instruction: walk.str("instruction"),
		RoadName:    walk.str("road"),
		DistanceM:   walk.number("distance"),
		DurationS:   walk.durationOf("duration"),
	}
	if step.Instruction == "" && step.DistanceM > 0 {
		step.Instruction = fmt.Sprintf("walk %.0f m", step.DistanceM)
	}
	return step, true
}

// rideStep describes a bus line or rail leg.
func rideStep(line object, fallbackName string) routing.RouteStep {
	name := line.str("name")
	if name == "" {
		name = fallbackName
	}

	instruction := "Take " + name
	from := line.object("departure_stop").str("name")
	to := line.object("arrival_stop").str("name")
	if from != "" && to != "" {
		instruction += fmt.Sprintf(" from %s to %s", from, to)
	}
	if stops := line.count("via_stops"); stops > 0 {
		instruction += fmt.Sprintf(", %d stops", stops)
	}

	return routing.RouteStep{
		Instruction: instruction,
		DistanceM:   line.number("distance"),
		DurationS:   line.durationOf("duration", "time"),
		Polyline:    encodePolyline(line.str("polyline")),
	}
}
