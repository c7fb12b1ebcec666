package routing

import (
	"github.com/triproute/triproute/pkg/polyline"
)

// Reference speeds used when the provider omits a duration.
const (
	DrivingSpeedKmh = 30.0
	WalkingSpeedKmh = 5.0
	CyclingSpeedKmh = 15.0
)

// ReferenceSpeedKmh returns the estimation speed for a mode, or 0 when the mode
// has none (transit totals come from its segments).
func ReferenceSpeedKmh(mode Mode) float64 {
	switch mode {
	case ModeDriving:
		return DrivingSpeedKmh
	case ModeWalking:
		return WalkingSpeedKmh
	case ModeCycling, ModeElectroBike:
		return CyclingSpeedKmh
	default:
		return 0
	}
}

// EstimateDurationS returns the seconds needed to cover distanceM at speedKmh.
func EstimateDurationS(distanceM, speedKmh float64) float64 {
	if distanceM <= 0 || speedKmh <= 0 {
		return 0
	}
	return distanceM / 1000 / speedKmh * 3600
}

// Normalize fills zero or missing totals on a plan and its alternatives.
//
// Steps without a duration get a speed estimate. A zero total distance is
// replaced by the step sum, then the step geometry length, then the
// great-circle distance between resolved endpoints. A zero total duration is
// estimated from the total distance at speedKmh. Without a reference speed
// (transit) or a distance it falls back to the provider's step durations.
func Normalize(plan RoutePlan, speedKmh float64) RoutePlan {
	plan.TotalDistanceM = nonNegative(plan.TotalDistanceM)
	plan.TotalDurationS = nonNegative(plan.TotalDurationS)

	var stepDistance, stepDuration float64
	steps := make([]RouteStep, len(plan.Steps))
	for i, step := range plan.Steps {
		step.DistanceM = nonNegative(step.DistanceM)
		step.DurationS = nonNegative(step.DurationS)
		stepDistance += step.DistanceM
		stepDuration += step.DurationS
		if step.DurationS == 0 {
			step.DurationS = EstimateDurationS(step.DistanceM, speedKmh)
		}
		steps[i] = step
	}
	if plan.Steps != nil {
		plan.Steps = steps
	}

	if plan.TotalDistanceM == 0 {
		plan.TotalDistanceM = stepDistance
	}
	if plan.TotalDistanceM == 0 {
		plan.TotalDistanceM = geometryLength(plan.Steps)
	}
	if plan.TotalDistanceM == 0 {
		plan.TotalDistanceM = endpointDistance(plan.Origin, plan.Destination)
	}

	if plan.TotalDurationS == 0 {
		if plan.TotalDistanceM > 0 && speedKmh > 0 {
			plan.TotalDurationS = EstimateDurationS(plan.TotalDistanceM, speedKmh)
		} else {
			plan.TotalDurationS = stepDuration
		}
	}

	if len(plan.Alternatives) > 0 {
		alts := make([]RoutePlan, len(plan.Alternatives))
		for i := range plan.Alternatives {
			alts[i] = Normalize(plan.Alternatives[i], speedKmh)
		}
		plan.Alternatives = alts
	}

	return plan
}

func geometryLength(steps []RouteStep) float64 {
	var total float64
	for _, step := range steps {
		if step.Polyline == "" {
			continue
		}
		total += polyline.Length(polyline.Decode(step.Polyline))
	}
	return total
}

func endpointDistance(origin, destination ResolvedLocation) float64 {
	if origin.Coordinate == nil || destination.Coordinate == nil {
		return 0
	}
	return polyline.Distance(
		polyline.Coordinate{Lat: origin.Coordinate.Lat, Lon: origin.Coordinate.Lon},
		polyline.Coordinate{Lat: destination.Coordinate.Lat, Lon: destination.Coordinate.Lon},
	)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
