package routing

import (
	"fmt"
	"strings"
	"time"
)

// transitSummarySpeedKmh is only used to phrase an "about" duration for
// transit plans the provider returned without any timing.
const transitSummarySpeedKmh = 15.0

// SummaryOptions controls optional parts of a text summary.
type SummaryOptions struct {
	// Now enables an estimated arrival line when non-zero.
	Now time.Time

	// Location is the zone the arrival time is rendered in. Default: UTC.
	Location *time.Location
}

// TextSummary renders the plan as human-readable text.
func (p RoutePlan) TextSummary() string {
	return p.Summary(SummaryOptions{})
}

// Summary renders the plan as human-readable text with the given options.
func (p RoutePlan) Summary(opts SummaryOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Route plan (%s)\n", p.Mode)
	fmt.Fprintf(&b, "From: %s\n", p.Origin.Label())
	fmt.Fprintf(&b, "To: %s\n", p.Destination.Label())
	for i, wp := range p.Waypoints {
		fmt.Fprintf(&b, "Via %d: %s\n", i+1, wp.Label())
	}
	fmt.Fprintf(&b, "Distance: %s\n", FormatDistance(p.TotalDistanceM))
	fmt.Fprintf(&b, "Duration: %s\n", p.durationText())

	if !opts.Now.IsZero() && p.TotalDurationS > 0 {
		eta := ArrivalTime(opts.Now, p.TotalDurationS, opts.Location)
		fmt.Fprintf(&b, "ETA: %s\n", eta.Format("15:04"))
	}

	if p.MonetaryCost != nil && *p.MonetaryCost > 0 {
		label := "Taxi fare"
		if p.Mode == ModeTransit {
			label = "Transit fare"
		}
		fmt.Fprintf(&b, "%s: %.2f CNY\n", label, *p.MonetaryCost)
	}
	if p.Tolls != nil && *p.Tolls > 0 {
		fmt.Fprintf(&b, "Tolls: %.2f CNY\n", *p.Tolls)
	}
	if p.TrafficLights != nil && *p.TrafficLights > 0 {
		fmt.Fprintf(&b, "Traffic lights: %d\n", *p.TrafficLights)
	}
	if p.Restricted != nil {
		answer := "no"
		if *p.Restricted {
			answer = "yes"
		}
		fmt.Fprintf(&b, "Restricted roads: %s\n", answer)
	}

	if len(p.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for i, step := range p.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step.text())
		}
	}

	if len(p.Alternatives) > 0 {
		fmt.Fprintf(&b, "\n%d alternative route(s) available\n", len(p.Alternatives))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (p RoutePlan) durationText() string {
	if d := FormatDuration(p.TotalDurationS); d != "" {
		return d
	}
	speed := ReferenceSpeedKmh(p.Mode)
	if p.Mode == ModeTransit {
		speed = transitSummarySpeedKmh
	}
	if d := FormatDuration(EstimateDurationS(p.TotalDistanceM, speed)); d != "" {
		return "about " + d
	}
	return "unknown"
}

func (s RouteStep) text() string {
	desc := s.Instruction
	if road := strings.TrimSpace(s.RoadName); road != "" {
		desc = "along " + road + ": " + desc
	}
	if s.DistanceM > 0 {
		desc += fmt.Sprintf(" (%.0f m", s.DistanceM)
		if d := FormatDuration(s.DurationS); d != "" {
			desc += ", about " + d
		}
		desc += ")"
	}
	return desc
}

// FormatDistance renders meters as kilometers with one decimal.
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders seconds in the coarsest non-zero unit: "1h 5min",
// "2h", "12min" or "40s". Durations under one second render as "".
func FormatDuration(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dmin", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dmin", minutes)
	case secs > 0:
		return fmt.Sprintf("%ds", secs)
	default:
		return ""
	}
}

// ArrivalTime adds durationS to now and expresses the result in loc, or UTC
// when loc is nil.
func ArrivalTime(now time.Time, durationS float64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return now.Add(time.Duration(durationS * float64(time.Second))).In(loc)
}
