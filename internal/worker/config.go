// Package worker provides background trip jobs for TripRoute.
package worker

import (
	"fmt"
	"time"

	"github.com/triproute/triproute/internal/config"
	"github.com/triproute/triproute/internal/routing"
)

// ProbeTrip is a known-good trip planned to check that the provider answers.
type ProbeTrip struct {
	Name        string
	Origin      string
	Destination string
	Mode        routing.Mode
	City        string
}

// ProbeConfig holds configuration for the provider probe job.
type ProbeConfig struct {
	// Trips are the probe trips. If empty, uses DefaultProbeTrips.
	Trips []ProbeTrip

	// Concurrency is the number of trips planned at once.
	// Default: 3
	Concurrency int

	// Timeout bounds each trip.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultProbeConfig returns the default probe configuration.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Trips:       DefaultProbeTrips(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultProbeTrips covers each provider endpoint with one short trip in
// central Shanghai.
func DefaultProbeTrips() []ProbeTrip {
	return []ProbeTrip{
		{Name: "bund-walk", Origin: "外滩", Destination: "豫园", Mode: routing.ModeWalking, City: "上海市"},
		{Name: "bund-cycle", Origin: "外滩", Destination: "人民广场", Mode: routing.ModeCycling, City: "上海市"},
		{Name: "hongqiao-drive", Origin: "上海虹桥站", Destination: "静安寺", Mode: routing.ModeDriving, City: "上海市"},
		{Name: "square-transit", Origin: "人民广场", Destination: "陆家嘴", Mode: routing.ModeTransit, City: "上海市"},
	}
}

// withDefaults fills zero fields.
func (c ProbeConfig) withDefaults() ProbeConfig {
	def := DefaultProbeConfig()
	if len(c.Trips) == 0 {
		c.Trips = def.Trips
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// ProbeTripsFromConfig converts configured probe trips. Modes are checked by
// config validation; a trip with an unknown mode is skipped.
func ProbeTripsFromConfig(trips []config.ProbeTrip) []ProbeTrip {
	out := make([]ProbeTrip, 0, len(trips))
	for i, t := range trips {
		mode, err := routing.ParseMode(t.Mode)
		if err != nil {
			continue
		}
		out = append(out, ProbeTrip{
			Name:        fmt.Sprintf("configured-%d", i+1),
			Origin:      t.Origin,
			Destination: t.Destination,
			Mode:        mode,
			City:        t.City,
		})
	}
	return out
}
