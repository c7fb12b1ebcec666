package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlannerConfig(p Provider) PlannerConfig {
	return PlannerConfig{Provider: p, Logger: zerolog.Nop()}
}

func TestDrivingPlanner_EstimatesMissingDuration(t *testing.T) {
	provider := newMockProvider()
	provider.directions = func(DirectionsRequest) ([]RoutePlan, error) {
		return []RoutePlan{{TotalDistanceM: 5000}}, nil
	}
	planner := NewDrivingPlanner(testPlannerConfig(provider))

	plans, err := planner.Plan(context.Background(), PlanRequest{
		Origin:      "People's Square",
		Destination: "The Bund",
	})

	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, ModeDriving, plans[0].Mode)
	assert.InDelta(t, 600, plans[0].TotalDurationS, 1e-9)
	assert.Equal(t, "Shanghai People's Square", plans[0].Origin.Label())
	assert.Equal(t, "Shanghai The Bund", plans[0].Destination.Label())
}

func TestDrivingPlanner_PassesWaypointsAndStrategy(t *testing.T) {
	provider := newMockProvider()
	planner := NewDrivingPlanner(testPlannerConfig(provider))
	strategy := StrategyNoHighway

	plans, err := planner.Plan(context.Background(), PlanRequest{
		Origin:      "People's Square",
		Destination: "The Bund",
		Waypoints:   []string{"Yu Garden", "Atlantis", "121.48,31.23"},
		Strategy:    &strategy,
	})
	require.NoError(t, err)

	require.Len(t, provider.directionsReqs, 1)
	req := provider.directionsReqs[0]
	assert.Equal(t, ModeDriving, req.Mode)
	require.NotNil(t, req.Strategy)
	assert.Equal(t, StrategyNoHighway, *req.Strategy)
	assert.Equal(t, []Coordinate{{Lon: 121.4921, Lat: 31.2272}, {Lon: 121.48, Lat: 31.23}}, req.Waypoints,
		"unresolved waypoints are skipped, order is kept")
	assert.Len(t, plans[0].Waypoints, 2)
}

func TestPlanner_LocationUnresolved(t *testing.T) {
	provider := newMockProvider()
	planner := NewDrivingPlanner(testPlannerConfig(provider))

	_, err := planner.Plan(context.Background(), PlanRequest{Origin: "Atlantis", Destination: "The Bund"})
	var locErr *LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, SideOrigin, locErr.Side)
	assert.Equal(t, "Atlantis", locErr.Query)

	_, err = planner.Plan(context.Background(), PlanRequest{Origin: "The Bund", Destination: "El Dorado"})
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, SideDestination, locErr.Side)
	assert.ErrorIs(t, err, ErrLocationUnresolved)

	assert.Empty(t, provider.directionsReqs, "provider must not be queried without both endpoints")
}

func TestPlanner_ProviderErrorsSurface(t *testing.T) {
	provider := newMockProvider()
	provider.directions = func(DirectionsRequest) ([]RoutePlan, error) {
		return nil, rejected("INVALID_USER_KEY")
	}
	planner := NewActivePlanner(ModeWalking, testPlannerConfig(provider))

	_, err := planner.Plan(context.Background(), PlanRequest{Origin: "People's Square", Destination: "The Bund"})
	assert.Equal(t, FailureProviderRejected, Classify(err))

	provider.directions = func(DirectionsRequest) ([]RoutePlan, error) {
		return nil, transportFailure()
	}
	_, err = planner.Plan(context.Background(), PlanRequest{Origin: "People's Square", Destination: "The Bund"})
	assert.Equal(t, FailureTransport, Classify(err))
	assert.Len(t, provider.directionsReqs, 2, "non-transit calls fail once")
}

func TestPlanner_NoRoute(t *testing.T) {
	provider := newMockProvider()
	provider.directions = func(DirectionsRequest) ([]RoutePlan, error) {
		return nil, nil
	}
	planner := NewActivePlanner(ModeCycling, testPlannerConfig(provider))

	_, err := planner.Plan(context.Background(), PlanRequest{Origin: "People's Square", Destination: "The Bund"})
	assert.ErrorIs(t, err, ErrNoRouteFound)
}

func TestActivePlanner_ReferenceSpeeds(t *testing.T) {
	tests := []struct {
		mode     Mode
		wantMode Mode
		wantS    float64
	}{
		{mode: ModeWalking, wantMode: ModeWalking, wantS: 720},
		{mode: ModeCycling, wantMode: ModeCycling, wantS: 240},
		{mode: ModeElectroBike, wantMode: ModeCycling, wantS: 240},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			provider := newMockProvider()
			provider.directions = func(DirectionsRequest) ([]RoutePlan, error) {
				return []RoutePlan{{TotalDistanceM: 1000}}, nil
			}
			planner := NewActivePlanner(tt.mode, testPlannerConfig(provider))

			plans, err := planner.Plan(context.Background(), PlanRequest{
				Origin:      "People's Square",
				Destination: "The Bund",
				Waypoints:   []string{"Yu Garden"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, planner.Mode())
			assert.Equal(t, tt.wantMode, plans[0].Mode)
			assert.InDelta(t, tt.wantS, plans[0].TotalDurationS, 1e-9)
			assert.Empty(t, provider.directionsReqs[0].Waypoints)
			assert.Equal(t, tt.wantMode, provider.directionsReqs[0].Mode)
		})
	}
}

func TestNewPlanner(t *testing.T) {
	provider := newMockProvider()

	for _, mode := range []Mode{ModeDriving, ModeWalking, ModeCycling, ModeElectroBike, ModeTransit} {
		p, err := NewPlanner(mode, testPlannerConfig(provider))
		require.NoError(t, err)
		assert.NotNil(t, p)
	}

	_, err := NewPlanner(Mode("hovercraft"), testPlannerConfig(provider))
	assert.True(t, errors.Is(err, ErrUnsupportedMode))
}

func TestPlannerSet_For(t *testing.T) {
	set := NewPlannerSet(testPlannerConfig(newMockProvider()))

	p, err := set.For(ModeElectroBike)
	require.NoError(t, err)
	assert.Equal(t, ModeCycling, p.Mode())

	_, err = set.For(Mode("rocket"))
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}
