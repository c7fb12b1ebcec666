package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropCityScope(t *testing.T) {
	scoped := TransitQuery{Request: TransitRequest{City1: "021", City2: "021"}}

	q, ok := DropCityScope(scoped, rejected(infoMissingRequiredParams))
	require.True(t, ok)
	assert.False(t, q.Request.CityScoped())

	_, ok = DropCityScope(scoped, rejected("INVALID_PARAMS"))
	assert.False(t, ok, "only missing-parameter rejections drop the scope")

	_, ok = DropCityScope(TransitQuery{}, rejected(infoMissingRequiredParams))
	assert.False(t, ok, "nothing to drop on an unscoped query")

	_, ok = DropCityScope(scoped, transportFailure())
	assert.False(t, ok)
}

func TestScopeByDistrict(t *testing.T) {
	unscoped := TransitQuery{
		Origin:      ResolvedLocation{AdminCode: "310101"},
		Destination: ResolvedLocation{AdminCode: "310115"},
	}

	q, ok := ScopeByDistrict(unscoped, rejected("INVALID_PARAMS"))
	require.True(t, ok)
	assert.True(t, q.DistrictScoped)
	assert.Equal(t, "310101", q.Request.AD1)
	assert.Equal(t, "310115", q.Request.AD2)

	_, ok = ScopeByDistrict(q, rejected("INVALID_PARAMS"))
	assert.False(t, ok, "district scoping is applied once")

	_, ok = ScopeByDistrict(TransitQuery{Request: TransitRequest{City1: "021"}}, rejected("INVALID_PARAMS"))
	assert.False(t, ok, "city-scoped queries are not district scoped")

	_, ok = ScopeByDistrict(unscoped, transportFailure())
	assert.False(t, ok)

	_, ok = ScopeByDistrict(unscoped, quotaRejected())
	assert.False(t, ok, "quota rejections are not retried")
}

func TestRunScopeLadder(t *testing.T) {
	initial := TransitQuery{Request: TransitRequest{City1: "021", City2: "021"}}

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		plans, err := RunScopeLadder(context.Background(), initial, DefaultScopeLadder,
			func(context.Context, TransitQuery) ([]RoutePlan, error) {
				calls++
				return []RoutePlan{{}}, nil
			})
		require.NoError(t, err)
		assert.Len(t, plans, 1)
		assert.Equal(t, 1, calls)
	})

	t.Run("walks the whole ladder", func(t *testing.T) {
		var seen []TransitQuery
		_, err := RunScopeLadder(context.Background(), initial, DefaultScopeLadder,
			func(_ context.Context, q TransitQuery) ([]RoutePlan, error) {
				seen = append(seen, q)
				return nil, rejected(infoMissingRequiredParams)
			})
		assert.ErrorIs(t, err, ErrProviderRejected)
		require.Len(t, seen, 3)
		assert.True(t, seen[0].Request.CityScoped())
		assert.False(t, seen[1].Request.CityScoped())
		assert.False(t, seen[1].DistrictScoped)
		assert.True(t, seen[2].DistrictScoped)
	})

	t.Run("transport failures are not retried", func(t *testing.T) {
		calls := 0
		_, err := RunScopeLadder(context.Background(), initial, DefaultScopeLadder,
			func(context.Context, TransitQuery) ([]RoutePlan, error) {
				calls++
				return nil, transportFailure()
			})
		assert.ErrorIs(t, err, ErrTransportFailure)
		assert.Equal(t, 1, calls)
	})

	t.Run("quota rejection is not retried", func(t *testing.T) {
		calls := 0
		_, err := RunScopeLadder(context.Background(), TransitQuery{}, DefaultScopeLadder,
			func(context.Context, TransitQuery) ([]RoutePlan, error) {
				calls++
				return nil, quotaRejected()
			})
		assert.ErrorIs(t, err, ErrRateLimitExceeded)
		assert.Equal(t, FailureProviderRejected, Classify(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("inapplicable rejection gives up", func(t *testing.T) {
		calls := 0
		_, err := RunScopeLadder(context.Background(), initial, DefaultScopeLadder,
			func(context.Context, TransitQuery) ([]RoutePlan, error) {
				calls++
				return nil, rejected("INVALID_USER_KEY")
			})
		assert.Equal(t, "INVALID_USER_KEY", rejectionCode(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("custom ladder", func(t *testing.T) {
		giveUp := func(q TransitQuery, _ error) (TransitQuery, bool) { return q, false }
		calls := 0
		_, err := RunScopeLadder(context.Background(), initial, []ScopeStrategy{giveUp},
			func(context.Context, TransitQuery) ([]RoutePlan, error) {
				calls++
				return nil, rejected(infoMissingRequiredParams)
			})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestTransitPlanner_RetriesWithoutCityScope(t *testing.T) {
	provider := newMockProvider()
	provider.transit = func(req TransitRequest) ([]RoutePlan, error) {
		if req.CityScoped() {
			return nil, rejected(infoMissingRequiredParams)
		}
		return []RoutePlan{{TotalDistanceM: 6100, TotalDurationS: 1980, MonetaryCost: ptr(3.0)}}, nil
	}
	planner := NewTransitPlanner(testPlannerConfig(provider))

	plans, err := planner.Plan(context.Background(), PlanRequest{
		Origin:      "People's Square",
		Destination: "Yu Garden",
		City:        "Shanghai",
	})

	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, 1980.0, plans[0].TotalDurationS)
	assert.Equal(t, 3.0, *plans[0].MonetaryCost)

	calls := provider.transitCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "021", calls[0].City1)
	assert.Equal(t, "021", calls[0].City2)
	assert.Empty(t, calls[1].City1)
	assert.Empty(t, calls[1].AD1)
}

func TestTransitPlanner_DistrictFallback(t *testing.T) {
	provider := newMockProvider()
	provider.geocodes["Hangzhou West Lake"] = &ResolvedLocation{
		Coordinate: &Coordinate{Lon: 120.1485, Lat: 30.2425},
		City:       "Hangzhou",
	}
	provider.districts["Hangzhou"] = "330100"
	provider.transit = func(req TransitRequest) ([]RoutePlan, error) {
		if req.AD1 == "" {
			return nil, rejected(infoMissingRequiredParams)
		}
		return []RoutePlan{{TotalDistanceM: 170000, TotalDurationS: 7200}}, nil
	}
	planner := NewTransitPlanner(testPlannerConfig(provider))

	plans, err := planner.Plan(context.Background(), PlanRequest{
		Origin:      "Hangzhou West Lake",
		Destination: "People's Square",
	})

	require.NoError(t, err)
	assert.Len(t, plans, 1)

	calls := provider.transitCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "330100", calls[0].City1, "origin city resolved through district lookup")
	assert.Empty(t, calls[1].City1)
	assert.Equal(t, "330100", calls[2].AD1, "blank admin code filled by district lookup")
	assert.Equal(t, "310101", calls[2].AD2)
}

func TestTransitPlanner_SegmentSumsReplaceZeroTotals(t *testing.T) {
	provider := newMockProvider()
	provider.transit = func(TransitRequest) ([]RoutePlan, error) {
		return []RoutePlan{{
			Steps: []RouteStep{
				{Instruction: "walk 300 m", DistanceM: 300, DurationS: 250},
				{Instruction: "Take Metro Line 2", DistanceM: 5200, DurationS: 720},
				{Instruction: "Take Bus 64", DistanceM: 1800, DurationS: 480},
			},
		}}, nil
	}
	planner := NewTransitPlanner(testPlannerConfig(provider))

	plans, err := planner.Plan(context.Background(), PlanRequest{Origin: "People's Square", Destination: "Yu Garden"})

	require.NoError(t, err)
	assert.Equal(t, 1450.0, plans[0].TotalDurationS)
	assert.Equal(t, 7300.0, plans[0].TotalDistanceM)
}

func TestTransitPlanner_KeepsFirstThree(t *testing.T) {
	provider := newMockProvider()
	provider.transit = func(TransitRequest) ([]RoutePlan, error) {
		plans := make([]RoutePlan, 5)
		for i := range plans {
			plans[i] = RoutePlan{TotalDistanceM: 1000, TotalDurationS: float64(600 + i)}
		}
		return plans, nil
	}
	planner := NewTransitPlanner(testPlannerConfig(provider))

	plans, err := planner.Plan(context.Background(), PlanRequest{Origin: "People's Square", Destination: "Yu Garden"})

	require.NoError(t, err)
	require.Len(t, plans, MaxTransitCandidates)
	assert.Equal(t, 600.0, plans[0].TotalDurationS)
	assert.Equal(t, 602.0, plans[2].TotalDurationS)
}

func TestTransitPlanner_TransportFailureNotRetried(t *testing.T) {
	provider := newMockProvider()
	provider.transit = func(TransitRequest) ([]RoutePlan, error) {
		return nil, transportFailure()
	}
	planner := NewTransitPlanner(testPlannerConfig(provider))

	_, err := planner.Plan(context.Background(), PlanRequest{
		Origin:      "People's Square",
		Destination: "Yu Garden",
		City:        "Shanghai",
	})

	assert.True(t, errors.Is(err, ErrTransportFailure))
	assert.Len(t, provider.transitCalls(), 1)
}
