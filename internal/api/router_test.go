package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triproute/triproute/internal/api"
	"github.com/triproute/triproute/internal/api/models"
	"github.com/triproute/triproute/internal/provider/resilience"
	"github.com/triproute/triproute/internal/routing"
)

var shanghai = time.FixedZone("CST", 8*3600)

// stubProvider knows three places around the Bund and answers every
// directions query with fixed plans.
type stubProvider struct {
	directionsErr error
}

var knownPlaces = map[string]routing.ResolvedLocation{
	"外滩":   {FormattedAddress: "上海市黄浦区外滩", City: "上海市", AdminCode: "310101", Coordinate: &routing.Coordinate{Lon: 121.490317, Lat: 31.240018}},
	"豫园":   {FormattedAddress: "上海市黄浦区豫园", City: "上海市", AdminCode: "310101", Coordinate: &routing.Coordinate{Lon: 121.492156, Lat: 31.227282}},
	"人民广场": {FormattedAddress: "上海市黄浦区人民广场", City: "上海市", AdminCode: "310101", Coordinate: &routing.Coordinate{Lon: 121.475164, Lat: 31.228816}},
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Geocode(_ context.Context, address, _ string) (*routing.ResolvedLocation, error) {
	loc, ok := knownPlaces[address]
	if !ok {
		return nil, nil
	}
	loc.Query = address
	return &loc, nil
}

func (s *stubProvider) SearchPlaces(_ context.Context, keywords, _ string, limit int) ([]routing.Place, error) {
	if keywords != "咖啡" {
		return nil, nil
	}
	places := []routing.Place{
		{Name: "外滩咖啡", Address: "中山东一路1号", Coordinate: &routing.Coordinate{Lon: 121.49, Lat: 31.24}},
		{Name: "豫园咖啡", Address: "福佑路8号"},
	}
	return places[:min(limit, len(places))], nil
}

func (s *stubProvider) LookupDistrict(context.Context, string) (string, error) {
	return "", nil
}

func (s *stubProvider) Directions(_ context.Context, req routing.DirectionsRequest) ([]routing.RoutePlan, error) {
	if s.directionsErr != nil {
		return nil, s.directionsErr
	}
	switch req.Mode {
	case routing.ModeWalking:
		return []routing.RoutePlan{{TotalDistanceM: 1500, TotalDurationS: 1200}}, nil
	default:
		return []routing.RoutePlan{
			{TotalDistanceM: 2000, TotalDurationS: 600, Steps: []routing.RouteStep{
				{Instruction: "沿中山东一路向南行驶", RoadName: "中山东一路", DistanceM: 2000, DurationS: 600},
			}},
			{TotalDistanceM: 2600, TotalDurationS: 720},
			{TotalDistanceM: 3100, TotalDurationS: 900},
		}, nil
	}
}

func (s *stubProvider) Transit(context.Context, routing.TransitRequest) ([]routing.RoutePlan, error) {
	fare := 2.0
	return []routing.RoutePlan{{TotalDistanceM: 1800, TotalDurationS: 900, MonetaryCost: &fare}}, nil
}

func newTestRouterWith(provider routing.Provider, registry *resilience.Registry, rateLimit int) http.Handler {
	logger := zerolog.New(io.Discard)
	return api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2024-01-01T00:00:00Z",
		Logger:    logger,
		Service: routing.NewService(routing.ServiceConfig{
			Provider: provider,
			Location: shanghai,
			Logger:   logger,
		}),
		Registry:           registry,
		RateLimitPerMinute: rateLimit,
	})
}

func newTestRouter() http.Handler {
	return newTestRouterWith(&stubProvider{}, nil, 0)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	return problem
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatusReportsProviders(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("amap")
	cfg.Registry = registry
	resilience.NewClient(cfg)
	registry.RecordFailure("amap", assert.AnError)

	router := newTestRouterWith(&stubProvider{}, registry, 0)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	provider := status.Providers[0]
	assert.Equal(t, "amap", provider.Provider)
	assert.Equal(t, "closed", provider.CircuitState)
	assert.NotNil(t, provider.LastFailureAt)
	require.NotNil(t, provider.Message)
	assert.Equal(t, assert.AnError.Error(), *provider.Message)
}

func TestRouter_PlanRoute(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:plan", models.PlanRouteRequest{
		Origin:       "外滩",
		Destination:  "豫园",
		Mode:         "driving",
		Alternatives: 2,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.PlanRouteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "stub", resp.Provider)
	assert.Equal(t, "driving", resp.Plan.Mode)
	assert.Equal(t, "上海市黄浦区外滩", resp.Plan.Origin.Label)
	require.NotNil(t, resp.Plan.Origin.Point)
	assert.InDelta(t, 121.490317, resp.Plan.Origin.Point.Lon, 1e-6)
	assert.Equal(t, 2000.0, resp.Plan.DistanceMeters)
	assert.Equal(t, 600.0, resp.Plan.DurationSeconds)
	require.Len(t, resp.Plan.Steps, 1)
	assert.Equal(t, "中山东一路", resp.Plan.Steps[0].Road)
	assert.Len(t, resp.Plan.Alternatives, 1)
	require.NotNil(t, resp.Plan.ArrivalAt)
	_, offset := resp.Plan.ArrivalAt.Time().Zone()
	assert.Equal(t, 8*3600, offset)
	assert.Contains(t, resp.Summary, "Route plan (driving)")
}

func TestRouter_PlanRoute_ValidationError(t *testing.T) {
	router := newTestRouter()
	strategy := 9

	w := postJSON(t, router, "/v1/routes:plan", models.PlanRouteRequest{
		Destination: "豫园",
		Mode:        "hovercraft",
		Strategy:    &strategy,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.NotEmpty(t, problem.TraceID)

	fields := make([]string, 0, len(problem.Errors))
	for _, fe := range problem.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"origin", "mode", "strategy"}, fields)
}

func TestRouter_PlanRoute_InvalidJSON(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:plan", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid JSON body", decodeProblem(t, w).Detail)
}

func TestRouter_PlanRoute_UnresolvedLocation(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:plan", models.PlanRouteRequest{
		Origin:      "不存在的地方",
		Destination: "豫园",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeLocationUnresolved, problem.Type)
	assert.Equal(t, "location_unresolved", problem.FailureKind)
	assert.Contains(t, problem.Detail, "不存在的地方")
}

func TestRouter_PlanRoute_ProviderRejected(t *testing.T) {
	router := newTestRouterWith(&stubProvider{directionsErr: &routing.Error{
		Provider: "stub",
		Code:     "INVALID_PARAMS",
		Message:  "INVALID_PARAMS (infocode 20000)",
		Err:      routing.ErrProviderRejected,
	}}, nil, 0)

	w := postJSON(t, router, "/v1/routes:plan", models.PlanRouteRequest{
		Origin:      "外滩",
		Destination: "豫园",
		Mode:        "walking",
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, "provider_rejected", problem.FailureKind)
	assert.Contains(t, problem.Detail, "INVALID_PARAMS")
}

func TestRouter_PlanChain_ReportsFailedLeg(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:chain", models.PlanChainRequest{
		Stops: []string{"外滩", "豫园", "不存在的地方"},
		Mode:  "walking",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.PlanChainResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Legs, 2)
	assert.Equal(t, 1, resp.FailedLegs)
	require.NotNil(t, resp.Legs[0].Plan)
	assert.Nil(t, resp.Legs[0].Failure)
	assert.Nil(t, resp.Legs[1].Plan)
	require.NotNil(t, resp.Legs[1].Failure)
	assert.Equal(t, "location_unresolved", resp.Legs[1].Failure.Kind)
	assert.Equal(t, 1500.0, resp.TotalDistanceMeters)
	assert.Equal(t, 1200.0, resp.TotalDurationSeconds)
	assert.NotEmpty(t, resp.Summary)
}

func TestRouter_PlanChain_TooFewStops(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:chain", models.PlanChainRequest{Stops: []string{"外滩"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "stops", problem.Errors[0].Field)
}

func TestRouter_Recommend(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:recommend", models.RecommendRequest{
		Origin:      "外滩",
		Destination: "人民广场",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "driving", resp.Best.Method)
	require.Len(t, resp.Options, 3)
	assert.Equal(t, []string{"driving", "transit", "walking"},
		[]string{resp.Options[0].Method, resp.Options[1].Method, resp.Options[2].Method})
	assert.Equal(t, 2.0, resp.Options[1].Cost)
	assert.Zero(t, resp.Options[2].Cost)
	assert.NotNil(t, resp.Best.FuelCost)
	assert.Empty(t, resp.Unavailable)
	assert.Contains(t, resp.Summary, "Recommended: driving")
}

func TestRouter_SearchPlaces(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/places:search?q=%E5%92%96%E5%95%A1&limit=1", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.PlaceSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	assert.Nil(t, resp.Geocoded)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "外滩咖啡", resp.Places[0].Name)
}

func TestRouter_SearchPlaces_Geocoded(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/places:search?q=%E5%A4%96%E6%BB%A9", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.PlaceSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	require.NotNil(t, resp.Geocoded)
	assert.Equal(t, "310101", resp.Geocoded.AdminCode)
	assert.Empty(t, resp.Places)
}

func TestRouter_SearchPlaces_Validation(t *testing.T) {
	router := newTestRouter()

	for _, target := range []string{"/v1/places:search", "/v1/places:search?q=%E5%92%96%E5%95%A1&limit=many"} {
		req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestRouter_PlanningRateLimit(t *testing.T) {
	router := newTestRouterWith(&stubProvider{}, nil, 1)
	body := models.PlanRouteRequest{Origin: "外滩", Destination: "豫园", Mode: "walking"}

	assert.Equal(t, http.StatusOK, postJSON(t, router, "/v1/routes:plan", body).Code)

	w := postJSON(t, router, "/v1/routes:plan", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
