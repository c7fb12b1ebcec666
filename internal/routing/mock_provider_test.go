package routing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
)

// mockProvider is a scripted mapping provider for testing.
type mockProvider struct {
	geocodes   map[string]*ResolvedLocation
	geocodeErr error
	places     map[string][]Place
	placesErr  error
	districts  map[string]string

	directions func(DirectionsRequest) ([]RoutePlan, error)
	transit    func(TransitRequest) ([]RoutePlan, error)

	lookupCalls atomic.Int32

	mu               sync.Mutex
	directionsReqs   []DirectionsRequest
	transitRequests  []TransitRequest
	districtRequests []string
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) Geocode(_ context.Context, address, _ string) (*ResolvedLocation, error) {
	m.lookupCalls.Add(1)
	if m.geocodeErr != nil {
		return nil, m.geocodeErr
	}
	loc, ok := m.geocodes[address]
	if !ok {
		return nil, nil
	}
	out := *loc
	return &out, nil
}

func (m *mockProvider) SearchPlaces(_ context.Context, keywords, _ string, limit int) ([]Place, error) {
	m.lookupCalls.Add(1)
	if m.placesErr != nil {
		return nil, m.placesErr
	}
	places := m.places[keywords]
	if len(places) > limit {
		places = places[:limit]
	}
	return places, nil
}

func (m *mockProvider) LookupDistrict(_ context.Context, keywords string) (string, error) {
	m.mu.Lock()
	m.districtRequests = append(m.districtRequests, keywords)
	m.mu.Unlock()
	return m.districts[keywords], nil
}

func (m *mockProvider) Directions(_ context.Context, req DirectionsRequest) ([]RoutePlan, error) {
	m.mu.Lock()
	m.directionsReqs = append(m.directionsReqs, req)
	m.mu.Unlock()
	if m.directions == nil {
		return []RoutePlan{{TotalDistanceM: 1000, TotalDurationS: 120}}, nil
	}
	return m.directions(req)
}

func (m *mockProvider) Transit(_ context.Context, req TransitRequest) ([]RoutePlan, error) {
	m.mu.Lock()
	m.transitRequests = append(m.transitRequests, req)
	m.mu.Unlock()
	if m.transit == nil {
		return []RoutePlan{{TotalDistanceM: 5000, TotalDurationS: 1500}}, nil
	}
	return m.transit(req)
}

func (m *mockProvider) transitCalls() []TransitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransitRequest(nil), m.transitRequests...)
}

func rejected(code string) error {
	return &Error{Provider: "mock", Code: code, Message: strings.ToLower(code), Err: ErrProviderRejected}
}

func quotaRejected() error {
	return &Error{
		Provider: "mock",
		Code:     "CUQPS_HAS_EXCEEDED_THE_LIMIT",
		Message:  "qps limit",
		Err:      errors.Join(ErrProviderRejected, ErrRateLimitExceeded),
	}
}

func transportFailure() error {
	return &Error{Provider: "mock", Code: "REQUEST_FAILED", Message: "connection refused", Err: ErrTransportFailure}
}

// shanghai returns a resolvable location fixture.
func shanghai(name string, lon, lat float64) *ResolvedLocation {
	return &ResolvedLocation{
		Coordinate:       &Coordinate{Lon: lon, Lat: lat},
		FormattedAddress: "Shanghai " + name,
		City:             "Shanghai",
		AdminCode:        "310101",
		CityCode:         "021",
	}
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		geocodes: map[string]*ResolvedLocation{
			"People's Square": shanghai("People's Square", 121.4737, 31.2304),
			"The Bund":        shanghai("The Bund", 121.4903, 31.2400),
			"Yu Garden":       shanghai("Yu Garden", 121.4921, 31.2272),
			"Shanghai":        {Coordinate: &Coordinate{Lon: 121.4737, Lat: 31.2304}, CityCode: "021", AdminCode: "310000"},
		},
		places:    map[string][]Place{},
		districts: map[string]string{},
	}
}
