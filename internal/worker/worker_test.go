package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triproute/triproute/internal/config"
	"github.com/triproute/triproute/internal/routing"
	"github.com/triproute/triproute/internal/worker"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fail  map[routing.Mode]error
}

var knownPlaces = map[string]routing.Coordinate{
	"外滩":    {Lon: 121.490, Lat: 31.240},
	"豫园":    {Lon: 121.492, Lat: 31.227},
	"人民广场":  {Lon: 121.475, Lat: 31.232},
	"陆家嘴":   {Lon: 121.502, Lat: 31.240},
	"上海虹桥站": {Lon: 121.320, Lat: 31.194},
	"静安寺":   {Lon: 121.445, Lat: 31.224},
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Geocode(_ context.Context, address, _ string) (*routing.ResolvedLocation, error) {
	c, ok := knownPlaces[address]
	if !ok {
		return nil, nil
	}
	return &routing.ResolvedLocation{Query: address, FormattedAddress: "上海市" + address, City: "上海市", Coordinate: &c}, nil
}

func (f *fakeProvider) SearchPlaces(context.Context, string, string, int) ([]routing.Place, error) {
	return nil, nil
}

func (f *fakeProvider) LookupDistrict(context.Context, string) (string, error) {
	return "021", nil
}

func (f *fakeProvider) Directions(_ context.Context, req routing.DirectionsRequest) ([]routing.RoutePlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[req.Mode]; err != nil {
		return nil, err
	}
	return []routing.RoutePlan{{TotalDistanceM: 2500, TotalDurationS: 600}}, nil
}

func (f *fakeProvider) Transit(context.Context, routing.TransitRequest) ([]routing.RoutePlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[routing.ModeTransit]; err != nil {
		return nil, err
	}
	return []routing.RoutePlan{{TotalDistanceM: 3000, TotalDurationS: 1200}}, nil
}

func newService(provider *fakeProvider) *routing.Service {
	return routing.NewService(routing.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})
}

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	messages [][]byte
	jobIDs   []string
	attempts int
}

func (p *fakePublisher) Publish(_ context.Context, jobID string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failures > 0 {
		p.failures--
		return errors.New("publish unavailable")
	}
	p.messages = append(p.messages, data)
	p.jobIDs = append(p.jobIDs, jobID)
	return nil
}

func TestDefaultProbeConfig(t *testing.T) {
	cfg := worker.DefaultProbeConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	modes := map[routing.Mode]bool{}
	for _, trip := range cfg.Trips {
		assert.NotEmpty(t, trip.Origin)
		assert.NotEmpty(t, trip.Destination)
		modes[trip.Mode] = true
	}
	assert.True(t, modes[routing.ModeDriving])
	assert.True(t, modes[routing.ModeWalking])
	assert.True(t, modes[routing.ModeTransit])
}

func TestProbeTripsFromConfig(t *testing.T) {
	trips := worker.ProbeTripsFromConfig([]config.ProbeTrip{
		{Origin: "外滩", Destination: "豫园", Mode: "walking", City: "上海市"},
		{Origin: "外滩", Destination: "豫园", Mode: "hovercraft"},
	})

	require.Len(t, trips, 1)
	assert.Equal(t, routing.ModeWalking, trips[0].Mode)
	assert.Equal(t, "configured-1", trips[0].Name)
}

func TestProbeJob_Run(t *testing.T) {
	provider := &fakeProvider{}
	job := worker.NewProbeJob(worker.ProbeJobConfig{
		Service: newService(provider),
		Logger:  zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, len(worker.DefaultProbeTrips()), result.TotalTrips)
	assert.Equal(t, result.TotalTrips, result.Successful)
	assert.Zero(t, result.Failed)
	assert.True(t, result.Healthy())
	assert.True(t, result.EndTime.After(result.StartTime) || result.EndTime.Equal(result.StartTime))

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(result.Successful), metrics.SuccessfulTrips)
}

func TestProbeJob_Run_RecordsFailures(t *testing.T) {
	provider := &fakeProvider{fail: map[routing.Mode]error{
		routing.ModeTransit: &routing.Error{Provider: "fake", Code: "10003", Message: "daily quota exceeded", Err: routing.ErrProviderRejected},
	}}
	job := worker.NewProbeJob(worker.ProbeJobConfig{
		Config: worker.ProbeConfig{Trips: []worker.ProbeTrip{
			{Name: "walk", Origin: "外滩", Destination: "豫园", Mode: routing.ModeWalking},
			{Name: "transit", Origin: "人民广场", Destination: "陆家嘴", Mode: routing.ModeTransit},
			{Name: "nowhere", Origin: "火星基地", Destination: "豫园", Mode: routing.ModeDriving},
		}},
		Service: newService(provider),
		Logger:  zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.False(t, result.Healthy())

	kinds := map[string]routing.FailureKind{}
	for _, e := range result.Errors {
		kinds[e.Trip] = e.Kind
	}
	assert.Equal(t, routing.FailureProviderRejected, kinds["transit"])
	assert.Equal(t, routing.FailureLocationUnresolved, kinds["nowhere"])

	snapshot := job.MetricsSnapshot()
	assert.Equal(t, int64(2), snapshot["failed_trips"])
}

func TestProcessor_PlanChain_Publishes(t *testing.T) {
	provider := &fakeProvider{}
	publisher := &fakePublisher{}
	proc := worker.NewProcessor(worker.ProcessorConfig{
		Service:   newService(provider),
		Publisher: publisher,
		Logger:    zerolog.Nop(),
	})

	err := proc.Process(context.Background(), []byte(`{"job_type":"plan_chain","job_id":"job-1","stops":["外滩","豫园","火星基地"],"mode":"walking"}`))

	require.NoError(t, err)
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "job-1", publisher.jobIDs[0])

	var out worker.ChainResultMessage
	require.NoError(t, json.Unmarshal(publisher.messages[0], &out))
	assert.Equal(t, "job-1", out.JobID)
	assert.Equal(t, "walking", out.Mode)
	require.Len(t, out.Legs, 2)
	assert.Equal(t, 1, out.FailedLegs)
	assert.Equal(t, 2500.0, out.Legs[0].DistanceM)
	assert.Equal(t, "location_unresolved", out.Legs[1].Failure)
	assert.Equal(t, 2500.0, out.TotalDistanceM)
	assert.Contains(t, out.Summary, "excluding 1 failed leg(s)")
}

func TestProcessor_PlanChain_AssignsJobID(t *testing.T) {
	publisher := &fakePublisher{}
	proc := worker.NewProcessor(worker.ProcessorConfig{
		Service:   newService(&fakeProvider{}),
		Publisher: publisher,
		Logger:    zerolog.Nop(),
	})

	err := proc.Process(context.Background(), []byte(`{"job_type":"plan_chain","stops":["外滩","豫园"],"mode":"driving"}`))

	require.NoError(t, err)
	require.Len(t, publisher.jobIDs, 1)
	assert.NotEmpty(t, publisher.jobIDs[0])
}

func TestProcessor_PlanChain_RetriesPublish(t *testing.T) {
	publisher := &fakePublisher{failures: 2}
	proc := worker.NewProcessor(worker.ProcessorConfig{
		Service:   newService(&fakeProvider{}),
		Publisher: publisher,
		Logger:    zerolog.Nop(),
	})

	err := proc.Process(context.Background(), []byte(`{"job_type":"plan_chain","job_id":"j","stops":["外滩","豫园"],"mode":"walking"}`))

	require.NoError(t, err)
	assert.Equal(t, 3, publisher.attempts)
	assert.Len(t, publisher.messages, 1)
}

func TestProcessor_PlanChain_PublishExhausted(t *testing.T) {
	publisher := &fakePublisher{failures: 10}
	proc := worker.NewProcessor(worker.ProcessorConfig{
		Service:        newService(&fakeProvider{}),
		Publisher:      publisher,
		PublishRetries: 1,
		Logger:         zerolog.Nop(),
	})

	err := proc.Process(context.Background(), []byte(`{"job_type":"plan_chain","job_id":"j","stops":["外滩","豫园"],"mode":"walking"}`))

	require.Error(t, err)
	assert.False(t, errors.Is(err, worker.ErrPermanent))
	assert.Equal(t, 2, publisher.attempts)
}

func TestProcessor_PermanentFailures(t *testing.T) {
	proc := worker.NewProcessor(worker.ProcessorConfig{
		Service: newService(&fakeProvider{}),
		Logger:  zerolog.Nop(),
	})

	tests := []struct {
		name string
		data string
	}{
		{name: "malformed json", data: `{"job_type":`},
		{name: "unknown job type", data: `{"job_type":"teleport"}`},
		{name: "unknown mode", data: `{"job_type":"plan_chain","stops":["外滩","豫园"],"mode":"hovercraft"}`},
		{name: "too few stops", data: `{"job_type":"plan_chain","stops":["外滩"],"mode":"walking"}`},
		{name: "probe not configured", data: `{"job_type":"provider_probe"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := proc.Process(context.Background(), []byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, worker.ErrPermanent)
		})
	}
}

func TestProcessor_ProviderProbe(t *testing.T) {
	provider := &fakeProvider{}
	service := newService(provider)
	probe := worker.NewProbeJob(worker.ProbeJobConfig{Service: service, Logger: zerolog.Nop()})
	proc := worker.NewProcessor(worker.ProcessorConfig{Service: service, Probe: probe, Logger: zerolog.Nop()})

	err := proc.Process(context.Background(), []byte(`{"job_type":"provider_probe"}`))

	require.NoError(t, err)
	assert.Equal(t, int64(1), probe.GetMetrics().TotalRuns)
}

func TestProcessor_ProviderProbe_Unhealthy(t *testing.T) {
	transport := &routing.Error{Provider: "fake", Message: "connection refused", Err: routing.ErrTransportFailure}
	provider := &fakeProvider{fail: map[routing.Mode]error{
		routing.ModeDriving: transport,
		routing.ModeWalking: transport,
		routing.ModeCycling: transport,
		routing.ModeTransit: transport,
	}}
	service := newService(provider)
	probe := worker.NewProbeJob(worker.ProbeJobConfig{Service: service, Logger: zerolog.Nop()})
	proc := worker.NewProcessor(worker.ProcessorConfig{Service: service, Probe: probe, Logger: zerolog.Nop()})

	err := proc.Process(context.Background(), []byte(`{"job_type":"provider_probe"}`))

	require.Error(t, err)
	assert.NotErrorIs(t, err, worker.ErrPermanent)
	assert.Contains(t, err.Error(), "too many probe failures")
}
