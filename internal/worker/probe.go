package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/triproute/triproute/internal/routing"
)

// ProbeJob plans the configured probe trips against the live provider. Every
// call flows through the provider client, so results also land in the
// resilience registry the ops endpoints report from.
type ProbeJob struct {
	config  ProbeConfig
	service *routing.Service
	logger  zerolog.Logger

	metrics *ProbeMetrics
}

// ProbeMetrics tracks probe job statistics.
type ProbeMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	SuccessfulTrips int64
	FailedTrips     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// ProbeJobConfig holds configuration for creating a ProbeJob.
type ProbeJobConfig struct {
	Config  ProbeConfig
	Service *routing.Service
	Logger  zerolog.Logger
}

// NewProbeJob creates a new probe job.
func NewProbeJob(cfg ProbeJobConfig) *ProbeJob {
	return &ProbeJob{
		config:  cfg.Config.withDefaults(),
		service: cfg.Service,
		logger:  cfg.Logger.With().Str("job", JobProviderProbe).Logger(),
		metrics: &ProbeMetrics{},
	}
}

// ProbeResult contains the result of one probe run.
type ProbeResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalTrips int
	Successful int
	Failed     int
	Errors     []ProbeError
}

// Healthy reports whether at least as many trips succeeded as failed.
func (r *ProbeResult) Healthy() bool {
	return r.Failed <= r.Successful
}

// ProbeError records one failed probe trip.
type ProbeError struct {
	Trip  string
	Kind  routing.FailureKind
	Error string
}

// Run plans every probe trip and reports how many succeeded.
func (j *ProbeJob) Run(ctx context.Context) *ProbeResult {
	startTime := time.Now()
	trips := j.config.Trips
	result := &ProbeResult{
		StartTime:  startTime,
		TotalTrips: len(trips),
	}

	j.logger.Info().
		Int("trips", len(trips)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting provider probe")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(j.config.Concurrency)
	for _, trip := range trips {
		g.Go(func() error {
			err := j.probe(ctx, trip)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, ProbeError{
					Trip:  trip.Name,
					Kind:  routing.Classify(err),
					Error: routing.Describe(err),
				})
				return nil
			}
			result.Successful++
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probes never return errors

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("provider probe completed")

	return result
}

func (j *ProbeJob) probe(ctx context.Context, trip ProbeTrip) error {
	tripCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.service.Plan(tripCtx, trip.Mode, routing.PlanRequest{
		Origin:      trip.Origin,
		Destination: trip.Destination,
		City:        trip.City,
	}, 1)
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("trip", trip.Name).
			Str("mode", string(trip.Mode)).
			Msg("probe trip failed")
	}
	return err
}

func (j *ProbeJob) updateMetrics(result *ProbeResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulTrips += int64(result.Successful)
	j.metrics.FailedTrips += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *ProbeJob) GetMetrics() ProbeMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return ProbeMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulTrips: j.metrics.SuccessfulTrips,
		FailedTrips:     j.metrics.FailedTrips,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ProbeJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":        m.TotalRuns,
		"successful_trips":  m.SuccessfulTrips,
		"failed_trips":      m.FailedTrips,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
