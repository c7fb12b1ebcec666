package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/routing"
)

// Job types accepted by the processor.
const (
	JobPlanChain     = "plan_chain"
	JobProviderProbe = "provider_probe"
)

// DefaultJobTimeout bounds a single job.
const DefaultJobTimeout = 2 * time.Minute

// ErrPermanent marks a job that will never succeed on redelivery.
var ErrPermanent = errors.New("permanent job failure")

// JobMessage is the payload of a job message.
type JobMessage struct {
	JobType string   `json:"job_type"`
	JobID   string   `json:"job_id,omitempty"`
	Stops   []string `json:"stops,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	City    string   `json:"city,omitempty"`
}

// LegOutcome is one leg of a published chain result.
type LegOutcome struct {
	Index     int     `json:"index"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	DistanceM float64 `json:"distance_m,omitempty"`
	DurationS float64 `json:"duration_s,omitempty"`
	Failure   string  `json:"failure,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// ChainResultMessage is published when a plan_chain job completes.
type ChainResultMessage struct {
	JobID          string       `json:"job_id"`
	Mode           string       `json:"mode"`
	Stops          []string     `json:"stops"`
	Legs           []LegOutcome `json:"legs"`
	FailedLegs     int          `json:"failed_legs"`
	TotalDistanceM float64      `json:"total_distance_m"`
	TotalDurationS float64      `json:"total_duration_s"`
	Summary        string       `json:"summary"`
	CompletedAt    time.Time    `json:"completed_at"`
}

// ResultPublisher delivers job results.
type ResultPublisher interface {
	Publish(ctx context.Context, jobID string, data []byte) error
}

// ProcessorConfig holds configuration for creating a Processor.
type ProcessorConfig struct {
	Service *routing.Service

	// Probe runs provider_probe jobs.
	Probe *ProbeJob

	// Publisher receives chain results. If nil, results are only logged.
	Publisher ResultPublisher

	// JobTimeout bounds each job.
	// Default: DefaultJobTimeout
	JobTimeout time.Duration

	// PublishRetries is the number of publish retries after the first attempt.
	// Default: 3
	PublishRetries uint64

	Logger zerolog.Logger
}

// Processor decodes job messages and runs them.
type Processor struct {
	service        *routing.Service
	probe          *ProbeJob
	publisher      ResultPublisher
	jobTimeout     time.Duration
	publishRetries uint64
	logger         zerolog.Logger
	now            func() time.Time
}

// NewProcessor creates a new job processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	retries := cfg.PublishRetries
	if retries == 0 {
		retries = 3
	}
	return &Processor{
		service:        cfg.Service,
		probe:          cfg.Probe,
		publisher:      cfg.Publisher,
		jobTimeout:     timeout,
		publishRetries: retries,
		logger:         cfg.Logger,
		now:            time.Now,
	}
}

// Process runs the job encoded in data. Errors wrapping ErrPermanent mean the
// message should be dropped; any other error means it may succeed later.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: parsing message: %v", ErrPermanent, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	switch msg.JobType {
	case JobPlanChain:
		return p.planChain(ctx, msg)
	case JobProviderProbe:
		return p.runProbe(ctx)
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrPermanent, msg.JobType)
	}
}

func (p *Processor) planChain(ctx context.Context, msg JobMessage) error {
	if msg.JobID == "" {
		msg.JobID = uuid.NewString()
	}
	logger := p.logger.With().Str("job_id", msg.JobID).Logger()

	mode, err := routing.ParseMode(msg.Mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	result, err := p.service.Chain(ctx, msg.Stops, mode, msg.City)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	out := chainResultMessage(msg.JobID, result, p.now())
	logger.Info().
		Int("legs", len(out.Legs)).
		Int("failed_legs", out.FailedLegs).
		Float64("total_distance_m", out.TotalDistanceM).
		Msg("chain planned")

	if p.publisher == nil {
		return nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("%w: encoding result: %v", ErrPermanent, err)
	}

	attempts := 0
	operation := func() error {
		attempts++
		return p.publisher.Publish(ctx, msg.JobID, data)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.publishRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("publishing chain result after %d attempts: %w", attempts, err)
	}
	return nil
}

func (p *Processor) runProbe(ctx context.Context) error {
	if p.probe == nil {
		return fmt.Errorf("%w: provider probe not configured", ErrPermanent)
	}
	result := p.probe.Run(ctx)
	if !result.Healthy() {
		return fmt.Errorf("too many probe failures: %d/%d", result.Failed, result.TotalTrips)
	}
	return nil
}

func chainResultMessage(jobID string, result *routing.ChainResult, now time.Time) ChainResultMessage {
	out := ChainResultMessage{
		JobID:          jobID,
		Mode:           string(result.Mode),
		Stops:          result.Stops,
		Legs:           make([]LegOutcome, 0, len(result.Legs)),
		FailedLegs:     len(result.Failed()),
		TotalDistanceM: result.TotalDistanceM,
		TotalDurationS: result.TotalDurationS,
		Summary:        result.TextSummary(),
		CompletedAt:    now.UTC(),
	}
	for _, leg := range result.Legs {
		lo := LegOutcome{Index: leg.Index, From: leg.From, To: leg.To}
		if leg.OK() {
			lo.DistanceM = leg.Plan.TotalDistanceM
			lo.DurationS = leg.Plan.TotalDurationS
		} else {
			lo.Failure = string(leg.Failure)
			lo.Error = routing.Describe(leg.Err)
		}
		out.Legs = append(out.Legs, lo)
	}
	return out
}
