package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultChainConcurrency bounds concurrent leg planning.
const DefaultChainConcurrency = 3

// ComposerConfig holds configuration for the Composer.
type ComposerConfig struct {
	// Planners supplies a planner per mode (required).
	Planners PlannerSet

	// Concurrency is the maximum number of legs planned at once.
	// Default: DefaultChainConcurrency
	Concurrency int

	// Logger for chain operations.
	Logger zerolog.Logger
}

// Composer plans ordered multi-stop trips leg by leg.
type Composer struct {
	planners    PlannerSet
	concurrency int
	logger      zerolog.Logger
}

// NewComposer creates a new Composer.
func NewComposer(cfg ComposerConfig) *Composer {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultChainConcurrency
	}
	return &Composer{
		planners:    cfg.Planners,
		concurrency: concurrency,
		logger:      cfg.Logger,
	}
}

// LegResult is the outcome of one consecutive stop pair.
type LegResult struct {
	Index   int
	From    string
	To      string
	Plan    *RoutePlan // primary plan, nil when Err is set
	Err     error
	Failure FailureKind
}

// OK reports whether the leg was planned.
func (l LegResult) OK() bool {
	return l.Err == nil && l.Plan != nil
}

// ChainResult holds per-leg results in stop order and totals over the legs
// that succeeded.
type ChainResult struct {
	Mode           Mode
	Stops          []string
	Legs           []LegResult
	TotalDistanceM float64
	TotalDurationS float64
}

// Failed returns the legs that could not be planned.
func (r *ChainResult) Failed() []LegResult {
	var failed []LegResult
	for _, leg := range r.Legs {
		if !leg.OK() {
			failed = append(failed, leg)
		}
	}
	return failed
}

// PlanChain plans every consecutive pair of stops independently. A failing leg
// is reported in its LegResult and excluded from the totals; only fewer than
// two stops or an unknown mode fail the whole call.
func (c *Composer) PlanChain(ctx context.Context, stops []string, mode Mode, city string) (*ChainResult, error) {
	if len(stops) < 2 {
		return nil, ErrTooFewStops
	}
	planner, err := c.planners.For(mode)
	if err != nil {
		return nil, err
	}

	legs := make([]LegResult, len(stops)-1)

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range legs {
		g.Go(func() error {
			leg := LegResult{Index: i, From: stops[i], To: stops[i+1]}
			plans, err := planner.Plan(ctx, PlanRequest{
				Origin:      stops[i],
				Destination: stops[i+1],
				City:        city,
			})
			if err != nil {
				leg.Err = err
				leg.Failure = Classify(err)
				c.logger.Warn().
					Err(err).
					Int("leg", i+1).
					Str("from", leg.From).
					Str("to", leg.To).
					Msg("chain leg failed")
			} else {
				leg.Plan = &plans[0]
			}
			legs[i] = leg
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // legs never return errors

	result := &ChainResult{Mode: planner.Mode(), Stops: stops, Legs: legs}
	for _, leg := range legs {
		if leg.OK() {
			result.TotalDistanceM += leg.Plan.TotalDistanceM
			result.TotalDurationS += leg.Plan.TotalDurationS
		}
	}
	return result, nil
}

// TextSummary renders the chain as human-readable text.
func (r *ChainResult) TextSummary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Multi-stop route (%s)\n", r.Mode)
	fmt.Fprintf(&b, "Stops: %s\n", strings.Join(r.Stops, " -> "))

	for _, leg := range r.Legs {
		fmt.Fprintf(&b, "\nLeg %d: %s -> %s\n", leg.Index+1, leg.From, leg.To)
		if !leg.OK() {
			fmt.Fprintf(&b, "  failed (%s): %s\n", leg.Failure, Describe(leg.Err))
			continue
		}
		fmt.Fprintf(&b, "  Distance: %s\n", FormatDistance(leg.Plan.TotalDistanceM))
		fmt.Fprintf(&b, "  Duration: %s\n", leg.Plan.durationText())
	}

	b.WriteString("\nTotal")
	if failed := len(r.Failed()); failed > 0 {
		fmt.Fprintf(&b, " (excluding %d failed leg(s))", failed)
	}
	b.WriteString(":\n")
	fmt.Fprintf(&b, "  Distance: %s\n", FormatDistance(r.TotalDistanceM))
	total := FormatDuration(r.TotalDurationS)
	if total == "" {
		total = "unknown"
	}
	fmt.Fprintf(&b, "  Duration: %s", total)

	return b.String()
}
