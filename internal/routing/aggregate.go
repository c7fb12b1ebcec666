package routing

import (
	"fmt"
	"math"
	"sort"
)

// Method names understood by the Aggregator.
const (
	MethodWalking = "walking"
	MethodTransit = "transit"
	MethodDriving = "driving"
)

// FareConfig holds the cost model used to price driving options.
type FareConfig struct {
	// TaxiBaseFare covers the first TaxiBaseDistanceKm. Default: 13 CNY.
	TaxiBaseFare float64 `mapstructure:"taxi_base_fare"`

	// TaxiBaseDistanceKm is the distance included in the base fare. Default: 3 km.
	TaxiBaseDistanceKm float64 `mapstructure:"taxi_base_distance_km"`

	// TaxiPerKm is charged per km beyond the base distance. Default: 2.3 CNY.
	TaxiPerKm float64 `mapstructure:"taxi_per_km"`

	// FuelPerKm is the private-car fuel cost. Default: 0.64 CNY (8 L/100 km at 8 CNY/L).
	FuelPerKm float64 `mapstructure:"fuel_per_km"`

	// WalkingThresholdM is the distance below which walking is proposed. Default: 3000 m.
	WalkingThresholdM float64 `mapstructure:"walking_threshold_m"`
}

// DefaultFareConfig returns the default cost model.
func DefaultFareConfig() FareConfig {
	return FareConfig{
		TaxiBaseFare:       13,
		TaxiBaseDistanceKm: 3,
		TaxiPerKm:          2.3,
		FuelPerKm:          0.64,
		WalkingThresholdM:  3000,
	}
}

// TaxiFare estimates a taxi fare for distanceM, rounded to 0.1.
func (c FareConfig) TaxiFare(distanceM float64) float64 {
	km := distanceM / 1000
	fare := c.TaxiBaseFare
	if km > c.TaxiBaseDistanceKm {
		fare += (km - c.TaxiBaseDistanceKm) * c.TaxiPerKm
	}
	return roundTenth(fare)
}

// FuelCost estimates private-car fuel cost for distanceM, rounded to 0.1.
func (c FareConfig) FuelCost(distanceM float64) float64 {
	return roundTenth(distanceM / 1000 * c.FuelPerKm)
}

// Aggregator ranks per-method options with rule-based framing.
type Aggregator struct {
	fares FareConfig
}

// NewAggregator creates a new Aggregator. Zero fields in fares take defaults.
func NewAggregator(fares FareConfig) *Aggregator {
	def := DefaultFareConfig()
	if fares.TaxiBaseFare == 0 {
		fares.TaxiBaseFare = def.TaxiBaseFare
	}
	if fares.TaxiBaseDistanceKm == 0 {
		fares.TaxiBaseDistanceKm = def.TaxiBaseDistanceKm
	}
	if fares.TaxiPerKm == 0 {
		fares.TaxiPerKm = def.TaxiPerKm
	}
	if fares.FuelPerKm == 0 {
		fares.FuelPerKm = def.FuelPerKm
	}
	if fares.WalkingThresholdM == 0 {
		fares.WalkingThresholdM = def.WalkingThresholdM
	}
	return &Aggregator{fares: fares}
}

// Fares returns the cost model in use.
func (a *Aggregator) Fares() FareConfig {
	return a.fares
}

// Recommend proposes options from the walking, transit and driving inputs and
// sorts them by duration; the fastest proposal is Best.
//
// Walking is proposed only below the walking threshold. Transit and driving are
// proposed whenever present. Other method names are ignored.
func (a *Aggregator) Recommend(options map[string]OptionInput) (Recommendation, error) {
	var proposed []RankedOption

	if walk, ok := options[MethodWalking]; ok && walk.DistanceM > 0 && walk.DistanceM < a.fares.WalkingThresholdM {
		proposed = append(proposed, RankedOption{
			Method:       MethodWalking,
			DurationS:    walk.DurationS,
			DistanceM:    walk.DistanceM,
			MonetaryCost: ptr(0.0),
			Reason: fmt.Sprintf("short trip under %.0f km: healthy and free",
				a.fares.WalkingThresholdM/1000),
		})
	}

	if transit, ok := options[MethodTransit]; ok {
		reason := "economical: public transit"
		if transit.Cost != nil {
			reason = fmt.Sprintf("economical: public transit, fare about %.1f CNY", *transit.Cost)
		}
		proposed = append(proposed, RankedOption{
			Method:       MethodTransit,
			DurationS:    transit.DurationS,
			DistanceM:    transit.DistanceM,
			MonetaryCost: transit.Cost,
			Reason:       reason,
		})
	}

	if drive, ok := options[MethodDriving]; ok {
		taxi := a.fares.TaxiFare(drive.DistanceM)
		if drive.Cost != nil && *drive.Cost > 0 {
			taxi = *drive.Cost
		}
		fuel := a.fares.FuelCost(drive.DistanceM)
		proposed = append(proposed, RankedOption{
			Method:       MethodDriving,
			DurationS:    drive.DurationS,
			DistanceM:    drive.DistanceM,
			MonetaryCost: ptr(taxi),
			FuelCost:     ptr(fuel),
			Reason:       fmt.Sprintf("fastest: taxi about %.1f CNY, own car fuel about %.1f CNY", taxi, fuel),
		})
	}

	if len(proposed) == 0 {
		return Recommendation{}, ErrNoOptions
	}

	sort.SliceStable(proposed, func(i, j int) bool {
		return proposed[i].DurationS < proposed[j].DurationS
	})

	return Recommendation{Best: proposed[0], AllOptions: proposed}, nil
}

// OptionFromPlan extracts an aggregator input from a normalized plan.
func OptionFromPlan(plan RoutePlan) OptionInput {
	return OptionInput{
		DurationS: plan.TotalDurationS,
		DistanceM: plan.TotalDistanceM,
		Cost:      plan.MonetaryCost,
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
