// Package fallback holds the canonical local approximations used when the
// analysis backend cannot be reached. Every numeric constant is carried in
// Params so it can be tuned and tested independently of the access layer's
// control flow.
package fallback

import (
	"errors"

	"github.com/rewired-gh/hydrowatch/internal/models"
)

// SimulatedLabel marks readings produced by the local satellite simulator.
const SimulatedLabel = "simulated"

// Params configures every fallback formula.
type Params struct {
	// Satellite simulation
	SeasonFill        map[models.Season]float64
	DefaultFill       float64 // Base fill fraction for unknown seasons
	FillNoise         float64 // Uniform noise amplitude applied to the fill fraction
	MinFill           float64
	MaxFill           float64
	AreaExponent      float64 // Surface area = volume^AreaExponent × AreaCoefficient
	AreaCoefficient   float64
	LevelBaseM        float64 // Water level = LevelBaseM + fill ratio × LevelSpanM
	LevelSpanM        float64
	MaxCloudCoverPct  float64
	MonsoonRainfallMm float64
	DryRainfallMm     float64

	// Forecast
	ForecastWindow  int
	TrendMultiplier float64

	// Anomaly
	StdDevRatio      float64
	StdDevFloor      float64
	AnomalyThreshold float64
}

// DefaultParams returns the constants observed in the dashboard's fallback paths.
func DefaultParams() Params {
	return Params{
		SeasonFill: map[models.Season]float64{
			models.SeasonMonsoon:     0.85,
			models.SeasonPostMonsoon: 0.75,
			models.SeasonWinter:      0.60,
			models.SeasonSummer:      0.35,
		},
		DefaultFill:       0.50,
		FillNoise:         0.05,
		MinFill:           0.10,
		MaxFill:           0.98,
		AreaExponent:      0.66,
		AreaCoefficient:   1.2,
		LevelBaseM:        10,
		LevelSpanM:        20,
		MaxCloudCoverPct:  30,
		MonsoonRainfallMm: 800,
		DryRainfallMm:     100,
		ForecastWindow:    3,
		TrendMultiplier:   1.0,
		StdDevRatio:       0.15,
		StdDevFloor:       1,
		AnomalyThreshold:  2.5,
	}
}

// Validate checks that the parameters keep every formula finite and bounded.
func (p *Params) Validate() error {
	for season, f := range p.SeasonFill {
		if !season.Valid() {
			return errors.New("season fill contains an unknown season")
		}
		if f < 0 || f > 1 {
			return errors.New("season fill fractions must be between 0 and 1")
		}
	}
	if p.DefaultFill < 0 || p.DefaultFill > 1 {
		return errors.New("default fill must be between 0 and 1")
	}
	if p.FillNoise < 0 {
		return errors.New("fill noise must not be negative")
	}
	if p.MinFill < 0 || p.MaxFill > 1 || p.MinFill > p.MaxFill {
		return errors.New("fill bounds must satisfy 0 <= min <= max <= 1")
	}
	if p.AreaExponent <= 0 || p.AreaCoefficient <= 0 {
		return errors.New("area exponent and coefficient must be positive")
	}
	if p.MaxCloudCoverPct < 0 || p.MaxCloudCoverPct > 100 {
		return errors.New("max cloud cover must be between 0 and 100")
	}
	if p.MonsoonRainfallMm < 0 || p.DryRainfallMm < 0 {
		return errors.New("rainfall placeholders must not be negative")
	}
	if p.ForecastWindow < 1 {
		return errors.New("forecast window must be at least 1")
	}
	if p.TrendMultiplier <= 0 {
		return errors.New("trend multiplier must be positive")
	}
	if p.StdDevRatio <= 0 || p.StdDevFloor <= 0 {
		return errors.New("std dev ratio and floor must be positive")
	}
	if p.AnomalyThreshold <= 0 {
		return errors.New("anomaly threshold must be positive")
	}
	return nil
}

// baseFill returns the season's base fill fraction.
func (p *Params) baseFill(season models.Season) float64 {
	if f, ok := p.SeasonFill[season]; ok {
		return f
	}
	return p.DefaultFill
}
