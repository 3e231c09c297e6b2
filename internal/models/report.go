package models

import (
	"errors"
	"fmt"
	"strings"
)

// RiskLevel is the overall risk classification of a reservoir.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Rank orders risk levels from 0 (Low) to 3 (Critical). Unknown levels rank -1.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return -1
}

// DroughtSeverity classifies rainfall/storage deficit.
type DroughtSeverity string

const (
	DroughtNormal   DroughtSeverity = "Normal"
	DroughtModerate DroughtSeverity = "Moderate"
	DroughtSevere   DroughtSeverity = "Severe"
	DroughtExtreme  DroughtSeverity = "Extreme"
)

// Rank orders drought severities from 0 (Normal) to 3 (Extreme). Unknown values rank -1.
func (d DroughtSeverity) Rank() int {
	switch d {
	case DroughtNormal:
		return 0
	case DroughtModerate:
		return 1
	case DroughtSevere:
		return 2
	case DroughtExtreme:
		return 3
	}
	return -1
}

// ReportRequest is the payload sent to the analysis tiers.
type ReportRequest struct {
	ReservoirName   string  `json:"reservoir_name"`
	CurrentVolume   float64 `json:"current_volume"`
	MaxCapacity     float64 `json:"max_capacity"`
	RainfallAnomaly float64 `json:"rainfall_anomaly"` // Percent deviation from seasonal mean, negative = deficit
	Season          Season  `json:"season"`
}

// FillRatio returns CurrentVolume / MaxCapacity, or 0 when capacity is not positive.
func (r ReportRequest) FillRatio() float64 {
	if r.MaxCapacity <= 0 {
		return 0
	}
	return r.CurrentVolume / r.MaxCapacity
}

// AnalysisReport is a fully populated risk assessment. Fallback paths
// synthesize every field rather than leaving any empty.
type AnalysisReport struct {
	RiskLevel        RiskLevel       `json:"riskLevel"`
	FloodProbability int             `json:"floodProbability"`
	DroughtSeverity  DroughtSeverity `json:"droughtSeverity"`
	Forecast         string          `json:"forecast"`
	Summary          string          `json:"summary"`
	Recommendation   string          `json:"recommendation"`
}

// Validate checks that every report field is populated and in range.
func (a *AnalysisReport) Validate() error {
	if a.RiskLevel.Rank() < 0 {
		return fmt.Errorf("invalid risk level %q", a.RiskLevel)
	}
	if a.DroughtSeverity.Rank() < 0 {
		return fmt.Errorf("invalid drought severity %q", a.DroughtSeverity)
	}
	if a.FloodProbability < 0 || a.FloodProbability > 100 {
		return errors.New("flood probability must be between 0 and 100")
	}
	if strings.TrimSpace(a.Forecast) == "" {
		return errors.New("forecast must not be empty")
	}
	if strings.TrimSpace(a.Summary) == "" {
		return errors.New("summary must not be empty")
	}
	if strings.TrimSpace(a.Recommendation) == "" {
		return errors.New("recommendation must not be empty")
	}
	return nil
}
