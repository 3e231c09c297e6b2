package models

import (
	"errors"
	"math"
	"time"
)

// SatelliteQuery carries the inputs for a satellite reading request.
type SatelliteQuery struct {
	ReservoirID string  `json:"reservoir_id"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Season      Season  `json:"season"`
	MaxCapacity float64 `json:"max_capacity"`
}

// SatelliteReading is a point-in-time surface and storage estimate for a
// reservoir. Readings are produced fresh per query and never mutated.
type SatelliteReading struct {
	SurfaceAreaSqKm float64   `json:"surface_area_sqkm"`
	VolumeMCM       float64   `json:"volume_mcm"`
	WaterLevelM     float64   `json:"water_level_m"`
	FillPercentage  float64   `json:"fill_percentage"` // Always within [0, 100]
	CloudCoverPct   float64   `json:"cloud_cover_pct"`
	RainfallMm      float64   `json:"rainfall_mm"`
	SourceLabel     string    `json:"source_label"` // "simulated" for local approximations
	Timestamp       time.Time `json:"timestamp"`
}

// ClampFill forces FillPercentage into [0, 100].
func (r *SatelliteReading) ClampFill() {
	r.FillPercentage = math.Max(0, math.Min(100, r.FillPercentage))
}

// Validate checks that all reading fields are finite and physically plausible.
// Volume above max capacity is not checked here; that is the caller's concern.
func (r *SatelliteReading) Validate() error {
	if !allFinite(r.SurfaceAreaSqKm, r.VolumeMCM, r.WaterLevelM, r.FillPercentage, r.CloudCoverPct, r.RainfallMm) {
		return errors.New("reading contains non-finite values")
	}
	if r.SurfaceAreaSqKm < 0 {
		return errors.New("surface area must not be negative")
	}
	if r.VolumeMCM < 0 {
		return errors.New("volume must not be negative")
	}
	if r.FillPercentage < 0 || r.FillPercentage > 100 {
		return errors.New("fill percentage must be between 0 and 100")
	}
	if r.CloudCoverPct < 0 || r.CloudCoverPct > 100 {
		return errors.New("cloud cover must be between 0 and 100")
	}
	if r.RainfallMm < 0 {
		return errors.New("rainfall must not be negative")
	}
	if r.SourceLabel == "" {
		return errors.New("source label must not be empty")
	}
	if r.Timestamp.IsZero() {
		return errors.New("timestamp must be set")
	}
	return nil
}

// AnomalyVerdict is the result of comparing a current volume with its
// seasonal historical average.
type AnomalyVerdict struct {
	IsAnomaly        bool    `json:"is_anomaly"`
	AnomalyScore     float64 `json:"anomaly_score"`
	DeviationPercent float64 `json:"deviation_percent"`
}

// Validate checks that the verdict is finite and the score non-negative.
func (v *AnomalyVerdict) Validate() error {
	if !allFinite(v.AnomalyScore, v.DeviationPercent) {
		return errors.New("verdict contains non-finite values")
	}
	if v.AnomalyScore < 0 {
		return errors.New("anomaly score must not be negative")
	}
	return nil
}

// IsFinite reports whether f is neither NaN nor ±Inf.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func allFinite(values ...float64) bool {
	for _, v := range values {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}
