// Package models defines the core domain entities for the hydrowatch service.
// These models represent monitored reservoirs, satellite readings, anomaly
// verdicts, AI analysis reports and the provenance of every value returned by
// the data access layer.
//
// Terminology:
//   - MCM: million cubic meters, the unit for reservoir storage.
//   - Fill fraction: current volume divided by maximum capacity.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Season is one of the four hydrological seasons used for baselines and
// fallback lookups.
type Season string

const (
	SeasonWinter      Season = "Winter"
	SeasonSummer      Season = "Summer"
	SeasonMonsoon     Season = "Monsoon"
	SeasonPostMonsoon Season = "Post-Monsoon"
)

// Seasons lists every known season in calendar order.
var Seasons = []Season{SeasonWinter, SeasonSummer, SeasonMonsoon, SeasonPostMonsoon}

// Valid reports whether s is one of the four known seasons.
func (s Season) Valid() bool {
	switch s {
	case SeasonWinter, SeasonSummer, SeasonMonsoon, SeasonPostMonsoon:
		return true
	}
	return false
}

// ParseSeason converts a label into a Season. Matching ignores case, since
// configuration keys arrive lower-cased.
func ParseSeason(label string) (Season, error) {
	for _, s := range Seasons {
		if strings.EqualFold(string(s), strings.TrimSpace(label)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown season %q", label)
}

// SeasonForMonth maps a calendar month to its season:
// Jan–Feb Winter, Mar–May Summer, Jun–Sep Monsoon, Oct–Dec Post-Monsoon.
func SeasonForMonth(m time.Month) Season {
	switch {
	case m <= time.February:
		return SeasonWinter
	case m <= time.May:
		return SeasonSummer
	case m <= time.September:
		return SeasonMonsoon
	default:
		return SeasonPostMonsoon
	}
}

// Baseline holds the seasonal historical averages for a reservoir.
type Baseline struct {
	AvgVolumeMCM  float64 `json:"avg_volume_mcm"`
	AvgRainfallMm float64 `json:"avg_rainfall_mm"`
}

// Reservoir is a monitored water body. All fields are supplied by
// configuration; the data access layer never caches them.
type Reservoir struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Lat            float64             `json:"lat"`
	Lng            float64             `json:"lng"`
	MaxCapacityMCM float64             `json:"max_capacity_mcm"`
	Baselines      map[Season]Baseline `json:"baselines,omitempty"`
}

// Baseline returns the baseline recorded for season, or a zero Baseline.
func (r *Reservoir) Baseline(season Season) Baseline {
	return r.Baselines[season]
}

// Validate checks that all reservoir fields are valid.
func (r *Reservoir) Validate() error {
	if r.ID == "" {
		return errors.New("reservoir ID must not be empty")
	}
	if r.Name == "" {
		return errors.New("reservoir name must not be empty")
	}
	if r.Lat < -90 || r.Lat > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if r.Lng < -180 || r.Lng > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	if r.MaxCapacityMCM <= 0 {
		return errors.New("max capacity must be positive")
	}
	for season, b := range r.Baselines {
		if !season.Valid() {
			return fmt.Errorf("baseline for unknown season %q", season)
		}
		if b.AvgVolumeMCM < 0 || b.AvgRainfallMm < 0 {
			return fmt.Errorf("baseline for %s must not be negative", season)
		}
	}
	return nil
}
