package models

import "time"

// Assessment is the result of one refresh of one reservoir: every query the
// dashboard issues per refresh cycle, with per-value provenance.
type Assessment struct {
	ID         string                    `json:"id"`
	Reservoir  Reservoir                 `json:"reservoir"`
	Season     Season                    `json:"season"`
	Reading    Outcome[SatelliteReading] `json:"reading"`
	Anomaly    Outcome[AnomalyVerdict]   `json:"anomaly"`
	Forecast   Outcome[float64]          `json:"forecast"`
	Report     Outcome[AnalysisReport]   `json:"report"`
	AssessedAt time.Time                 `json:"assessed_at"`
}

// Degraded reports whether any value in the assessment came from a fallback tier.
func (a *Assessment) Degraded() bool {
	return a.Reading.Degraded() || a.Anomaly.Degraded() || a.Forecast.Degraded() || a.Report.Degraded()
}

// RiskLevel returns the report's risk level.
func (a *Assessment) RiskLevel() RiskLevel {
	return a.Report.Value.RiskLevel
}
