// Package genai implements the generative-AI tier of report generation. A
// chat-completion model is asked for a strict JSON analysis; the reply is
// parsed, validated and clamped by deterministic hydrological rules before
// it is trusted.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rewired-gh/hydrowatch/internal/models"
)

// Generator produces an analysis report from a payload.
type Generator interface {
	GenerateReport(ctx context.Context, req models.ReportRequest) (*models.AnalysisReport, error)
}

// ErrMalformedReply wraps every failure to turn a model reply into a valid report.
var ErrMalformedReply = errors.New("malformed generative reply")

// Decision-rule thresholds embedded in the prompt and enforced after parsing.
const (
	droughtModerateAnomaly = -20.0 // Rainfall anomaly (%) below which drought is at least Moderate
	droughtExtremeAnomaly  = -50.0 // Rainfall anomaly (%) below which drought is Extreme
	floodFillRatio         = 0.90  // Fill ratio above which flood risk is elevated
	floodMinProbability    = 70
)

const promptTemplate = `You are a hydrological risk analyst for reservoir operations.

Analyze the following reservoir state and reply with a single JSON object only.

Reservoir: %s
Season: %s
Current volume: %.1f MCM
Max capacity: %.1f MCM (fill %.1f%%)
Rainfall anomaly: %.1f%% versus seasonal mean

Decision rules (mandatory):
1. If the rainfall anomaly is below %.0f%%, droughtSeverity must be at least "Moderate" and riskLevel at least "Moderate".
2. If the rainfall anomaly is below %.0f%%, droughtSeverity must be "Extreme".
3. If the volume exceeds %.0f%% of capacity, floodProbability must be at least %d and riskLevel at least "High".
4. floodProbability is an integer between 0 and 100.

Required JSON shape:
{"riskLevel": "Low|Moderate|High|Critical", "floodProbability": 0, "droughtSeverity": "Normal|Moderate|Severe|Extreme", "forecast": "...", "summary": "...", "recommendation": "..."}

Output strictly JSON with no markdown and no commentary.`

// BuildPrompt renders the analysis prompt for req.
func BuildPrompt(req models.ReportRequest) string {
	return fmt.Sprintf(promptTemplate,
		req.ReservoirName,
		req.Season,
		req.CurrentVolume,
		req.MaxCapacity,
		req.FillRatio()*100,
		req.RainfallAnomaly,
		droughtModerateAnomaly,
		droughtExtremeAnomaly,
		floodFillRatio*100,
		floodMinProbability,
	)
}

// ParseReport strictly decodes a model reply into a report. Markdown code
// fences are tolerated; unknown fields, trailing data and incomplete reports
// are rejected.
func ParseReport(content string) (*models.AnalysisReport, error) {
	content = stripFences(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty report content", ErrMalformedReply)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()

	var report models.AnalysisReport
	if err := dec.Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: failed to decode report: %v", ErrMalformedReply, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: unexpected trailing data after report", ErrMalformedReply)
	}
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid report: %v", ErrMalformedReply, err)
	}
	return &report, nil
}

// ApplyGuardrails enforces the prompt's decision rules on report. It only
// ever raises severity; a stricter answer from the model is kept.
func ApplyGuardrails(report *models.AnalysisReport, req models.ReportRequest) {
	if req.RainfallAnomaly < droughtModerateAnomaly {
		if report.DroughtSeverity.Rank() < models.DroughtModerate.Rank() {
			report.DroughtSeverity = models.DroughtModerate
		}
		if report.RiskLevel.Rank() < models.RiskModerate.Rank() {
			report.RiskLevel = models.RiskModerate
		}
	}
	if req.RainfallAnomaly < droughtExtremeAnomaly {
		report.DroughtSeverity = models.DroughtExtreme
	}
	if req.FillRatio() > floodFillRatio {
		if report.FloodProbability < floodMinProbability {
			report.FloodProbability = floodMinProbability
		}
		if report.RiskLevel.Rank() < models.RiskHigh.Rank() {
			report.RiskLevel = models.RiskHigh
		}
	}
	if report.FloodProbability < 0 {
		report.FloodProbability = 0
	}
	if report.FloodProbability > 100 {
		report.FloodProbability = 100
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
