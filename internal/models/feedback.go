package models

import (
	"errors"
	"time"
)

// FeedbackOriginal records what the dashboard showed.
type FeedbackOriginal struct {
	SurfaceArea float64 `json:"surfaceArea"`
	Risk        string  `json:"risk"`
}

// FeedbackCorrection records what the operator believes is correct.
type FeedbackCorrection struct {
	SurfaceArea float64 `json:"surfaceArea"`
	RiskLevel   string  `json:"riskLevel"`
}

// Feedback is an operator verdict on a displayed analysis. It is
// non-critical telemetry; delivery is best-effort.
type Feedback struct {
	ID                string              `json:"id,omitempty"`
	Correct           bool                `json:"correct"`
	Original          FeedbackOriginal    `json:"original"`
	Correction        *FeedbackCorrection `json:"correction,omitempty"`
	TriggerRetraining bool                `json:"trigger_retraining"`
	SubmittedAt       time.Time           `json:"submitted_at,omitempty"`
}

// Validate checks that a correction is present when the verdict is negative.
func (f *Feedback) Validate() error {
	if !f.Correct && f.Correction == nil {
		return errors.New("correction is required when feedback is not correct")
	}
	if f.Original.SurfaceArea < 0 {
		return errors.New("original surface area must not be negative")
	}
	if f.Correction != nil && f.Correction.SurfaceArea < 0 {
		return errors.New("corrected surface area must not be negative")
	}
	return nil
}
