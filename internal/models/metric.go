package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// OfflineAccuracy is the literal used when no live accuracy is available.
const OfflineAccuracy = "Offline"

// Accuracy is either a numeric model score or the "Offline" marker.
type Accuracy struct {
	Value   float64
	Offline bool
}

// AccuracyOf returns a live numeric accuracy.
func AccuracyOf(v float64) Accuracy {
	return Accuracy{Value: v}
}

// String renders the accuracy for display.
func (a Accuracy) String() string {
	if a.Offline {
		return OfflineAccuracy
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

// MarshalJSON encodes a number, or the string "Offline".
func (a Accuracy) MarshalJSON() ([]byte, error) {
	if a.Offline || !IsFinite(a.Value) {
		return json.Marshal(OfflineAccuracy)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts a number, a numeric string, or any other string
// (treated as offline).
func (a *Accuracy) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		if !IsFinite(num) {
			return fmt.Errorf("accuracy must be finite")
		}
		*a = Accuracy{Value: num}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("accuracy must be a number or string: %w", err)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && IsFinite(v) {
		*a = Accuracy{Value: v}
		return nil
	}
	*a = Accuracy{Offline: true}
	return nil
}

// ModelMetric describes the state of one model behind the analysis backend.
type ModelMetric struct {
	Accuracy    Accuracy `json:"accuracy"`
	Kind        string   `json:"type"`
	Status      string   `json:"status"`
	LastUpdated *string  `json:"last_updated"`
}
