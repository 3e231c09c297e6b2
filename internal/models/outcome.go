package models

import "time"

// Source is the provenance label of a value returned by the data access layer.
type Source string

const (
	SourceRemote     Source = "remote"     // Live backend response
	SourceGenerative Source = "generative" // Generative-AI fallback tier
	SourceFallback   Source = "fallback"   // Local approximation formula
	SourceStatic     Source = "static"     // Hardcoded degraded-mode value
	SourceDropped    Source = "dropped"    // Best-effort call that did not complete
)

// FailureKind classifies why a remote tier was abandoned.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTimeout   FailureKind = "timeout"
	FailureNetwork   FailureKind = "network_unavailable"
	FailureStatus    FailureKind = "non_success_status"
	FailureMalformed FailureKind = "malformed_payload"
)

// Outcome wraps a value with the provenance of the tier that produced it.
// Value is always usable; Failure and Err describe the last tier that failed
// before the producing tier, and are empty when the first tier succeeded.
type Outcome[T any] struct {
	Value   T             `json:"value"`
	Source  Source        `json:"source"`
	Failure FailureKind   `json:"failure,omitempty"`
	Err     error         `json:"-"`
	Latency time.Duration `json:"latency_ns"`
}

// Degraded reports whether the value came from anything other than the live backend.
func (o Outcome[T]) Degraded() bool {
	return o.Source != SourceRemote
}

// ErrMessage returns the failure cause as text, or "" when there is none.
func (o Outcome[T]) ErrMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
