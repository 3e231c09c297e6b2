// Package metrics exposes Prometheus instrumentation for the data access
// layer and the monitoring loop. Degraded-mode operation is observable here
// without inspecting logs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// accessOutcomes counts returned values by operation and provenance
	accessOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrowatch_access_outcomes_total",
		Help: "Values returned by the data access layer, by operation and source tier",
	}, []string{"operation", "source"})

	// accessFailures counts abandoned tiers by failure kind
	accessFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrowatch_access_failures_total",
		Help: "Abandoned access tiers, by operation and failure kind",
	}, []string{"operation", "kind"})

	remoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hydrowatch_access_remote_duration_seconds",
		Help:    "Latency of remote backend attempts in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	}, []string{"operation"})

	monitorCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrowatch_monitor_cycles_total",
		Help: "Completed monitoring cycles by result",
	}, []string{"result"})

	alertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hydrowatch_alerts_sent_total",
		Help: "Risk alerts delivered to Telegram",
	})
)

// ObserveOutcome records the tier that produced a value.
func ObserveOutcome(operation, source string) {
	accessOutcomes.WithLabelValues(operation, source).Inc()
}

// ObserveFailure records an abandoned tier.
func ObserveFailure(operation, kind string) {
	accessFailures.WithLabelValues(operation, kind).Inc()
}

// ObserveRemote records the duration of a remote attempt.
func ObserveRemote(operation string, d time.Duration) {
	remoteDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveCycle records a monitoring cycle result ("ok", "degraded" or "canceled").
func ObserveCycle(result string) {
	monitorCycles.WithLabelValues(result).Inc()
}

// ObserveAlerts records delivered alerts.
func ObserveAlerts(n int) {
	alertsSent.Add(float64(n))
}
