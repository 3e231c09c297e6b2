package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOutcome(t *testing.T) {
	before := testutil.ToFloat64(accessOutcomes.WithLabelValues("forecast", "fallback"))
	ObserveOutcome("forecast", "fallback")
	ObserveOutcome("forecast", "fallback")
	after := testutil.ToFloat64(accessOutcomes.WithLabelValues("forecast", "fallback"))

	if after-before != 2 {
		t.Errorf("Expected counter to increase by 2, got %f", after-before)
	}
}

func TestObserveFailureAndAlerts(t *testing.T) {
	before := testutil.ToFloat64(accessFailures.WithLabelValues("satellite", "timeout"))
	ObserveFailure("satellite", "timeout")
	if got := testutil.ToFloat64(accessFailures.WithLabelValues("satellite", "timeout")) - before; got != 1 {
		t.Errorf("Expected failure counter to increase by 1, got %f", got)
	}

	alertsBefore := testutil.ToFloat64(alertsSent)
	ObserveAlerts(3)
	if got := testutil.ToFloat64(alertsSent) - alertsBefore; got != 3 {
		t.Errorf("Expected alerts counter to increase by 3, got %f", got)
	}

	// Histograms only need to accept observations
	ObserveRemote("satellite", 120*time.Millisecond)
}

func TestObserveCycle(t *testing.T) {
	for _, result := range []string{"ok", "degraded", "canceled"} {
		before := testutil.ToFloat64(monitorCycles.WithLabelValues(result))
		ObserveCycle(result)
		if got := testutil.ToFloat64(monitorCycles.WithLabelValues(result)) - before; got != 1 {
			t.Errorf("Expected %s cycle counter to increase by 1, got %f", result, got)
		}
	}
}
