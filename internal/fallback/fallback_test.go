package fallback

import (
	"math"
	"testing"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/models"
)

func TestSatellite_BoundsPerSeason(t *testing.T) {
	sim := NewSimulator(DefaultParams(), 42)
	now := time.Now()
	capacities := []float64{0.5, 1, 103, 3500, 1e6}

	for _, season := range append(models.Seasons, "Unknown") {
		for _, capacity := range capacities {
			for i := 0; i < 200; i++ {
				r := sim.Satellite(models.SatelliteQuery{
					ReservoirID: "res-1",
					Season:      season,
					MaxCapacity: capacity,
				}, now)

				if r.FillPercentage < 10 || r.FillPercentage > 98 {
					t.Fatalf("%s/%v: fill %f outside [10, 98]", season, capacity, r.FillPercentage)
				}
				if r.VolumeMCM <= 0 || r.VolumeMCM > capacity {
					t.Fatalf("%s/%v: volume %f outside (0, %v]", season, capacity, r.VolumeMCM, capacity)
				}
				if r.CloudCoverPct < 0 || r.CloudCoverPct > 30 {
					t.Fatalf("%s/%v: cloud cover %f outside [0, 30]", season, capacity, r.CloudCoverPct)
				}
				if err := r.Validate(); err != nil {
					t.Fatalf("%s/%v: invalid reading: %v", season, capacity, err)
				}
			}
		}
	}
}

func TestSatellite_SurfaceAreaScaling(t *testing.T) {
	sim := NewSimulator(DefaultParams(), 7)

	for _, capacity := range []float64{1, 50, 103, 2500} {
		r := sim.Satellite(models.SatelliteQuery{Season: models.SeasonWinter, MaxCapacity: capacity}, time.Now())
		expected := math.Pow(r.VolumeMCM, 0.66) * 1.2
		if math.Abs(r.SurfaceAreaSqKm-expected) > 1e-9 {
			t.Errorf("capacity %v: expected area %f, got %f", capacity, expected, r.SurfaceAreaSqKm)
		}
	}
}

func TestSatellite_DerivedFields(t *testing.T) {
	p := DefaultParams()
	p.FillNoise = 0
	sim := NewSimulator(p, 1)

	tests := []struct {
		season       models.Season
		wantFill     float64
		wantRainfall float64
	}{
		{models.SeasonMonsoon, 85, 800},
		{models.SeasonPostMonsoon, 75, 100},
		{models.SeasonWinter, 60, 100},
		{models.SeasonSummer, 35, 100},
		{"Unknown", 50, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.season), func(t *testing.T) {
			r := sim.Satellite(models.SatelliteQuery{Season: tt.season, MaxCapacity: 200}, time.Now())
			if math.Abs(r.FillPercentage-tt.wantFill) > 1e-9 {
				t.Errorf("Expected fill %f, got %f", tt.wantFill, r.FillPercentage)
			}
			if r.RainfallMm != tt.wantRainfall {
				t.Errorf("Expected rainfall %f, got %f", tt.wantRainfall, r.RainfallMm)
			}
			expectedLevel := 10 + (r.VolumeMCM/200)*20
			if math.Abs(r.WaterLevelM-expectedLevel) > 1e-9 {
				t.Errorf("Expected level %f, got %f", expectedLevel, r.WaterLevelM)
			}
			if r.SourceLabel != SimulatedLabel {
				t.Errorf("Expected source label %q, got %q", SimulatedLabel, r.SourceLabel)
			}
		})
	}
}

func TestSatellite_NonPositiveCapacityStaysFinite(t *testing.T) {
	sim := NewSimulator(DefaultParams(), 3)

	for _, capacity := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		r := sim.Satellite(models.SatelliteQuery{Season: models.SeasonSummer, MaxCapacity: capacity}, time.Now())
		if err := r.Validate(); err != nil {
			t.Errorf("capacity %v: invalid reading: %v", capacity, err)
		}
		if r.VolumeMCM != 0 {
			t.Errorf("capacity %v: expected zero volume, got %f", capacity, r.VolumeMCM)
		}
	}
}

func TestSatellite_SameSeedIsReproducible(t *testing.T) {
	q := models.SatelliteQuery{Season: models.SeasonMonsoon, MaxCapacity: 103}
	now := time.Now()

	a := NewSimulator(DefaultParams(), 99).Satellite(q, now)
	b := NewSimulator(DefaultParams(), 99).Satellite(q, now)
	if a != b {
		t.Errorf("Expected identical readings for identical seeds, got %+v and %+v", a, b)
	}
}

func TestForecast(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name     string
		history  []float64
		trend    float64
		expected float64
	}{
		{name: "empty series", history: nil, trend: 1.0, expected: 0},
		{name: "three samples", history: []float64{10, 20, 30}, trend: 1.0, expected: 20},
		{name: "three samples with trend", history: []float64{10, 20, 30}, trend: 1.02, expected: 20.4},
		{name: "uses last three", history: []float64{1000, 10, 20, 30}, trend: 1.0, expected: 20},
		{name: "shorter series", history: []float64{40, 60}, trend: 1.0, expected: 50},
		{name: "single sample", history: []float64{42}, trend: 1.0, expected: 42},
		{name: "skips non-finite", history: []float64{10, 20, math.NaN(), 30}, trend: 1.0, expected: 20},
		{name: "only non-finite", history: []float64{math.NaN(), math.Inf(-1)}, trend: 1.0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.TrendMultiplier = tt.trend
			got := Forecast(tt.history, p)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Forecast(%v) = %f, expected %f", tt.history, got, tt.expected)
			}
			if again := Forecast(tt.history, p); again != got {
				t.Errorf("Forecast is not deterministic: %f then %f", got, again)
			}
		})
	}
}

func TestAnomaly(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name          string
		current       float64
		avg           float64
		wantScore     float64
		wantAnomaly   bool
		wantDeviation float64
	}{
		{name: "large surplus", current: 150, avg: 100, wantScore: 3.33, wantAnomaly: true, wantDeviation: 50},
		{name: "small surplus", current: 105, avg: 100, wantScore: 0.33, wantAnomaly: false, wantDeviation: 5},
		{name: "deficit", current: 40, avg: 100, wantScore: 4, wantAnomaly: true, wantDeviation: 60},
		{name: "zero average floors std dev", current: 2, avg: 0, wantScore: 2, wantAnomaly: false, wantDeviation: 200},
		{name: "exactly at threshold", current: 137.5, avg: 100, wantScore: 2.5, wantAnomaly: false, wantDeviation: 37.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Anomaly(tt.current, tt.avg, p)
			if math.Abs(v.AnomalyScore-tt.wantScore) > 0.005 {
				t.Errorf("Expected score %.2f, got %.4f", tt.wantScore, v.AnomalyScore)
			}
			if v.IsAnomaly != tt.wantAnomaly {
				t.Errorf("Expected isAnomaly=%v, got %v", tt.wantAnomaly, v.IsAnomaly)
			}
			if math.Abs(v.DeviationPercent-tt.wantDeviation) > 0.05 {
				t.Errorf("Expected deviation %.1f%%, got %.1f%%", tt.wantDeviation, v.DeviationPercent)
			}
			if err := v.Validate(); err != nil {
				t.Errorf("Invalid verdict: %v", err)
			}
		})
	}
}

func TestAnomaly_NonFiniteInputs(t *testing.T) {
	v := Anomaly(math.NaN(), math.Inf(1), DefaultParams())
	if err := v.Validate(); err != nil {
		t.Errorf("Expected finite verdict, got %+v (%v)", v, err)
	}
}

func TestStaticReport(t *testing.T) {
	r := StaticReport()
	if r.RiskLevel != models.RiskModerate {
		t.Errorf("Expected risk Moderate, got %s", r.RiskLevel)
	}
	if r.FloodProbability != 0 {
		t.Errorf("Expected flood probability 0, got %d", r.FloodProbability)
	}
	if r.DroughtSeverity != models.DroughtNormal {
		t.Errorf("Expected drought Normal, got %s", r.DroughtSeverity)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Static report must be fully populated: %v", err)
	}
	if StaticReport() != r {
		t.Error("Static report must be identical across calls")
	}
}

func TestStaticMetrics(t *testing.T) {
	m := StaticMetrics()
	if len(m) == 0 {
		t.Fatal("Expected a non-empty metrics table")
	}
	for name, metric := range m {
		if !metric.Accuracy.Offline {
			t.Errorf("%s: expected offline accuracy", name)
		}
		if metric.Status != "Offline" {
			t.Errorf("%s: expected status Offline, got %s", name, metric.Status)
		}
		if metric.LastUpdated != nil {
			t.Errorf("%s: expected nil last updated", name)
		}
	}

	// Callers may mutate the returned map
	delete(m, "Gemini Pro")
	if _, ok := StaticMetrics()["Gemini Pro"]; !ok {
		t.Error("StaticMetrics must return a fresh map")
	}
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("Default params invalid: %v", err)
	}

	bad := DefaultParams()
	bad.MinFill, bad.MaxFill = 0.9, 0.1
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for inverted fill bounds")
	}

	bad = DefaultParams()
	bad.AnomalyThreshold = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for zero anomaly threshold")
	}
}
