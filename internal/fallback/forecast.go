package fallback

import (
	"math"

	"github.com/rewired-gh/hydrowatch/internal/models"
)

// Forecast returns the moving average of the last ForecastWindow finite
// samples, scaled by TrendMultiplier. An empty series yields exactly 0.
func Forecast(history []float64, p Params) float64 {
	window := p.ForecastWindow
	if window < 1 {
		window = 1
	}

	var sum float64
	n := 0
	for i := len(history) - 1; i >= 0 && n < window; i-- {
		if !models.IsFinite(history[i]) {
			continue
		}
		sum += history[i]
		n++
	}
	if n == 0 {
		return 0
	}

	result := sum / float64(n) * p.TrendMultiplier
	if !models.IsFinite(result) {
		return 0
	}
	return result
}

// Anomaly compares current with historicalAvg using a relative standard
// deviation proxy. The threshold matches the backend's detector so dashboard
// semantics do not depend on which tier answered.
func Anomaly(current, historicalAvg float64, p Params) models.AnomalyVerdict {
	if !models.IsFinite(current) {
		current = 0
	}
	if !models.IsFinite(historicalAvg) {
		historicalAvg = 0
	}

	deviation := math.Abs(current - historicalAvg)
	stdDev := math.Max(historicalAvg*p.StdDevRatio, p.StdDevFloor)
	score := deviation / stdDev

	base := historicalAvg
	if base == 0 {
		base = 1
	}

	return models.AnomalyVerdict{
		IsAnomaly:        score > p.AnomalyThreshold,
		AnomalyScore:     round(score, 2),
		DeviationPercent: round(deviation/math.Abs(base)*100, 1),
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
