package fallback

import "github.com/rewired-gh/hydrowatch/internal/models"

// StaticReport returns the degraded-mode analysis used when both the backend
// and the generative tier are unavailable.
func StaticReport() models.AnalysisReport {
	return models.AnalysisReport{
		RiskLevel:        models.RiskModerate,
		FloodProbability: 0,
		DroughtSeverity:  models.DroughtNormal,
		Forecast:         "Forecast unavailable while analysis services are offline.",
		Summary:          "AI analysis is currently unavailable. Values shown are degraded-mode placeholders, not an assessment.",
		Recommendation:   "Continue routine surveillance and verify gauge readings manually until analysis services recover.",
	}
}

// StaticMetrics returns the offline model table shown when the metrics
// endpoint cannot be reached. A fresh map is returned on every call.
func StaticMetrics() map[string]models.ModelMetric {
	offline := models.Accuracy{Offline: true}
	return map[string]models.ModelMetric{
		"Random Forest Regressor": {Accuracy: offline, Kind: "Regression", Status: "Offline"},
		"Isolation Forest":        {Accuracy: offline, Kind: "Anomaly Detection", Status: "Offline"},
		"Flood Risk Model":        {Accuracy: offline, Kind: "Logistic Classification", Status: "Offline"},
		"Gemini Pro":              {Accuracy: offline, Kind: "LLM Reasoning", Status: "Offline"},
	}
}
