package hydroapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/fallback"
	"github.com/rewired-gh/hydrowatch/internal/models"
)

type forecastResponse struct {
	Prediction *float64 `json:"next_season_volume_prediction"`
}

type anomalyResponse struct {
	IsAnomaly        *bool    `json:"is_anomaly"`
	AnomalyScore     *float64 `json:"anomaly_score"`
	DeviationPercent *float64 `json:"deviation_percent"`
}

// FetchForecast returns the backend's next-period volume prediction, or the
// moving average of the most recent samples when the backend is unavailable.
func (c *Client) FetchForecast(ctx context.Context, history []float64) models.Outcome[float64] {
	start := time.Now()

	prediction, err := attempt(OpForecast, func() (float64, error) {
		return c.remoteForecast(ctx, history)
	})
	if err == nil {
		return settle(OpForecast, prediction, models.SourceRemote, nil, start)
	}
	recordFailure(OpForecast, err)

	return settle(OpForecast, fallback.Forecast(history, c.params), models.SourceFallback, err, start)
}

func (c *Client) remoteForecast(ctx context.Context, history []float64) (float64, error) {
	body := make([]float64, 0, len(history))
	for _, v := range history {
		if !models.IsFinite(v) {
			// JSON cannot carry NaN or Inf
			return 0, malformed(OpForecast, errors.New("history contains non-finite samples"))
		}
		body = append(body, v)
	}

	var resp forecastResponse
	if err := c.doJSON(ctx, OpForecast, http.MethodPost, "/api/ml/forecast", nil, body, &resp, c.timeouts.Forecast); err != nil {
		return 0, err
	}
	if resp.Prediction == nil {
		return 0, malformed(OpForecast, errors.New("response has no prediction"))
	}
	if !models.IsFinite(*resp.Prediction) || *resp.Prediction < 0 {
		return 0, malformed(OpForecast, errors.New("prediction must be finite and non-negative"))
	}
	return *resp.Prediction, nil
}

// CheckAnomaly returns the backend's anomaly verdict, or the local
// relative-deviation heuristic when the backend is unavailable. Both use the
// same threshold.
func (c *Client) CheckAnomaly(ctx context.Context, currentVolume, historicalAvg float64) models.Outcome[models.AnomalyVerdict] {
	start := time.Now()

	verdict, err := attempt(OpAnomaly, func() (models.AnomalyVerdict, error) {
		return c.remoteAnomaly(ctx, currentVolume, historicalAvg)
	})
	if err == nil {
		return settle(OpAnomaly, verdict, models.SourceRemote, nil, start)
	}
	recordFailure(OpAnomaly, err)

	return settle(OpAnomaly, fallback.Anomaly(currentVolume, historicalAvg, c.params), models.SourceFallback, err, start)
}

func (c *Client) remoteAnomaly(ctx context.Context, currentVolume, historicalAvg float64) (models.AnomalyVerdict, error) {
	if !models.IsFinite(currentVolume) || !models.IsFinite(historicalAvg) {
		return models.AnomalyVerdict{}, malformed(OpAnomaly, errors.New("inputs must be finite"))
	}

	query := map[string]string{
		"current_vol":    strconv.FormatFloat(currentVolume, 'f', -1, 64),
		"historical_avg": strconv.FormatFloat(historicalAvg, 'f', -1, 64),
	}

	var resp anomalyResponse
	if err := c.doJSON(ctx, OpAnomaly, http.MethodPost, "/api/ml/anomaly", query, nil, &resp, c.timeouts.Anomaly); err != nil {
		return models.AnomalyVerdict{}, err
	}
	if resp.IsAnomaly == nil || resp.AnomalyScore == nil || resp.DeviationPercent == nil {
		return models.AnomalyVerdict{}, malformed(OpAnomaly, errors.New("response is missing verdict fields"))
	}

	verdict := models.AnomalyVerdict{
		IsAnomaly:        *resp.IsAnomaly,
		AnomalyScore:     *resp.AnomalyScore,
		DeviationPercent: *resp.DeviationPercent,
	}
	if err := verdict.Validate(); err != nil {
		return models.AnomalyVerdict{}, malformed(OpAnomaly, err)
	}
	return verdict, nil
}

// FetchModelMetrics returns the backend's model status table, or a static
// offline table so a metrics panel never renders empty.
func (c *Client) FetchModelMetrics(ctx context.Context) models.Outcome[map[string]models.ModelMetric] {
	start := time.Now()

	table, err := attempt(OpMetrics, func() (map[string]models.ModelMetric, error) {
		var resp map[string]models.ModelMetric
		if err := c.doJSON(ctx, OpMetrics, http.MethodGet, "/api/ml/metrics", nil, nil, &resp, c.timeouts.Metrics); err != nil {
			return nil, err
		}
		if len(resp) == 0 {
			return nil, malformed(OpMetrics, errors.New("response has no models"))
		}
		return resp, nil
	})
	if err == nil {
		return settle(OpMetrics, table, models.SourceRemote, nil, start)
	}
	recordFailure(OpMetrics, err)

	return settle(OpMetrics, fallback.StaticMetrics(), models.SourceStatic, err, start)
}
