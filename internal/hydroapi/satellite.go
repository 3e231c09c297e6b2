package hydroapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/models"
)

type satelliteRequest struct {
	ReservoirID string  `json:"reservoir_id"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Season      string  `json:"season"`
	MaxCapacity float64 `json:"max_capacity"`
}

type satelliteResponse struct {
	Source string `json:"source"`
	Data   *struct {
		SurfaceAreaSqKm *float64 `json:"surface_area_sqkm"`
		VolumeMCM       *float64 `json:"volume_mcm"`
		WaterLevelM     *float64 `json:"water_level_m"`
		FillPercentage  *float64 `json:"fill_percentage"`
		CloudCoverPct   *float64 `json:"cloud_cover_pct"`
		RainfallMm      *float64 `json:"rainfall_mm"`
		SatellitePass   string   `json:"satellite_pass"`
	} `json:"data"`
}

// Python's datetime.isoformat() omits the zone when the value is naive.
var passLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"}

func parsePass(s string, fallbackTime time.Time) time.Time {
	for _, layout := range passLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallbackTime
}

// FetchSatelliteReading returns the backend's satellite analysis for q, or a
// simulated reading labeled "simulated" when the backend is unavailable.
func (c *Client) FetchSatelliteReading(ctx context.Context, q models.SatelliteQuery) models.Outcome[models.SatelliteReading] {
	start := time.Now()

	reading, err := attempt(OpSatellite, func() (models.SatelliteReading, error) {
		return c.remoteSatellite(ctx, q)
	})
	if err == nil {
		return settle(OpSatellite, reading, models.SourceRemote, nil, start)
	}
	recordFailure(OpSatellite, err)

	return settle(OpSatellite, c.simulator.Satellite(q, c.now()), models.SourceFallback, err, start)
}

func (c *Client) remoteSatellite(ctx context.Context, q models.SatelliteQuery) (models.SatelliteReading, error) {
	var resp satelliteResponse
	err := c.doJSON(ctx, OpSatellite, http.MethodPost, "/api/satellite", nil, satelliteRequest{
		ReservoirID: q.ReservoirID,
		Lat:         q.Lat,
		Lng:         q.Lng,
		Season:      string(q.Season),
		MaxCapacity: q.MaxCapacity,
	}, &resp, c.timeouts.Satellite)
	if err != nil {
		return models.SatelliteReading{}, err
	}

	d := resp.Data
	if d == nil {
		return models.SatelliteReading{}, malformed(OpSatellite, errors.New("response has no data object"))
	}
	if d.SurfaceAreaSqKm == nil || d.VolumeMCM == nil || d.WaterLevelM == nil ||
		d.FillPercentage == nil || d.CloudCoverPct == nil || d.RainfallMm == nil {
		return models.SatelliteReading{}, malformed(OpSatellite, errors.New("response is missing reading fields"))
	}

	label := resp.Source
	if label == "" {
		label = string(models.SourceRemote)
	}

	reading := models.SatelliteReading{
		SurfaceAreaSqKm: *d.SurfaceAreaSqKm,
		VolumeMCM:       *d.VolumeMCM,
		WaterLevelM:     *d.WaterLevelM,
		FillPercentage:  *d.FillPercentage,
		CloudCoverPct:   *d.CloudCoverPct,
		RainfallMm:      *d.RainfallMm,
		SourceLabel:     label,
		Timestamp:       parsePass(d.SatellitePass, c.now()),
	}
	reading.ClampFill()

	if err := reading.Validate(); err != nil {
		return models.SatelliteReading{}, malformed(OpSatellite, err)
	}
	return reading, nil
}
