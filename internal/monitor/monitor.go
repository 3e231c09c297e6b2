// Package monitor runs the dashboard's refresh cycle for every configured
// reservoir.
//
// One refresh issues the same queries the dashboard does: a satellite
// reading, then an anomaly check and a forecast in parallel, then an AI
// report built from the reading. Every query goes through the resilient
// access layer, so a refresh always completes with a fully populated
// assessment, even when the backend is down.
//
// Use FilterAlerts after a cycle to select High/Critical assessments that
// have not been notified within the cooldown.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/hydrowatch/internal/logger"
	"github.com/rewired-gh/hydrowatch/internal/metrics"
	"github.com/rewired-gh/hydrowatch/internal/models"
	"github.com/rewired-gh/hydrowatch/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Access is the subset of the data access layer a refresh needs.
type Access interface {
	FetchSatelliteReading(ctx context.Context, q models.SatelliteQuery) models.Outcome[models.SatelliteReading]
	FetchForecast(ctx context.Context, history []float64) models.Outcome[float64]
	CheckAnomaly(ctx context.Context, currentVolume, historicalAvg float64) models.Outcome[models.AnomalyVerdict]
	GenerateReport(ctx context.Context, req models.ReportRequest) models.Outcome[models.AnalysisReport]
}

// Options configures a Monitor. Zero values select defaults.
type Options struct {
	HistorySize int           // Volumes fed to the forecast, including the current one
	Concurrency int           // Reservoirs refreshed in parallel by RunCycle
	Season      models.Season // Overrides the month-derived season when set
	Now         func() time.Time
}

// notifiedRecord tracks a previously sent alert for cooldown deduplication.
type notifiedRecord struct {
	Risk   models.RiskLevel
	SentAt time.Time
}

// Monitor refreshes reservoirs and caches the latest assessment of each
type Monitor struct {
	access     Access
	storage    *storage.Storage
	reservoirs []models.Reservoir
	byID       map[string]int
	opts       Options

	mu       sync.RWMutex
	latest   map[string]*models.Assessment
	notified map[string]notifiedRecord // key = reservoir ID
}

// New creates a new Monitor instance
func New(access Access, s *storage.Storage, reservoirs []models.Reservoir, opts Options) *Monitor {
	if opts.HistorySize < 1 {
		opts.HistorySize = 12
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	byID := make(map[string]int, len(reservoirs))
	for i, r := range reservoirs {
		byID[r.ID] = i
	}

	return &Monitor{
		access:     access,
		storage:    s,
		reservoirs: reservoirs,
		byID:       byID,
		opts:       opts,
		latest:     make(map[string]*models.Assessment),
		notified:   make(map[string]notifiedRecord),
	}
}

// UnknownReservoirError is returned when a reservoir ID is not configured
type UnknownReservoirError struct {
	ID string
}

func (e UnknownReservoirError) Error() string {
	return fmt.Sprintf("unknown reservoir: %s", e.ID)
}

// Reservoirs returns the configured reservoirs in configuration order
func (m *Monitor) Reservoirs() []models.Reservoir {
	out := make([]models.Reservoir, len(m.reservoirs))
	copy(out, m.reservoirs)
	return out
}

// Reservoir returns the configured reservoir with the given ID
func (m *Monitor) Reservoir(id string) (models.Reservoir, bool) {
	i, ok := m.byID[id]
	if !ok {
		return models.Reservoir{}, false
	}
	return m.reservoirs[i], true
}

// Season returns the season used for a refresh at t
func (m *Monitor) Season(t time.Time) models.Season {
	if m.opts.Season != "" {
		return m.opts.Season
	}
	return models.SeasonForMonth(t.Month())
}

// RainfallAnomaly returns the percent deviation of rainfall from the seasonal
// mean, or 0 when no baseline rainfall is known.
func RainfallAnomaly(rainfallMm, baselineMm float64) float64 {
	if baselineMm <= 0 || !models.IsFinite(rainfallMm) {
		return 0
	}
	return (rainfallMm - baselineMm) / baselineMm * 100
}

// RefreshReservoir performs one refresh of a reservoir. The only error is an
// unknown ID; access failures degrade values instead. Persistence failures
// are logged and do not fail the refresh.
func (m *Monitor) RefreshReservoir(ctx context.Context, id string) (*models.Assessment, error) {
	r, ok := m.Reservoir(id)
	if !ok {
		return nil, UnknownReservoirError{ID: id}
	}

	now := m.opts.Now()
	season := m.Season(now)
	baseline := r.Baseline(season)

	reading := m.access.FetchSatelliteReading(ctx, models.SatelliteQuery{
		ReservoirID: r.ID,
		Lat:         r.Lat,
		Lng:         r.Lng,
		Season:      season,
		MaxCapacity: r.MaxCapacityMCM,
	})
	current := reading.Value.VolumeMCM

	history, err := m.storage.RecentVolumes(r.ID, m.opts.HistorySize-1)
	if err != nil {
		logger.Warn("Failed to load volume history for %s: %v", r.ID, err)
		history = []float64{}
	}
	history = append(history, current)

	var anomaly models.Outcome[models.AnomalyVerdict]
	var forecast models.Outcome[float64]

	// Access calls never fail, the group only joins them
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		anomaly = m.access.CheckAnomaly(gctx, current, baseline.AvgVolumeMCM)
		return nil
	})
	g.Go(func() error {
		forecast = m.access.FetchForecast(gctx, history)
		return nil
	})
	_ = g.Wait()

	report := m.access.GenerateReport(ctx, models.ReportRequest{
		ReservoirName:   r.Name,
		CurrentVolume:   current,
		MaxCapacity:     r.MaxCapacityMCM,
		RainfallAnomaly: RainfallAnomaly(reading.Value.RainfallMm, baseline.AvgRainfallMm),
		Season:          season,
	})

	assessment := &models.Assessment{
		ID:         uuid.New().String(),
		Reservoir:  r,
		Season:     season,
		Reading:    reading,
		Anomaly:    anomaly,
		Forecast:   forecast,
		Report:     report,
		AssessedAt: now,
	}

	m.persist(assessment)

	m.mu.Lock()
	m.latest[r.ID] = assessment
	m.mu.Unlock()

	logger.Debug("Refreshed %s: risk=%s degraded=%v", r.ID, assessment.RiskLevel(), assessment.Degraded())
	return assessment, nil
}

func (m *Monitor) persist(a *models.Assessment) {
	if err := m.storage.AddReading(&storage.ReadingRecord{
		ReservoirID: a.Reservoir.ID,
		Season:      a.Season,
		Reading:     a.Reading.Value,
		Source:      a.Reading.Source,
		RecordedAt:  a.AssessedAt,
	}); err != nil {
		logger.Warn("Failed to store reading for %s: %v", a.Reservoir.ID, err)
	}
	if err := m.storage.AddReport(&storage.ReportRecord{
		ReservoirID: a.Reservoir.ID,
		Report:      a.Report.Value,
		Source:      a.Report.Source,
		CreatedAt:   a.AssessedAt,
	}); err != nil {
		logger.Warn("Failed to store report for %s: %v", a.Reservoir.ID, err)
	}
}

// RunCycle refreshes every reservoir with bounded concurrency and returns the
// assessments in configuration order. It returns early with ctx's error when
// the cycle is canceled.
func (m *Monitor) RunCycle(ctx context.Context) ([]*models.Assessment, error) {
	results := make([]*models.Assessment, len(m.reservoirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i, r := range m.reservoirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := m.RefreshReservoir(gctx, r.ID)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.ObserveCycle("canceled")
		return nil, err
	}

	degraded := 0
	for _, a := range results {
		if a.Degraded() {
			degraded++
		}
	}
	if degraded > 0 {
		metrics.ObserveCycle("degraded")
	} else {
		metrics.ObserveCycle("ok")
	}
	logger.Info("Cycle complete: %d reservoirs, %d degraded", len(results), degraded)
	return results, nil
}

// Latest returns the cached assessment of a reservoir
func (m *Monitor) Latest(id string) (*models.Assessment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.latest[id]
	return a, ok
}

// LatestAll returns every cached assessment in configuration order
func (m *Monitor) LatestAll() []*models.Assessment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Assessment, 0, len(m.latest))
	for _, r := range m.reservoirs {
		if a, ok := m.latest[r.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// isAlertworthy reports whether a risk level warrants a notification.
func isAlertworthy(risk models.RiskLevel) bool {
	return risk.Rank() >= models.RiskHigh.Rank()
}

// FilterAlerts returns the High/Critical assessments that were not notified
// within cooldown at the same or a higher risk level. An escalation from
// High to Critical is always let through. Returns a non-nil slice.
func (m *Monitor) FilterAlerts(assessments []*models.Assessment, cooldown time.Duration) []*models.Assessment {
	now := m.opts.Now()
	result := []*models.Assessment{}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range assessments {
		if a == nil || !isAlertworthy(a.RiskLevel()) {
			continue
		}
		rec, exists := m.notified[a.Reservoir.ID]
		if exists && now.Sub(rec.SentAt) < cooldown && rec.Risk.Rank() >= a.RiskLevel().Rank() {
			continue
		}
		result = append(result, a)
	}
	return result
}

// RecordNotified records the given assessments as notified at the current time.
// Call this after a successful Telegram send to enable cooldown deduplication.
func (m *Monitor) RecordNotified(assessments []*models.Assessment) {
	now := m.opts.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range assessments {
		m.notified[a.Reservoir.ID] = notifiedRecord{
			Risk:   a.RiskLevel(),
			SentAt: now,
		}
	}
}
