// Package storage persists reservoir reading history and analysis reports in
// SQLite. Reading history feeds the forecast tier; reports back the facade's
// latest-assessment view across restarts.
//
// Readings are rotated per reservoir so the database does not grow without
// bound. Timestamps are stored as Unix nanoseconds in UTC.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a reservoir has no stored record.
var ErrNotFound = errors.New("record not found")

// ReadingRecord is one stored satellite reading with its provenance.
type ReadingRecord struct {
	ReservoirID string
	Season      models.Season
	Reading     models.SatelliteReading
	Source      models.Source
	RecordedAt  time.Time
}

// ReportRecord is one stored analysis report with its provenance.
type ReportRecord struct {
	ReservoirID string
	Report      models.AnalysisReport
	Source      models.Source
	CreatedAt   time.Time
}

// Storage provides SQLite-backed persistence
type Storage struct {
	db          *sql.DB
	maxReadings int
	dbPath      string
}

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reservoir_id TEXT NOT NULL,
	season TEXT NOT NULL,
	surface_area_sqkm REAL NOT NULL,
	volume_mcm REAL NOT NULL,
	water_level_m REAL NOT NULL,
	fill_percentage REAL NOT NULL,
	cloud_cover_pct REAL NOT NULL,
	rainfall_mm REAL NOT NULL,
	source_label TEXT NOT NULL,
	source TEXT NOT NULL,
	observed_at INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_reservoir ON readings(reservoir_id, recorded_at);

CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reservoir_id TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	flood_probability INTEGER NOT NULL,
	drought_severity TEXT NOT NULL,
	forecast TEXT NOT NULL,
	summary TEXT NOT NULL,
	recommendation TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_reservoir ON reports(reservoir_id, created_at);`

// New opens (or creates) the database at dbPath. ":memory:" opens a private
// in-memory database. maxReadings bounds the readings kept per reservoir.
func New(maxReadings int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "hydrowatch", "hydrowatch.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to :memory: is a separate database; writes are serialized anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if maxReadings < 1 {
		maxReadings = 1
	}

	return &Storage{
		db:          db,
		maxReadings: maxReadings,
		dbPath:      dbPath,
	}, nil
}

// Path returns the database location
func (s *Storage) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// AddReading stores a reading
func (s *Storage) AddReading(rec *ReadingRecord) error {
	if rec.ReservoirID == "" {
		return errors.New("invalid reading: reservoir ID must not be empty")
	}
	if err := rec.Reading.Validate(); err != nil {
		return fmt.Errorf("invalid reading: %w", err)
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	r := rec.Reading
	_, err := s.db.Exec(`
		INSERT INTO readings(reservoir_id, season, surface_area_sqkm, volume_mcm, water_level_m,
			fill_percentage, cloud_cover_pct, rainfall_mm, source_label, source, observed_at, recorded_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ReservoirID, string(rec.Season), r.SurfaceAreaSqKm, r.VolumeMCM, r.WaterLevelM,
		r.FillPercentage, r.CloudCoverPct, r.RainfallMm, r.SourceLabel, string(rec.Source),
		r.Timestamp.UnixNano(), rec.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert reading for %s: %w", rec.ReservoirID, err)
	}
	return nil
}

// RecentVolumes returns up to n most recent stored volumes for a reservoir,
// oldest first.
func (s *Storage) RecentVolumes(reservoirID string, n int) ([]float64, error) {
	if n < 1 {
		return []float64{}, nil
	}

	rows, err := s.db.Query(`
		SELECT volume_mcm FROM (
			SELECT id, volume_mcm, recorded_at FROM readings
			WHERE reservoir_id = ?
			ORDER BY recorded_at DESC, id DESC
			LIMIT ?
		) ORDER BY recorded_at ASC, id ASC`, reservoirID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query volumes for %s: %w", reservoirID, err)
	}
	defer rows.Close()

	volumes := make([]float64, 0, n)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan volume: %w", err)
		}
		volumes = append(volumes, v)
	}
	return volumes, rows.Err()
}

// LatestReading returns the most recently recorded reading for a reservoir
func (s *Storage) LatestReading(reservoirID string) (*ReadingRecord, error) {
	row := s.db.QueryRow(`
		SELECT season, surface_area_sqkm, volume_mcm, water_level_m, fill_percentage,
			cloud_cover_pct, rainfall_mm, source_label, source, observed_at, recorded_at
		FROM readings
		WHERE reservoir_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`, reservoirID)

	rec := ReadingRecord{ReservoirID: reservoirID}
	var season, source string
	var observedAt, recordedAt int64
	r := &rec.Reading
	err := row.Scan(&season, &r.SurfaceAreaSqKm, &r.VolumeMCM, &r.WaterLevelM, &r.FillPercentage,
		&r.CloudCoverPct, &r.RainfallMm, &r.SourceLabel, &source, &observedAt, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading for %s: %w", reservoirID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reading for %s: %w", reservoirID, err)
	}

	rec.Season = models.Season(season)
	rec.Source = models.Source(source)
	r.Timestamp = time.Unix(0, observedAt).UTC()
	rec.RecordedAt = time.Unix(0, recordedAt).UTC()
	return &rec, nil
}

// AddReport stores an analysis report
func (s *Storage) AddReport(rec *ReportRecord) error {
	if rec.ReservoirID == "" {
		return errors.New("invalid report: reservoir ID must not be empty")
	}
	if err := rec.Report.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	r := rec.Report
	_, err := s.db.Exec(`
		INSERT INTO reports(reservoir_id, risk_level, flood_probability, drought_severity,
			forecast, summary, recommendation, source, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ReservoirID, string(r.RiskLevel), r.FloodProbability, string(r.DroughtSeverity),
		r.Forecast, r.Summary, r.Recommendation, string(rec.Source), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert report for %s: %w", rec.ReservoirID, err)
	}
	return nil
}

// LatestReport returns the most recent report for a reservoir
func (s *Storage) LatestReport(reservoirID string) (*ReportRecord, error) {
	row := s.db.QueryRow(`
		SELECT risk_level, flood_probability, drought_severity, forecast, summary,
			recommendation, source, created_at
		FROM reports
		WHERE reservoir_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, reservoirID)

	rec := ReportRecord{ReservoirID: reservoirID}
	var risk, drought, source string
	var createdAt int64
	r := &rec.Report
	err := row.Scan(&risk, &r.FloodProbability, &drought, &r.Forecast, &r.Summary,
		&r.Recommendation, &source, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report for %s: %w", reservoirID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report for %s: %w", reservoirID, err)
	}

	r.RiskLevel = models.RiskLevel(risk)
	r.DroughtSeverity = models.DroughtSeverity(drought)
	rec.Source = models.Source(source)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

// RotateReadings keeps only the newest maxReadings readings per reservoir and
// returns the number of rows removed.
func (s *Storage) RotateReadings() (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM readings WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY reservoir_id ORDER BY recorded_at DESC, id DESC
				) AS rn
				FROM readings
			) WHERE rn > ?
		)`, s.maxReadings)
	if err != nil {
		return 0, fmt.Errorf("failed to rotate readings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count rotated readings: %w", err)
	}
	return n, nil
}

// CountReadings returns the number of stored readings for a reservoir
func (s *Storage) CountReadings(reservoirID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM readings WHERE reservoir_id = ?`, reservoirID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count readings for %s: %w", reservoirID, err)
	}
	return n, nil
}
