// Package config loads the hydrowatch configuration from a YAML file with
// environment overrides. Every variable takes the HYDROWATCH_ prefix with dots
// replaced by underscores, e.g. HYDROWATCH_ACCESS_BASE_URL.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/fallback"
	"github.com/rewired-gh/hydrowatch/internal/genai"
	"github.com/rewired-gh/hydrowatch/internal/hydroapi"
	"github.com/rewired-gh/hydrowatch/internal/models"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Access     AccessConfig      `mapstructure:"access"`
	GenAI      GenAIConfig       `mapstructure:"genai"`
	Fallback   FallbackConfig    `mapstructure:"fallback"`
	Monitor    MonitorConfig     `mapstructure:"monitor"`
	Reservoirs []ReservoirConfig `mapstructure:"reservoirs"`
	Telegram   TelegramConfig    `mapstructure:"telegram"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// AccessConfig holds the analysis backend endpoint and per-operation deadlines.
// An empty BaseURL runs the access layer offline.
type AccessConfig struct {
	BaseURL  string         `mapstructure:"base_url"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
}

// TimeoutsConfig holds one deadline per access-layer operation
type TimeoutsConfig struct {
	Satellite time.Duration `mapstructure:"satellite"`
	Forecast  time.Duration `mapstructure:"forecast"`
	Anomaly   time.Duration `mapstructure:"anomaly"`
	Report    time.Duration `mapstructure:"report"`
	Generate  time.Duration `mapstructure:"generate"`
	Feedback  time.Duration `mapstructure:"feedback"`
	Metrics   time.Duration `mapstructure:"metrics"`
}

// GenAIConfig holds the generative report tier configuration
type GenAIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// FallbackConfig holds the constants of the local approximation formulas
type FallbackConfig struct {
	SeasonFill        map[string]float64 `mapstructure:"season_fill"`
	DefaultFill       float64            `mapstructure:"default_fill"`
	FillNoise         float64            `mapstructure:"fill_noise"`
	MinFill           float64            `mapstructure:"min_fill"`
	MaxFill           float64            `mapstructure:"max_fill"`
	AreaExponent      float64            `mapstructure:"area_exponent"`
	AreaCoefficient   float64            `mapstructure:"area_coefficient"`
	LevelBaseM        float64            `mapstructure:"level_base_m"`
	LevelSpanM        float64            `mapstructure:"level_span_m"`
	MaxCloudCoverPct  float64            `mapstructure:"max_cloud_cover_pct"`
	MonsoonRainfallMm float64            `mapstructure:"monsoon_rainfall_mm"`
	DryRainfallMm     float64            `mapstructure:"dry_rainfall_mm"`
	ForecastWindow    int                `mapstructure:"forecast_window"`
	TrendMultiplier   float64            `mapstructure:"trend_multiplier"`
	StdDevRatio       float64            `mapstructure:"std_dev_ratio"`
	StdDevFloor       float64            `mapstructure:"std_dev_floor"`
	AnomalyThreshold  float64            `mapstructure:"anomaly_threshold"`
	Seed              uint64             `mapstructure:"seed"`
}

// MonitorConfig holds monitoring behavior configuration
type MonitorConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Season        string        `mapstructure:"season"` // Empty derives the season from the month
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
	Concurrency   int           `mapstructure:"concurrency"`
	HistorySize   int           `mapstructure:"history_size"`
}

// BaselineConfig holds one season's historical averages
type BaselineConfig struct {
	AvgVolumeMCM  float64 `mapstructure:"avg_volume_mcm"`
	AvgRainfallMm float64 `mapstructure:"avg_rainfall_mm"`
}

// ReservoirConfig describes one monitored reservoir
type ReservoirConfig struct {
	ID             string                    `mapstructure:"id"`
	Name           string                    `mapstructure:"name"`
	Lat            float64                   `mapstructure:"lat"`
	Lng            float64                   `mapstructure:"lng"`
	MaxCapacityMCM float64                   `mapstructure:"max_capacity_mcm"`
	Baselines      map[string]BaselineConfig `mapstructure:"baselines"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath                  string `mapstructure:"db_path"`
	MaxReadingsPerReservoir int    `mapstructure:"max_readings_per_reservoir"`
}

// ServerConfig holds the HTTP facade configuration
type ServerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("HYDROWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("genai.api_key", "HYDROWATCH_GENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind genai.api_key: %w", err)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Access defaults
	t := hydroapi.DefaultTimeouts()
	v.SetDefault("access.base_url", "http://localhost:8000")
	v.SetDefault("access.timeouts.satellite", t.Satellite)
	v.SetDefault("access.timeouts.forecast", t.Forecast)
	v.SetDefault("access.timeouts.anomaly", t.Anomaly)
	v.SetDefault("access.timeouts.report", t.Report)
	v.SetDefault("access.timeouts.generate", t.Generate)
	v.SetDefault("access.timeouts.feedback", t.Feedback)
	v.SetDefault("access.timeouts.metrics", t.Metrics)

	// GenAI defaults
	v.SetDefault("genai.enabled", false)
	v.SetDefault("genai.base_url", "")
	v.SetDefault("genai.model", genai.DefaultModel)

	// Fallback defaults
	p := fallback.DefaultParams()
	seasonFill := make(map[string]float64, len(p.SeasonFill))
	for season, f := range p.SeasonFill {
		seasonFill[strings.ToLower(string(season))] = f
	}
	v.SetDefault("fallback.season_fill", seasonFill)
	v.SetDefault("fallback.default_fill", p.DefaultFill)
	v.SetDefault("fallback.fill_noise", p.FillNoise)
	v.SetDefault("fallback.min_fill", p.MinFill)
	v.SetDefault("fallback.max_fill", p.MaxFill)
	v.SetDefault("fallback.area_exponent", p.AreaExponent)
	v.SetDefault("fallback.area_coefficient", p.AreaCoefficient)
	v.SetDefault("fallback.level_base_m", p.LevelBaseM)
	v.SetDefault("fallback.level_span_m", p.LevelSpanM)
	v.SetDefault("fallback.max_cloud_cover_pct", p.MaxCloudCoverPct)
	v.SetDefault("fallback.monsoon_rainfall_mm", p.MonsoonRainfallMm)
	v.SetDefault("fallback.dry_rainfall_mm", p.DryRainfallMm)
	v.SetDefault("fallback.forecast_window", p.ForecastWindow)
	v.SetDefault("fallback.trend_multiplier", p.TrendMultiplier)
	v.SetDefault("fallback.std_dev_ratio", p.StdDevRatio)
	v.SetDefault("fallback.std_dev_floor", p.StdDevFloor)
	v.SetDefault("fallback.anomaly_threshold", p.AnomalyThreshold)
	v.SetDefault("fallback.seed", 0)

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "15m")
	v.SetDefault("monitor.season", "")
	v.SetDefault("monitor.alert_cooldown", "6h")
	v.SetDefault("monitor.concurrency", 4)
	v.SetDefault("monitor.history_size", 12)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/hydrowatch.db")
	v.SetDefault("storage.max_readings_per_reservoir", 500)

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen_addr", ":8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Access config
	if c.Access.BaseURL != "" && !strings.HasPrefix(c.Access.BaseURL, "http://") && !strings.HasPrefix(c.Access.BaseURL, "https://") {
		return fmt.Errorf("access.base_url must be an http or https URL")
	}
	timeouts := map[string]time.Duration{
		"satellite": c.Access.Timeouts.Satellite,
		"forecast":  c.Access.Timeouts.Forecast,
		"anomaly":   c.Access.Timeouts.Anomaly,
		"report":    c.Access.Timeouts.Report,
		"generate":  c.Access.Timeouts.Generate,
		"feedback":  c.Access.Timeouts.Feedback,
		"metrics":   c.Access.Timeouts.Metrics,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("access.timeouts.%s must be positive", name)
		}
	}

	// Validate GenAI config
	if c.GenAI.Enabled {
		if c.GenAI.APIKey == "" {
			return fmt.Errorf("genai.api_key is required when genai is enabled")
		}
		if c.GenAI.Model == "" {
			return fmt.Errorf("genai.model is required when genai is enabled")
		}
	}

	// Validate Fallback config
	for label := range c.Fallback.SeasonFill {
		if _, err := models.ParseSeason(label); err != nil {
			return fmt.Errorf("fallback.season_fill: %w", err)
		}
	}
	params := c.FallbackParams()
	if err := params.Validate(); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}

	// Validate Monitor config
	if c.Monitor.PollInterval < 1*time.Minute {
		return fmt.Errorf("monitor.poll_interval must be at least 1 minute")
	}
	if c.Monitor.Season != "" {
		if _, err := models.ParseSeason(c.Monitor.Season); err != nil {
			return fmt.Errorf("monitor.season: %w", err)
		}
	}
	if c.Monitor.AlertCooldown < 0 {
		return fmt.Errorf("monitor.alert_cooldown must not be negative")
	}
	if c.Monitor.Concurrency < 1 {
		return fmt.Errorf("monitor.concurrency must be at least 1")
	}
	if c.Monitor.HistorySize < 1 {
		return fmt.Errorf("monitor.history_size must be at least 1")
	}

	// Validate Reservoirs
	if len(c.Reservoirs) == 0 {
		return fmt.Errorf("reservoirs must contain at least one reservoir")
	}
	reservoirs, err := c.ReservoirList()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(reservoirs))
	for _, r := range reservoirs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("reservoir %q: %w", r.ID, err)
		}
		if seen[r.ID] {
			return fmt.Errorf("reservoir %q is defined more than once", r.ID)
		}
		seen[r.ID] = true
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxReadingsPerReservoir < c.Monitor.HistorySize {
		return fmt.Errorf("storage.max_readings_per_reservoir must be at least monitor.history_size")
	}

	// Validate Server config
	if c.Server.Enabled && c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required when server is enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// AccessTimeouts returns the access-layer deadlines
func (c *Config) AccessTimeouts() hydroapi.Timeouts {
	t := c.Access.Timeouts
	return hydroapi.Timeouts{
		Satellite: t.Satellite,
		Forecast:  t.Forecast,
		Anomaly:   t.Anomaly,
		Report:    t.Report,
		Generate:  t.Generate,
		Feedback:  t.Feedback,
		Metrics:   t.Metrics,
	}
}

// FallbackParams converts the fallback section into formula parameters.
// Unknown season labels are skipped; Validate reports them.
func (c *Config) FallbackParams() fallback.Params {
	f := c.Fallback
	seasonFill := make(map[models.Season]float64, len(f.SeasonFill))
	for label, fill := range f.SeasonFill {
		if season, err := models.ParseSeason(label); err == nil {
			seasonFill[season] = fill
		}
	}
	return fallback.Params{
		SeasonFill:        seasonFill,
		DefaultFill:       f.DefaultFill,
		FillNoise:         f.FillNoise,
		MinFill:           f.MinFill,
		MaxFill:           f.MaxFill,
		AreaExponent:      f.AreaExponent,
		AreaCoefficient:   f.AreaCoefficient,
		LevelBaseM:        f.LevelBaseM,
		LevelSpanM:        f.LevelSpanM,
		MaxCloudCoverPct:  f.MaxCloudCoverPct,
		MonsoonRainfallMm: f.MonsoonRainfallMm,
		DryRainfallMm:     f.DryRainfallMm,
		ForecastWindow:    f.ForecastWindow,
		TrendMultiplier:   f.TrendMultiplier,
		StdDevRatio:       f.StdDevRatio,
		StdDevFloor:       f.StdDevFloor,
		AnomalyThreshold:  f.AnomalyThreshold,
	}
}

// ReservoirList converts the reservoirs section into domain reservoirs
func (c *Config) ReservoirList() ([]models.Reservoir, error) {
	out := make([]models.Reservoir, 0, len(c.Reservoirs))
	for _, rc := range c.Reservoirs {
		r := models.Reservoir{
			ID:             rc.ID,
			Name:           rc.Name,
			Lat:            rc.Lat,
			Lng:            rc.Lng,
			MaxCapacityMCM: rc.MaxCapacityMCM,
			Baselines:      make(map[models.Season]models.Baseline, len(rc.Baselines)),
		}
		for label, b := range rc.Baselines {
			season, err := models.ParseSeason(label)
			if err != nil {
				return nil, fmt.Errorf("reservoir %q baselines: %w", rc.ID, err)
			}
			r.Baselines[season] = models.Baseline{AvgVolumeMCM: b.AvgVolumeMCM, AvgRainfallMm: b.AvgRainfallMm}
		}
		out = append(out, r)
	}
	return out, nil
}

// SeasonOverride returns the configured season, or "" to derive it from the month
func (c *Config) SeasonOverride() models.Season {
	season, err := models.ParseSeason(c.Monitor.Season)
	if err != nil {
		return ""
	}
	return season
}
