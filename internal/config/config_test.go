package config

import (
	"os"
	"testing"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/fallback"
	"github.com/rewired-gh/hydrowatch/internal/models"
)

const testConfig = `
access:
  base_url: "http://backend:8000"
  timeouts:
    report: 7s

genai:
  enabled: true
  api_key: "sk-test"

fallback:
  anomaly_threshold: 3.0
  seed: 7

monitor:
  poll_interval: 30m
  alert_cooldown: 2h

reservoirs:
  - id: chembarambakkam
    name: Chembarambakkam
    lat: 13.01
    lng: 80.05
    max_capacity_mcm: 103
    baselines:
      Monsoon:
        avg_volume_mcm: 80
        avg_rainfall_mm: 800
      Post-Monsoon:
        avg_volume_mcm: 90
        avg_rainfall_mm: 450
  - id: bhakra
    name: Bhakra Nangal
    lat: 31.41
    lng: 76.43
    max_capacity_mcm: 9340

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

logging:
  level: "debug"
  format: "text"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Access.BaseURL != "http://backend:8000" {
		t.Errorf("Unexpected base URL: %s", cfg.Access.BaseURL)
	}
	if cfg.Access.Timeouts.Report != 7*time.Second {
		t.Errorf("Expected report timeout 7s, got %v", cfg.Access.Timeouts.Report)
	}
	if cfg.Access.Timeouts.Satellite != 3*time.Second {
		t.Errorf("Expected default satellite timeout 3s, got %v", cfg.Access.Timeouts.Satellite)
	}
	if cfg.GenAI.Model != "gpt-4o" {
		t.Errorf("Expected default model gpt-4o, got %s", cfg.GenAI.Model)
	}
	if cfg.Monitor.PollInterval != 30*time.Minute {
		t.Errorf("Unexpected poll interval: %v", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.Concurrency != 4 {
		t.Errorf("Expected default concurrency 4, got %d", cfg.Monitor.Concurrency)
	}
	if cfg.Fallback.Seed != 7 {
		t.Errorf("Expected seed 7, got %d", cfg.Fallback.Seed)
	}
	if len(cfg.Reservoirs) != 2 {
		t.Fatalf("Expected 2 reservoirs, got %d", len(cfg.Reservoirs))
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestFallbackParams(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	p := cfg.FallbackParams()
	want := fallback.DefaultParams()
	want.AnomalyThreshold = 3.0

	if p.AnomalyThreshold != 3.0 {
		t.Errorf("Expected threshold 3.0, got %f", p.AnomalyThreshold)
	}
	if p.ForecastWindow != want.ForecastWindow || p.MaxFill != want.MaxFill || p.AreaExponent != want.AreaExponent {
		t.Errorf("Expected unset params to keep defaults, got %+v", p)
	}
	for _, season := range models.Seasons {
		if p.SeasonFill[season] != want.SeasonFill[season] {
			t.Errorf("Season %s: expected fill %f, got %f", season, want.SeasonFill[season], p.SeasonFill[season])
		}
	}
}

func TestReservoirList(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	reservoirs, err := cfg.ReservoirList()
	if err != nil {
		t.Fatalf("ReservoirList failed: %v", err)
	}

	r := reservoirs[0]
	if r.ID != "chembarambakkam" || r.MaxCapacityMCM != 103 {
		t.Errorf("Unexpected reservoir %+v", r)
	}
	if b := r.Baseline(models.SeasonPostMonsoon); b.AvgVolumeMCM != 90 || b.AvgRainfallMm != 450 {
		t.Errorf("Unexpected Post-Monsoon baseline %+v", b)
	}
	if len(reservoirs[1].Baselines) != 0 {
		t.Errorf("Expected no baselines for bhakra, got %v", reservoirs[1].Baselines)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HYDROWATCH_ACCESS_BASE_URL", "https://override:9000")
	t.Setenv("HYDROWATCH_GENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	content := `
reservoirs:
  - id: a
    name: A
    max_capacity_mcm: 10
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Access.BaseURL != "https://override:9000" {
		t.Errorf("Expected env override, got %s", cfg.Access.BaseURL)
	}
	if cfg.GenAI.APIKey != "sk-from-env" {
		t.Errorf("Expected OPENAI_API_KEY fallback, got %q", cfg.GenAI.APIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestSeasonOverride(t *testing.T) {
	cfg := &Config{Monitor: MonitorConfig{Season: "monsoon"}}
	if got := cfg.SeasonOverride(); got != models.SeasonMonsoon {
		t.Errorf("Expected Monsoon, got %q", got)
	}
	cfg.Monitor.Season = ""
	if got := cfg.SeasonOverride(); got != "" {
		t.Errorf("Expected no override, got %q", got)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"offline base url", func(c *Config) { c.Access.BaseURL = "" }, false},
		{"bad base url", func(c *Config) { c.Access.BaseURL = "ftp://x" }, true},
		{"zero timeout", func(c *Config) { c.Access.Timeouts.Anomaly = 0 }, true},
		{"genai without key", func(c *Config) { c.GenAI.APIKey = "" }, true},
		{"genai disabled without key", func(c *Config) { c.GenAI.Enabled = false; c.GenAI.APIKey = "" }, false},
		{"unknown season fill", func(c *Config) { c.Fallback.SeasonFill["spring"] = 0.5 }, true},
		{"inverted fill bounds", func(c *Config) { c.Fallback.MinFill = 0.9; c.Fallback.MaxFill = 0.2 }, true},
		{"zero threshold", func(c *Config) { c.Fallback.AnomalyThreshold = 0 }, true},
		{"short poll interval", func(c *Config) { c.Monitor.PollInterval = 30 * time.Second }, true},
		{"unknown season", func(c *Config) { c.Monitor.Season = "Spring" }, true},
		{"zero concurrency", func(c *Config) { c.Monitor.Concurrency = 0 }, true},
		{"no reservoirs", func(c *Config) { c.Reservoirs = nil }, true},
		{"duplicate reservoir", func(c *Config) { c.Reservoirs = append(c.Reservoirs, c.Reservoirs[0]) }, true},
		{"zero capacity", func(c *Config) { c.Reservoirs[1].MaxCapacityMCM = 0 }, true},
		{"bad baseline season", func(c *Config) {
			c.Reservoirs[1].Baselines = map[string]BaselineConfig{"dry": {AvgVolumeMCM: 1}}
		}, true},
		{"missing telegram token when enabled", func(c *Config) { c.Telegram.BotToken = "" }, true},
		{"telegram disabled without token", func(c *Config) { c.Telegram.Enabled = false; c.Telegram.BotToken = "" }, false},
		{"history larger than retention", func(c *Config) { c.Storage.MaxReadingsPerReservoir = 5 }, true},
		{"server without addr", func(c *Config) { c.Server.ListenAddr = "" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
