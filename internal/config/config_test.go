package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "peakline/internal/errors"
	"peakline/internal/feed"
)

func TestLoad_WritesTemplateOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(ConfigPath(dir)); err != nil {
		t.Errorf("expected config template to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".env.example")); err != nil {
		t.Errorf("expected env template to be written: %v", err)
	}

	if cfg.Analysis.Window != 3 || cfg.Analysis.MinBars != 30 {
		t.Errorf("unexpected analysis defaults %+v", cfg.Analysis)
	}
	if cfg.Scan.Workers != 4 || cfg.Data.LookbackDays != 365 {
		t.Errorf("unexpected defaults %+v %+v", cfg.Scan, cfg.Data)
	}
	if cfg.Data.DBPath != filepath.Join(dir, "peakline.db") {
		t.Errorf("expected db path anchored at config dir, got %s", cfg.Data.DBPath)
	}
	if cfg.MaxAgeDuration() != 12*time.Hour || cfg.GranularityValue() != feed.Daily {
		t.Errorf("unexpected data settings %+v", cfg.Data)
	}

	// The written template loads back to the same values.
	again, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Schedule.Cron != cfg.Schedule.Cron || again.Data.Granularity != "daily" {
		t.Errorf("template round trip changed values: %+v", again)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[analysis]
window = 5

[data]
csv_dir = "/srv/bars"
granularity = "weekly"

[scan]
workers = 8
symbols = ["600519", "000001"]
`
	if err := os.WriteFile(ConfigPath(dir), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.Window != 5 || cfg.Scan.Workers != 8 || len(cfg.Scan.Symbols) != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Data.CSVDir != "/srv/bars" || cfg.GranularityValue() != feed.Weekly {
		t.Errorf("unexpected data config %+v", cfg.Data)
	}
	if cfg.Analysis.MinBars != 30 {
		t.Errorf("expected unset keys to keep defaults, got %d", cfg.Analysis.MinBars)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PEAKLINE_DB_PATH", "/tmp/other.db")
	t.Setenv("PEAKLINE_WINDOW", "4")
	t.Setenv("PEAKLINE_WEBHOOK_URL", "http://127.0.0.1:9/hook")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.DBPath != "/tmp/other.db" || cfg.Analysis.Window != 4 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if !cfg.Notify.Webhook.Enabled || cfg.Notify.Webhook.URL != "http://127.0.0.1:9/hook" {
		t.Errorf("webhook override not applied: %+v", cfg.Notify.Webhook)
	}

	t.Setenv("PEAKLINE_WINDOW", "three")
	if _, err := Load(dir); !errors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	os.Unsetenv("PEAKLINE_LOG_LEVEL")
	t.Cleanup(func() { os.Unsetenv("PEAKLINE_LOG_LEVEL") })

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PEAKLINE_LOG_LEVEL=debug\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected .env level debug, got %s", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Analysis: AnalysisConfig{Window: 3, MinBars: 30},
			Data:     DataConfig{Granularity: "daily", LookbackDays: 365, MaxAge: "12h"},
			Scan:     ScanConfig{Workers: 4},
			Schedule: ScheduleConfig{Cron: "30 15 * * 1-5"},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Analysis.Window = 0 }},
		{"hourly granularity", func(c *Config) { c.Data.Granularity = "hourly" }},
		{"no workers", func(c *Config) { c.Scan.Workers = 0 }},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "every day" }},
		{"bad max age", func(c *Config) { c.Data.MaxAge = "soon" }},
		{"no lookback", func(c *Config) { c.Data.LookbackDays = 0 }},
		{"unknown notify level", func(c *Config) { c.Notify.Level = "loud" }},
		{"webhook without url", func(c *Config) { c.Notify.Webhook.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}
