// Package config provides configuration management for peakline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	apperrors "peakline/internal/errors"
	"peakline/internal/feed"
)

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis" json:"analysis" yaml:"analysis"`
	Data     DataConfig     `mapstructure:"data" json:"data" yaml:"data"`
	Scan     ScanConfig     `mapstructure:"scan" json:"scan" yaml:"scan"`
	Schedule ScheduleConfig `mapstructure:"schedule" json:"schedule" yaml:"schedule"`
	Notify   NotifyConfig   `mapstructure:"notify" json:"notify" yaml:"notify"`
	Log      LogConfig      `mapstructure:"log" json:"log" yaml:"log"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-" json:"dir" yaml:"dir"`
}

// AnalysisConfig holds signal engine parameters.
type AnalysisConfig struct {
	Window  int `mapstructure:"window" json:"window" yaml:"window"`
	MinBars int `mapstructure:"min_bars" json:"min_bars" yaml:"min_bars"`
}

// DataConfig holds price history settings.
type DataConfig struct {
	CSVDir       string `mapstructure:"csv_dir" json:"csv_dir" yaml:"csv_dir"`
	DBPath       string `mapstructure:"db_path" json:"db_path" yaml:"db_path"`
	Granularity  string `mapstructure:"granularity" json:"granularity" yaml:"granularity"`
	LookbackDays int    `mapstructure:"lookback_days" json:"lookback_days" yaml:"lookback_days"`
	MaxAge       string `mapstructure:"max_age" json:"max_age" yaml:"max_age"` // e.g. "12h"
}

// ScanConfig holds batch scan settings.
type ScanConfig struct {
	Workers int      `mapstructure:"workers" json:"workers" yaml:"workers"`
	Symbols []string `mapstructure:"symbols" json:"symbols" yaml:"symbols"`
}

// ScheduleConfig holds the watch schedule.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron" json:"cron" yaml:"cron"`
}

// NotifyConfig holds watch notification settings.
type NotifyConfig struct {
	Level   string        `mapstructure:"level" json:"level" yaml:"level"` // all, signals_only, errors_only
	Bell    bool          `mapstructure:"bell" json:"bell" yaml:"bell"`
	Webhook WebhookConfig `mapstructure:"webhook" json:"webhook" yaml:"webhook"`
}

// WebhookConfig holds webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" json:"url" yaml:"url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level" json:"level" yaml:"level"`
	File       bool   `mapstructure:"file" json:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/peakline"
	}
	return filepath.Join(home, ".config", "peakline")
}

// Load loads configuration from the specified directory, writing a template
// config.toml on first run. If configDir is empty, uses the default config
// directory. An optional .env in the directory is loaded before environment
// overrides are applied.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	envPath := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.window", 3)
	v.SetDefault("analysis.min_bars", 30)
	v.SetDefault("data.csv_dir", "data")
	v.SetDefault("data.db_path", "peakline.db")
	v.SetDefault("data.granularity", "daily")
	v.SetDefault("data.lookback_days", 365)
	v.SetDefault("data.max_age", "12h")
	v.SetDefault("scan.workers", 4)
	v.SetDefault("scan.symbols", []string{})
	v.SetDefault("schedule.cron", "30 15 * * 1-5")
	v.SetDefault("notify.level", "all")
	v.SetDefault("notify.bell", false)
	v.SetDefault("notify.webhook.enabled", false)
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", true)
	v.SetDefault("log.max_size", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, create template and fall back to defaults
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PEAKLINE_DATA_DIR"); v != "" {
		cfg.Data.CSVDir = v
	}
	if v := os.Getenv("PEAKLINE_DB_PATH"); v != "" {
		cfg.Data.DBPath = v
	}
	if v := os.Getenv("PEAKLINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PEAKLINE_WEBHOOK_URL"); v != "" {
		cfg.Notify.Webhook.URL = v
		cfg.Notify.Webhook.Enabled = true
	}
	if v := os.Getenv("PEAKLINE_WINDOW"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return apperrors.NewValidationError("PEAKLINE_WINDOW", v, "must be an integer")
		}
		cfg.Analysis.Window = n
	}
	return nil
}

// resolvePaths anchors relative data paths at the config directory.
func (c *Config) resolvePaths() {
	if c.Data.CSVDir != "" && !filepath.IsAbs(c.Data.CSVDir) {
		c.Data.CSVDir = filepath.Join(c.Dir, c.Data.CSVDir)
	}
	if c.Data.DBPath != "" && !filepath.IsAbs(c.Data.DBPath) {
		c.Data.DBPath = filepath.Join(c.Dir, c.Data.DBPath)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Analysis.Window < 1 {
		return invalid("analysis.window", c.Analysis.Window, "must be at least 1")
	}
	if c.Analysis.MinBars < 0 {
		return invalid("analysis.min_bars", c.Analysis.MinBars, "must be non-negative")
	}
	if _, err := feed.ParseGranularity(c.Data.Granularity); err != nil {
		return invalid("data.granularity", c.Data.Granularity, "must be daily, weekly or monthly")
	}
	if c.Data.LookbackDays < 1 {
		return invalid("data.lookback_days", c.Data.LookbackDays, "must be at least 1")
	}
	if c.Data.MaxAge != "" {
		if _, err := time.ParseDuration(c.Data.MaxAge); err != nil {
			return invalid("data.max_age", c.Data.MaxAge, "must be a duration such as 12h")
		}
	}
	if c.Scan.Workers < 1 {
		return invalid("scan.workers", c.Scan.Workers, "must be at least 1")
	}
	switch c.Notify.Level {
	case "", "all", "signals_only", "errors_only":
	default:
		return invalid("notify.level", c.Notify.Level, "must be all, signals_only or errors_only")
	}
	if c.Notify.Webhook.Enabled && c.Notify.Webhook.URL == "" {
		return invalid("notify.webhook.url", c.Notify.Webhook.URL, "is required when the webhook is enabled")
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return invalid("schedule.cron", c.Schedule.Cron, err.Error())
		}
	}
	return nil
}

func invalid(field string, value interface{}, msg string) error {
	return fmt.Errorf("%w: %w", apperrors.ErrConfigInvalid, apperrors.NewValidationError(field, value, msg))
}

// MaxAgeDuration returns how long cached candles stay fresh.
func (c *Config) MaxAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.Data.MaxAge)
	if err != nil {
		return 0
	}
	return d
}

// GranularityValue returns the parsed default granularity.
func (c *Config) GranularityValue() feed.Granularity {
	g, err := feed.ParseGranularity(c.Data.Granularity)
	if err != nil {
		return feed.Daily
	}
	return g
}

// LogFilePath returns the rotated log file location inside the config directory.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Dir, "logs", "peakline.log")
}
