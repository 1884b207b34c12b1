package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# peakline configuration

[analysis]
# Bars on each side that must be exceeded to confirm a peak or valley
window = 3
# Minimum bars before oscillator analysis runs (never below 30)
min_bars = 30

[data]
# Directory of <symbol>.csv bar files (date,open,high,low,close,volume)
csv_dir = "data"
# SQLite candle cache
db_path = "peakline.db"
# Default bar period: daily, weekly, monthly
granularity = "daily"
# Days of history loaded per symbol
lookback_days = 365
# How long cached candles are served before reloading
max_age = "12h"

[scan]
# Symbols advised concurrently
workers = 4
# Symbols used by scan and watch when none are given
symbols = []

[schedule]
# Cron expression for watch (minute hour day month weekday)
cron = "30 15 * * 1-5"

[notify]
# Which watch events are sent: all, signals_only, errors_only
level = "all"
# Ring the terminal bell on signal changes
bell = false

[notify.webhook]
# POST a JSON payload for each event
enabled = false
url = ""

[log]
# debug, info, warn, error
level = "info"
# Write a rotated log file under the config directory
file = true
max_size = 50
max_backups = 5
max_age = 30
`

const envTemplate = `# Environment overrides for peakline
# PEAKLINE_DATA_DIR=
# PEAKLINE_DB_PATH=
# PEAKLINE_LOG_LEVEL=
# PEAKLINE_WINDOW=
# PEAKLINE_WEBHOOK_URL=
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	envPath := filepath.Join(configDir, ".env.example")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(envTemplate), 0600); err != nil {
			return fmt.Errorf("writing env template: %w", err)
		}
	}

	return nil
}

// ConfigPath returns the config.toml path inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}
