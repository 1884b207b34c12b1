package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), logger)

	l := FromContext(ctx)
	l.Info().Msg("hello")
	if buf.Len() == 0 {
		t.Error("expected the context logger to write")
	}

	// A bare context yields a no-op logger.
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	if nop.GetLevel() != zerolog.Disabled {
		t.Errorf("expected a disabled logger, got level %v", nop.GetLevel())
	}
}

func TestLogAdviceFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	runID := NewRunID()
	if _, err := uuid.Parse(runID); err != nil {
		t.Fatalf("run id %q is not a UUID: %v", runID, err)
	}
	logger := WithRunID(zerolog.New(&buf), runID)

	LogAdvice(logger, "600519", "BUY", 75, 0.75, "uptrend")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	if entry["event"] != "advice" || entry["symbol"] != "600519" || entry["action"] != "BUY" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["run_id"] != runID || entry["position_pct"] != float64(75) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestLogImportError(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	LogImport(zerolog.New(&buf), "600519", "/tmp/600519.csv", 0, time.Second, errors.New("bad row"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if entry["error"] != "bad row" || entry["message"] != "Import failed" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewLoggerWithConfig_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", Console: true, Output: &buf})
	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	if bytes.Contains(buf.Bytes(), []byte("quiet")) || !bytes.Contains(buf.Bytes(), []byte("loud")) {
		t.Errorf("unexpected console output %q", buf.String())
	}
}

func TestLogScanLevel(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	tests := []struct {
		name   string
		failed int
		level  string
	}{
		{"clean", 0, "info"},
		{"with failures", 2, "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			LogScan(zerolog.New(&buf), 5, 2, 1, tt.failed, time.Second)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("invalid log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.level || entry["event"] != "scan" {
				t.Errorf("unexpected entry %v", entry)
			}
			if entry["buy"] != float64(2) || entry["failed"] != float64(tt.failed) {
				t.Errorf("unexpected counts %v", entry)
			}
		})
	}
}

func TestLogSignalChange_FirstSighting(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	LogSignalChange(zerolog.New(&buf), "600519", "", "BUY", 75)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	if entry["previous"] != "none" || entry["action"] != "BUY" || entry["position_pct"] != float64(75) {
		t.Errorf("unexpected entry %v", entry)
	}
}
