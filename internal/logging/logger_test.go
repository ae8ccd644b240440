package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vodforge/internal/config"
	"vodforge/internal/logging"
	"vodforge/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerPrefixesJobAndStage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(services.WithJobID(context.Background(), "v1"), "transcoding")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "worker")).Info("stage started", logging.String("variant", "360p"))

	line := readLog(t, logPath)
	if !strings.Contains(line, "INFO worker [v1/transcoding]: stage started") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, "variant=360p") {
		t.Fatalf("expected trailing attribute, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source location at info level, got %q", line)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with source")
	if line := readLog(t, logPath); !strings.Contains(line, "logger_test.go:") {
		t.Fatalf("expected source location, got %q", line)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRequestID(services.WithJobID(context.Background(), "job-7"), "req-1")
	logging.WithContext(ctx, logger).Warn("publish slow", logging.Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "publish slow" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry[logging.FieldJobID] != "job-7" || entry[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("missing context fields: %+v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %+v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")
	if content := readLog(t, filepath.Join(cfg.Paths.LogDir, "vodforge.log")); !strings.Contains(content, `"msg":"hello"`) {
		t.Fatalf("expected log file entry, got %q", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "lease renewal failed", "lease_renew_failed")
	line := readLog(t, logPath)
	if !strings.Contains(line, "event_type=lease_renew_failed") || !strings.Contains(line, "error_hint=") {
		t.Fatalf("expected injected fields, got %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 8) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.WithContext(nil, nil).Info("ignored") //nolint:staticcheck
}
