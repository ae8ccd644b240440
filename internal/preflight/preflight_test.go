package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vodforge/internal/config"
)

type checkerStub struct{ err error }

func (c checkerStub) Check(context.Context) error { return c.err }

func (c checkerStub) Ping(context.Context) error { return c.err }

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if res := CheckDirectoryAccess("Work", dir); !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}
	if res := CheckDirectoryAccess("Work", filepath.Join(dir, "missing")); res.Passed || !strings.Contains(res.Detail, "does not exist") {
		t.Fatalf("expected missing directory failure, got %+v", res)
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if res := CheckDirectoryAccess("Work", file); res.Passed || !strings.Contains(res.Detail, "not a directory") {
		t.Fatalf("expected not-a-directory failure, got %+v", res)
	}
}

func TestRunAllReportsEachTarget(t *testing.T) {
	base := t.TempDir()
	ffmpeg := filepath.Join(base, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\necho 'ffmpeg version 7.1 Copyright'\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	cfg := config.Default()
	cfg.Paths.WorkDir = base
	cfg.Encoding.FFmpegBinary = ffmpeg
	cfg.Tracker.Enabled = true
	cfg.Tracker.RedisAddr = "127.0.0.1:6379"
	if err := os.MkdirAll(cfg.OutputDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	results := RunAll(context.Background(), &cfg, Targets{
		Storage: checkerStub{},
		Tracker: checkerStub{err: errors.New("connection refused")},
	})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %+v", results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Redis tracker" || !strings.Contains(failed[0].Detail, "connection refused") {
		t.Fatalf("expected only the tracker to fail, got %+v", failed)
	}
	if !strings.Contains(results[2].Detail, "(7.1)") {
		t.Fatalf("expected ffmpeg version in detail, got %+v", results[2])
	}
}

func TestRunAllSkipsUnconfiguredServices(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Encoding.FFmpegBinary = "clearly-not-present-ffmpeg"

	results := RunAll(context.Background(), &cfg, Targets{Tracker: checkerStub{}})
	if len(results) != 3 {
		t.Fatalf("expected directory and ffmpeg checks only, got %+v", results)
	}
	if results[2].Passed {
		t.Fatalf("expected missing ffmpeg to fail, got %+v", results[2])
	}
}
