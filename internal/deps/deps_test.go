package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" || results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected missing binary status %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected unset binary status %#v", results[2])
	}
}

func TestCheckFFmpegReadsVersion(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	script := "#!/bin/sh\necho 'ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers'\n"
	if err := os.WriteFile(ffmpeg, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := CheckFFmpeg(context.Background(), ffmpeg)
	if !status.Available || status.Version != "6.1.1" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestCheckFFmpegBrokenBinary(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	status := CheckFFmpeg(context.Background(), ffmpeg)
	if status.Available || status.Detail == "" {
		t.Fatalf("expected broken ffmpeg to be unavailable, got %#v", status)
	}
}

func TestParseVersion(t *testing.T) {
	cases := map[string]string{
		"ffmpeg version n7.0 Copyright": "n7.0",
		"ffmpeg version 5.1.4+dfsg":     "5.1.4",
		"garbage":                       "",
	}
	for input, want := range cases {
		if got := parseVersion(input); got != want {
			t.Fatalf("parseVersion(%q) = %q, want %q", input, got, want)
		}
	}
}
