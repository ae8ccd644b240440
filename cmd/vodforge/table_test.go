package main

import (
	"strings"
	"testing"
)

func TestRenderColumnsTrimsDetail(t *testing.T) {
	long := strings.Repeat("x", detailColumnWidth+40)
	out := renderColumns(jobListColumns(), [][]string{{"v1", "Failed", "Transcoding", "1", "", long}})
	if strings.Contains(out, long) {
		t.Fatalf("expected detail column to be trimmed:\n%s", out)
	}
	if !strings.Contains(out, "v1") || !strings.Contains(out, "Transcoding") {
		t.Fatalf("missing cells:\n%s", out)
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{
		"":           "-",
		"queued":     "Queued",
		"publishing": "Publishing",
		"in_flight":  "In Flight",
	}
	for input, want := range cases {
		if got := displayLabel(input); got != want {
			t.Fatalf("displayLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("State", statusError, "Failed", false)
	if !strings.Contains(line, "[ERROR] Failed") || strings.Contains(line, ansiReset) {
		t.Fatalf("unexpected line %q", line)
	}
	if stateKind("completed") != statusOK || stateKind("failed") != statusError {
		t.Fatal("unexpected state colours")
	}
}
