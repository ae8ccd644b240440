// Package logging assembles structured slog loggers and formatting helpers used
// across vodforge.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with job IDs, pipeline stages, and
// correlation IDs. NewNop gives tests and optional wiring a logger that cannot
// fail.
package logging
