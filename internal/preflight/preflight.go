package preflight

import (
	"context"

	"vodforge/internal/config"
	"vodforge/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets are the live services to check. Nil fields are skipped.
type Targets struct {
	Storage StorageChecker
	Tracker Pinger
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.OutputDir()),
		CheckFFmpeg(ctx, cfg.Encoding.FFmpegBinary),
	}
	if targets.Storage != nil {
		results = append(results, CheckStorage(ctx, storageName(cfg), targets.Storage))
	}
	if cfg.Tracker.Enabled && targets.Tracker != nil {
		results = append(results, CheckTracker(ctx, cfg.Tracker.RedisAddr, targets.Tracker))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckFFmpeg wraps deps.CheckFFmpeg as a preflight result.
func CheckFFmpeg(ctx context.Context, binary string) Result {
	status := deps.CheckFFmpeg(ctx, binary)
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Path
	if status.Version != "" {
		detail += " (" + status.Version + ")"
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}

func storageName(cfg *config.Config) string {
	if cfg.Storage.Backend == config.StorageBackendFilesystem {
		return "Object storage (filesystem)"
	}
	return "Object storage (s3)"
}
