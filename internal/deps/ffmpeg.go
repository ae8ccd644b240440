package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// CheckFFmpeg resolves the configured ffmpeg binary and records the version
// it reports. A binary that is present but fails `-version` is unavailable.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	status := checkBinary(Requirement{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Required for rendition encoding and HLS segmentation",
	})
	if !status.Available {
		return status
	}

	versionCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(versionCtx, status.Path, "-version").Output()
	if err != nil {
		status.Available = false
		status.Detail = "ffmpeg -version failed: " + err.Error()
		return status
	}
	status.Version = parseVersion(string(output))
	return status
}

// parseVersion extracts "6.1.1" from "ffmpeg version 6.1.1-3ubuntu5 Copyright ...".
func parseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			version := fields[i+1]
			if idx := strings.IndexAny(version, "-+"); idx > 0 {
				version = version[:idx]
			}
			return version
		}
	}
	return ""
}
