package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"vodforge/internal/logging"
	"vodforge/internal/rendition"
)

// Encoder produces one HLS rendition of input inside variantDir.
type Encoder interface {
	Encode(ctx context.Context, input string, spec rendition.Spec, variantDir string) (rendition.Result, error)
}

// commandContext builds the encode process. Tests replace it to observe the
// argument list without a real ffmpeg.
var commandContext = exec.CommandContext

// FFmpeg encodes renditions by invoking an ffmpeg binary.
type FFmpeg struct {
	binary string
	logger *slog.Logger
}

// NewFFmpeg constructs an encoder that runs binary (resolved through PATH
// when it is not a path).
func NewFFmpeg(binary string, logger *slog.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Encode runs one ffmpeg process. A spawn failure, a non-zero exit, or a run
// that leaves no playlist behind is reported as *EncodeFailedError. Nothing
// is retried.
func (f *FFmpeg) Encode(ctx context.Context, input string, spec rendition.Spec, variantDir string) (rendition.Result, error) {
	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		return rendition.Result{}, &EncodeFailedError{Variant: spec.Name, Err: fmt.Errorf("create output directory: %w", err)}
	}

	args := BuildArgs(input, spec, variantDir)
	logger := logging.WithContext(ctx, f.logger).With(logging.String(logging.FieldVariant, spec.Name))
	logger.Debug("ffmpeg starting", logging.String("command", f.binary), logging.Any("args", args))

	start := time.Now()
	cmd := commandContext(ctx, f.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			err = fmt.Errorf("start %s: %w", f.binary, err)
		}
		return rendition.Result{}, &EncodeFailedError{Variant: spec.Name, Err: err, Output: tail(output)}
	}

	playlist := filepath.Join(variantDir, rendition.PlaylistName)
	if _, statErr := os.Stat(playlist); statErr != nil {
		return rendition.Result{}, &EncodeFailedError{Variant: spec.Name, Err: fmt.Errorf("no playlist produced: %w", statErr), Output: tail(output)}
	}

	logger.Debug("ffmpeg finished", logging.Duration("elapsed", time.Since(start)))
	return rendition.Result{
		Name:         spec.Name,
		PlaylistPath: spec.PlaylistPath(),
		Bandwidth:    spec.Bandwidth(),
	}, nil
}
