package encoding

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"vodforge/internal/logging"
	"vodforge/internal/rendition"
)

// ProgressFunc is told about each finished rendition as it completes.
type ProgressFunc func(spec rendition.Spec, err error, done, total int)

// Coordinator runs a job's renditions concurrently.
type Coordinator struct {
	encoder     Encoder
	maxParallel int
	logger      *slog.Logger
	progress    ProgressFunc
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithProgress registers a per-rendition completion callback. It may be
// called from several goroutines at once.
func WithProgress(fn ProgressFunc) CoordinatorOption {
	return func(c *Coordinator) {
		c.progress = fn
	}
}

// NewCoordinator builds a fan-out coordinator. maxParallel bounds concurrent
// encodes; zero or less runs every rendition at once.
func NewCoordinator(encoder Encoder, maxParallel int, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		encoder:     encoder,
		maxParallel: maxParallel,
		logger:      logging.NewComponentLogger(logger, "encoding"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll encodes every spec into outputRoot/<name>. Results come back in spec
// order regardless of completion order. A failure does not cancel the other
// renditions: once all have finished, a single failure is returned as its
// *EncodeFailedError and several as *AggregateEncodeFailedError.
func (c *Coordinator) RunAll(ctx context.Context, input string, specs []rendition.Spec, outputRoot string) ([]rendition.Result, error) {
	if len(specs) == 0 {
		return nil, errors.New("no renditions to encode")
	}

	results := make([]rendition.Result, len(specs))
	failures := make([]*EncodeFailedError, len(specs))
	var done atomic.Int32

	limit := c.maxParallel
	if limit <= 0 || limit > len(specs) {
		limit = len(specs)
	}
	var group errgroup.Group
	group.SetLimit(limit)

	logger := logging.WithContext(ctx, c.logger)
	for i, spec := range specs {
		group.Go(func() error {
			start := time.Now()
			variantLogger := logger.With(logging.String(logging.FieldVariant, spec.Name))
			variantLogger.Info("rendition encode started",
				logging.String("frame_size", spec.FrameSize()),
				logging.String("bitrate", spec.Bitrate()),
			)

			result, err := c.encoder.Encode(ctx, input, spec, filepath.Join(outputRoot, spec.Name))
			if err != nil {
				var failed *EncodeFailedError
				if !errors.As(err, &failed) {
					failed = &EncodeFailedError{Variant: spec.Name, Err: err}
				}
				failures[i] = failed
				logging.WarnWithContext(variantLogger, "rendition encode failed", "encode_failed",
					logging.Error(failed),
					logging.Duration("elapsed", time.Since(start)),
					logging.String(logging.FieldErrorHint, "check the input file and ffmpeg output"),
				)
			} else {
				results[i] = result
				variantLogger.Info("rendition encode completed", logging.Duration("elapsed", time.Since(start)))
			}
			if c.progress != nil {
				c.progress(spec, err, int(done.Add(1)), len(specs))
			}
			return nil
		})
	}
	_ = group.Wait()

	var collected []*EncodeFailedError
	for _, failed := range failures {
		if failed != nil {
			collected = append(collected, failed)
		}
	}
	switch len(collected) {
	case 0:
		return results, nil
	case 1:
		return nil, collected[0]
	default:
		return nil, &AggregateEncodeFailedError{Failures: collected}
	}
}
