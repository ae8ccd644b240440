package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"vodforge/internal/logging"
	"vodforge/internal/queue"
	"vodforge/internal/rendition"
	"vodforge/internal/services"
)

// JobStore abstracts the queue operations the service needs.
type JobStore interface {
	Enqueue(ctx context.Context, job queue.NewJob) (queue.EnqueueResult, error)
	State(ctx context.Context, id string) (queue.StateInfo, error)
	Get(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, states ...queue.State) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.State]int, error)
}

// StatusSink is told about accepted submissions.
type StatusSink interface {
	Report(ctx context.Context, info queue.StateInfo) error
}

// Service exposes job submission and status queries.
type Service struct {
	store    JobStore
	variants []rendition.Spec
	status   StatusSink
	logger   *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithStatusSink mirrors accepted submissions to sink.
func WithStatusSink(sink StatusSink) ServiceOption {
	return func(s *Service) {
		s.status = sink
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logging.NewComponentLogger(logger, "api")
	}
}

// NewService builds a Service. defaults is the rendition ladder used when a
// submission does not name its own.
func NewService(store JobStore, defaults []rendition.Spec, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		variants: append([]rendition.Spec(nil), defaults...),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues a job. An empty id gets a generated UUID. Submitting an id
// that is still queued or active is a no-op reported as SubmitDuplicate.
func (s *Service) Submit(ctx context.Context, id, input string, variants ...rendition.Spec) (SubmitResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "", "submit", "input location is required", nil)
	}
	if len(variants) == 0 {
		variants = s.variants
	}

	res, err := s.store.Enqueue(ctx, queue.NewJob{ID: id, InputLocation: input, Variants: variants})
	if err != nil {
		if errors.Is(err, queue.ErrInvalidJob) {
			return SubmitResult{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		return SubmitResult{}, err
	}
	if res.Duplicate {
		s.logger.Info("duplicate submission ignored",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldEventType, "job_duplicate"),
		)
		return SubmitResult{ID: id, Outcome: SubmitDuplicate}, nil
	}

	s.logger.Info("job queued",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String("input", input),
		logging.Bool("requeued", res.Requeued),
	)
	s.reportQueued(ctx, id)
	return SubmitResult{ID: id, Outcome: SubmitAccepted, Requeued: res.Requeued}, nil
}

// reportQueued mirrors a fresh submission. A worker may claim the job as soon
// as Enqueue commits; once it has, the worker owns the mirror and the queued
// report is skipped so it cannot overwrite a later stage.
func (s *Service) reportQueued(ctx context.Context, id string) {
	if s.status == nil {
		return
	}
	info, err := s.store.State(ctx, id)
	if err != nil || info.State != queue.StateQueued {
		return
	}
	if err := s.status.Report(ctx, info); err != nil {
		logging.WarnWithContext(s.logger, "status mirror update failed", "status_report_failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
		)
	}
}

// Status returns the current state of id. Unknown ids yield an error matching
// services.ErrNotFound and queue.ErrNotFound.
func (s *Service) Status(ctx context.Context, id string) (JobStatus, error) {
	info, err := s.store.State(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return JobStatus{}, fmt.Errorf("%w: %w", services.ErrNotFound, err)
		}
		return JobStatus{}, err
	}
	return FromStateInfo(info), nil
}

// Describe returns the full record of id, or nil when unknown.
func (s *Service) Describe(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// List returns jobs filtered by state, in submission order.
func (s *Service) List(ctx context.Context, states ...queue.State) ([]Job, error) {
	jobs, err := s.store.List(ctx, states...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Stats returns job counts keyed by state.
func (s *Service) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}
