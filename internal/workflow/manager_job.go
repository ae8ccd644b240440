package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vodforge/internal/encoding"
	"vodforge/internal/logging"
	"vodforge/internal/manifest"
	"vodforge/internal/queue"
	"vodforge/internal/rendition"
	"vodforge/internal/services"
)

const lockRetryDelay = 100 * time.Millisecond

// processJob runs a claimed job to a terminal state. The job keeps running
// when ctx is cancelled.
func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	ctx = context.WithoutCancel(ctx)
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	m.trackActive(job.ID, queue.StageClaimed)
	defer m.untrackActive(job.ID)

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	var heartbeatWG sync.WaitGroup
	heartbeatWG.Add(1)
	go m.leases.StartLoop(heartbeatCtx, &heartbeatWG, job.ID, m.owner)
	defer func() {
		stopHeartbeat()
		heartbeatWG.Wait()
	}()

	started := time.Now()
	logger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_claimed"),
		logging.String("input", job.InputLocation),
		logging.Int("variants", len(job.Variants)),
		logging.Int("attempt", job.Attempts),
	)
	m.report(ctx, logger, job.Info())

	locator, stage, err := m.runPipeline(ctx, logger, job)
	if err != nil {
		return m.failJob(ctx, logger, job, stage, err)
	}

	if err := m.store.Complete(ctx, job.ID, m.owner, locator); err != nil {
		m.setLastError(err)
		logger.Error("failed to record job completion",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_complete_persist_failed"),
		)
		return fmt.Errorf("job %s: complete: %w", job.ID, err)
	}
	job.State = queue.StateCompleted
	job.Stage = queue.StageCompleted
	job.Locator = locator
	info := job.Info()
	m.setLastJob(info)
	m.report(ctx, logger, info)
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("locator", locator),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// runPipeline returns the locator on success, or the stage that failed and
// its error.
func (m *Manager) runPipeline(ctx context.Context, logger *slog.Logger, job *queue.Job) (string, queue.Stage, error) {
	outputRoot := m.cfg.JobOutputRoot(job.ID)

	if len(job.Variants) == 0 {
		return "", queue.StageClaimed, services.Wrap(services.ErrValidation, string(queue.StageClaimed), "validate", "job has no renditions", nil)
	}
	unlock, err := m.prepareOutput(ctx, outputRoot)
	if err != nil {
		return "", queue.StageClaimed, err
	}
	defer unlock()

	if err := m.advance(ctx, logger, job, queue.StageTranscoding); err != nil {
		return "", queue.StageTranscoding, err
	}
	results, err := m.transcode(ctx, logger, job, outputRoot)
	if err != nil {
		return "", queue.StageTranscoding, err
	}

	if err := m.advance(ctx, logger, job, queue.StageManifesting); err != nil {
		return "", queue.StageManifesting, err
	}
	master, err := manifest.Build(job.Variants, results)
	if err != nil {
		return "", queue.StageManifesting, err
	}
	manifestPath, err := manifest.Write(outputRoot, master)
	if err != nil {
		return "", queue.StageManifesting, err
	}
	logger.Info("master playlist written",
		logging.String(logging.FieldEventType, "manifest_written"),
		logging.String("path", manifestPath),
		logging.Int("streams", len(master.Entries)),
	)

	if err := m.advance(ctx, logger, job, queue.StagePublishing); err != nil {
		return "", queue.StagePublishing, err
	}
	locator, err := m.deps.Publisher.Publish(ctx, outputRoot, m.cfg.RemotePrefix(job.ID))
	if err != nil {
		return "", queue.StagePublishing, err
	}
	return locator, queue.StagePublishing, nil
}

func (m *Manager) transcode(ctx context.Context, logger *slog.Logger, job *queue.Job, outputRoot string) ([]rendition.Result, error) {
	progress := func(spec rendition.Spec, err error, done, total int) {
		attrs := []logging.Attr{
			logging.String(logging.FieldVariant, spec.Name),
			logging.Int("done", done),
			logging.Int("total", total),
		}
		if err != nil {
			logger.Warn("rendition failed", logging.Args(append(attrs,
				logging.Error(err),
				logging.String(logging.FieldEventType, "rendition_failed"),
			)...)...)
			return
		}
		logger.Info("rendition finished", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "rendition_finished"),
		)...)...)
	}
	coordinator := encoding.NewCoordinator(m.deps.Encoder, m.cfg.Encoding.MaxParallel, logger, encoding.WithProgress(progress))
	return coordinator.RunAll(ctx, job.InputLocation, job.Variants, outputRoot)
}

// prepareOutput takes the output directory lock and empties the directory.
func (m *Manager) prepareOutput(ctx context.Context, outputRoot string) (func(), error) {
	lock := flock.New(outputRoot + ".lock")
	if err := os.MkdirAll(m.cfg.OutputDir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, string(queue.StageClaimed), "prepare output", "create output directory", err)
	}
	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, services.Wrap(services.ErrTimeout, string(queue.StageClaimed), "prepare output", fmt.Sprintf("lock %s", outputRoot), err)
	}
	unlock := func() { _ = lock.Unlock() }

	if err := os.RemoveAll(outputRoot); err != nil {
		unlock()
		return nil, services.Wrap(services.ErrConfiguration, string(queue.StageClaimed), "prepare output", "clear output directory", err)
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		unlock()
		return nil, services.Wrap(services.ErrConfiguration, string(queue.StageClaimed), "prepare output", "create output directory", err)
	}
	return unlock, nil
}

// advance persists and reports a stage transition.
func (m *Manager) advance(ctx context.Context, logger *slog.Logger, job *queue.Job, stage queue.Stage) error {
	if err := m.store.SetStage(ctx, job.ID, m.owner, stage); err != nil {
		return err
	}
	job.Stage = stage
	m.trackActive(job.ID, stage)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, string(stage)),
	)
	m.report(ctx, logger, job.Info())
	return nil
}

func (m *Manager) report(ctx context.Context, logger *slog.Logger, info queue.StateInfo) {
	if m.deps.Status == nil {
		return
	}
	if err := m.deps.Status.Report(ctx, info); err != nil {
		logging.WarnWithContext(logger, "status mirror update failed", "status_report_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check tracker.redis_addr; queue state is unaffected"),
		)
	}
}
