package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vodforge/internal/logging"
	"vodforge/internal/queue"
	"vodforge/internal/services"
)

// failJob records a terminal failure and returns the wrapped stage error.
func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, stage queue.Stage, stageErr error) error {
	wrapped := fmt.Errorf("job %s: %s: %w", job.ID, stage, stageErr)
	m.setLastError(wrapped)

	if errors.Is(stageErr, queue.ErrLeaseLost) {
		logger.Warn("job abandoned after losing its lease",
			logging.String(logging.FieldStage, string(stage)),
			logging.String(logging.FieldEventType, "job_abandoned"),
			logging.Alert("lease_lost"),
		)
		return wrapped
	}

	message := wrapped.Error()
	logger.Error("job failed",
		logging.String(logging.FieldStage, string(stage)),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
		logging.Alert("job_failure"),
	)

	if err := m.store.Fail(ctx, job.ID, m.owner, message); err != nil {
		if errors.Is(err, queue.ErrLeaseLost) {
			logger.Warn("failure not recorded; lease already lost", logging.Error(err))
		} else {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
		return wrapped
	}

	job.State = queue.StateFailed
	job.Stage = queue.StageFailed
	job.ErrorMessage = message
	job.Locator = ""
	info := job.Info()
	m.setLastJob(info)
	m.report(ctx, logger, info)
	return wrapped
}
