package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vodforge/internal/logging"
)

// Start launches worker.concurrency processing loops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	slots := m.cfg.Worker.Concurrency
	if slots <= 0 {
		slots = 1
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(slots)
	m.mu.Unlock()

	m.logger.Info("worker ready",
		logging.String(logging.FieldEventType, "worker_ready"),
		logging.Int("slots", slots),
		logging.Duration("poll_interval", m.pollInterval),
	)
	for slot := range slots {
		go m.runSlot(runCtx, slot)
	}
	return nil
}

// Stop ends the processing loops. Jobs already claimed run to completion
// before Stop returns.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stopped"))
}

// RunOnce claims and processes at most one job. processed is false when the
// queue had nothing to claim. A returned error is either a queue access
// failure or the job's own failure.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	m.reclaim(ctx, m.logger)

	job, err := m.store.Claim(ctx, m.owner, m.leases.Lease())
	if err != nil {
		m.setLastError(err)
		return false, err
	}
	if job == nil {
		return false, nil
	}
	return true, m.processJob(ctx, job)
}

// Drain processes jobs until the queue is empty or ctx is cancelled and
// reports how many jobs it ran. Job failures do not stop the drain.
func (m *Manager) Drain(ctx context.Context) (int, error) {
	count := 0
	for ctx.Err() == nil {
		processed, err := m.RunOnce(ctx)
		if !processed {
			return count, err
		}
		count++
	}
	return count, nil
}

func (m *Manager) runSlot(ctx context.Context, slot int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("slot", slot))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.reclaim(ctx, logger)

		job, err := m.store.Claim(ctx, m.owner, m.leases.Lease())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.wait(ctx, m.pollInterval)
			continue
		}

		// Errors are already recorded on the job.
		_ = m.processJob(ctx, job)
	}
}

func (m *Manager) reclaim(ctx context.Context, logger *slog.Logger) {
	ids, err := m.leases.ReclaimExpired(ctx, logger)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim expired leases failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lease_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		return
	}
	for _, id := range ids {
		info, err := m.store.State(ctx, id)
		if err != nil {
			// Removed or re-claimed between the two statements; the next
			// owner reports it.
			continue
		}
		m.report(ctx, logger, info)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.wait(ctx, m.retryInterval)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
