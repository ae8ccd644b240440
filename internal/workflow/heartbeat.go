package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vodforge/internal/logging"
	"vodforge/internal/queue"
)

// LeaseKeeper renews leases on running jobs and returns expired ones to the
// queue.
type LeaseKeeper struct {
	store         *queue.Store
	logger        *slog.Logger
	renewInterval time.Duration
	lease         time.Duration
}

// NewLeaseKeeper creates a keeper that renews every renewInterval for lease.
func NewLeaseKeeper(store *queue.Store, logger *slog.Logger, renewInterval, lease time.Duration) *LeaseKeeper {
	return &LeaseKeeper{
		store:         store,
		logger:        logger,
		renewInterval: renewInterval,
		lease:         lease,
	}
}

// Lease is the lease duration granted on claim and on every renewal.
func (h *LeaseKeeper) Lease() time.Duration {
	return h.lease
}

// ReclaimExpired requeues active jobs whose lease has lapsed and returns their
// ids.
func (h *LeaseKeeper) ReclaimExpired(ctx context.Context, logger *slog.Logger) ([]string, error) {
	reclaimed, err := h.store.ReclaimExpired(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if len(reclaimed) > 0 {
		logger.Warn("reclaimed jobs with expired leases",
			logging.Int("count", len(reclaimed)),
			logging.String(logging.FieldEventType, "lease_reclaimed"),
			logging.Alert("lease_expired"),
		)
	}
	return reclaimed, nil
}

// StartLoop renews the lease on jobID until ctx is cancelled or the lease is
// lost.
func (h *LeaseKeeper) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID, owner string) {
	defer wg.Done()
	ticker := time.NewTicker(h.renewInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "lease-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := h.store.RenewLease(ctx, jobID, owner, h.lease)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				return
			case errors.Is(err, queue.ErrLeaseLost):
				logger.Warn("lease lost; another worker may take over this job",
					logging.String(logging.FieldEventType, "lease_lost"),
					logging.Alert("lease_lost"),
				)
				return
			default:
				logger.Warn("lease renewal failed", logging.Error(err))
			}
		}
	}
}
