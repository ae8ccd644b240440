package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Claim atomically moves the oldest queued job to active under a lease held by
// owner. It returns nil, nil when nothing is queued.
func (s *Store) Claim(ctx context.Context, owner string, lease time.Duration) (*Job, error) {
	now := time.Now()
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE jobs SET
				state = ?,
				stage = ?,
				lease_owner = ?,
				lease_expires_at = ?,
				attempts = attempts + 1,
				error_message = NULL,
				started_at = ?,
				updated_at = ?
			WHERE id = (
				SELECT id FROM jobs WHERE state = ? ORDER BY queued_seq LIMIT 1
			) AND state = ?
			RETURNING `+jobColumns,
			string(StateActive), string(StageClaimed), owner, now.Add(lease).UnixMilli(),
			formatTime(now), formatTime(now),
			string(StateQueued), string(StateQueued),
		)
		var scanErr error
		job, scanErr = scanJob(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// RenewLease extends the lease on an active job held by owner.
func (s *Store) RenewLease(ctx context.Context, id, owner string, lease time.Duration) error {
	now := time.Now()
	return s.execFenced(ctx, `
		UPDATE jobs SET lease_expires_at = ?, updated_at = ?
		WHERE id = ? AND state = ? AND lease_owner = ?`,
		now.Add(lease).UnixMilli(), formatTime(now), id, string(StateActive), owner,
	)
}

// SetStage records the worker's pipeline position for an active job.
func (s *Store) SetStage(ctx context.Context, id, owner string, stage Stage) error {
	return s.execFenced(ctx, `
		UPDATE jobs SET stage = ?, updated_at = ?
		WHERE id = ? AND state = ? AND lease_owner = ?`,
		string(stage), formatTime(time.Now()), id, string(StateActive), owner,
	)
}

// Complete marks an active job completed with its public locator.
func (s *Store) Complete(ctx context.Context, id, owner, locator string) error {
	now := formatTime(time.Now())
	return s.execFenced(ctx, `
		UPDATE jobs SET state = ?, stage = ?, locator = ?, error_message = NULL,
			lease_owner = NULL, lease_expires_at = NULL, finished_at = ?, updated_at = ?
		WHERE id = ? AND state = ? AND lease_owner = ?`,
		string(StateCompleted), string(StageCompleted), nullableString(locator), now, now,
		id, string(StateActive), owner,
	)
}

// Fail marks an active job failed with a human-readable reason.
func (s *Store) Fail(ctx context.Context, id, owner, message string) error {
	now := formatTime(time.Now())
	return s.execFenced(ctx, `
		UPDATE jobs SET state = ?, stage = ?, error_message = ?, locator = NULL,
			lease_owner = NULL, lease_expires_at = NULL, finished_at = ?, updated_at = ?
		WHERE id = ? AND state = ? AND lease_owner = ?`,
		string(StateFailed), string(StageFailed), message, now, now,
		id, string(StateActive), owner,
	)
}

// ReclaimExpired returns active jobs whose lease expired before now to the
// queue and reports their ids. They keep their original FIFO position.
func (s *Store) ReclaimExpired(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.queryIDsWithRetry(ctx, `
		UPDATE jobs SET state = ?, stage = NULL, lease_owner = NULL, lease_expires_at = NULL,
			started_at = NULL, updated_at = ?
		WHERE state = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < ?
		RETURNING id`,
		string(StateQueued), formatTime(now), string(StateActive), now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("reclaim expired leases: %w", err)
	}
	return ids, nil
}
