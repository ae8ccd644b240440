package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vodforge/internal/rendition"
)

// nextSeqExpr yields a FIFO position behind every job already in the table.
const nextSeqExpr = "(SELECT COALESCE(MAX(queued_seq), 0) + 1 FROM jobs)"

// Enqueue records a submission. A queued or active job with the same ID is
// left untouched and reported as a duplicate; a completed or failed one is
// reset to queued at the back of the queue with the new input and variants.
func (s *Store) Enqueue(ctx context.Context, job NewJob) (EnqueueResult, error) {
	job.ID = strings.TrimSpace(job.ID)
	job.InputLocation = strings.TrimSpace(job.InputLocation)
	if err := ValidateID(job.ID); err != nil {
		return EnqueueResult{}, err
	}
	if job.InputLocation == "" {
		return EnqueueResult{}, fmt.Errorf("%w: input location is required", ErrInvalidJob)
	}
	if err := rendition.ValidateSet(job.Variants); err != nil {
		return EnqueueResult{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	variants, err := encodeVariants(job.Variants)
	if err != nil {
		return EnqueueResult{}, err
	}

	now := formatTime(time.Now())
	var createdAt string
	err = retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO jobs (id, input_location, variants_json, state, queued_seq, created_at, updated_at)
			VALUES (?, ?, ?, ?, `+nextSeqExpr+`, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				input_location = excluded.input_location,
				variants_json = excluded.variants_json,
				state = excluded.state,
				stage = NULL,
				error_message = NULL,
				locator = NULL,
				lease_owner = NULL,
				lease_expires_at = NULL,
				queued_seq = excluded.queued_seq,
				updated_at = excluded.updated_at,
				started_at = NULL,
				finished_at = NULL
			WHERE jobs.state IN (?, ?)
			RETURNING created_at`,
			job.ID, job.InputLocation, variants, string(StateQueued), now, now,
			string(StateCompleted), string(StateFailed),
		).Scan(&createdAt)
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// The conflict guard rejected the update: the job is queued or active.
		return EnqueueResult{ID: job.ID, Duplicate: true}, nil
	case err != nil:
		return EnqueueResult{}, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	// created_at survives an upsert, so a differing value means the row existed.
	return EnqueueResult{ID: job.ID, Requeued: createdAt != now}, nil
}

// Get fetches a job by ID. It returns nil, nil when the job does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// State returns the status view of a job or ErrNotFound.
func (s *Store) State(ctx context.Context, id string) (StateInfo, error) {
	job, err := s.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return StateInfo{}, err
	}
	if job == nil {
		return StateInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job.Info(), nil
}

// List returns jobs in FIFO order, optionally filtered by state.
func (s *Store) List(ctx context.Context, states ...State) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := statesToArgs(states)
	if len(states) > 0 {
		query += ` WHERE state IN (` + makePlaceholders(len(states)) + `)`
	}
	query += ` ORDER BY queued_seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
