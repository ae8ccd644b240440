package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// Stats returns a count of jobs grouped by state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var state State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	var health HealthSummary
	for state, count := range stats {
		health.Total += count
		switch state {
		case StateQueued:
			health.Queued += count
		case StateActive:
			health.Active += count
		case StateCompleted:
			health.Completed += count
		case StateFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	var tableName string
	err = s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'jobs'").Scan(&tableName)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		health.MissingColumns = append([]string(nil), jobColumnNames...)
		return health, nil
	case err != nil:
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	health.TableExists = true

	present, err := s.tableColumns(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	for _, name := range jobColumnNames {
		if _, ok := present[name]; !ok {
			health.MissingColumns = append(health.MissingColumns, name)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = integrity == "ok"

	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM jobs").Scan(&health.TotalJobs); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count jobs: %w", err)
	}
	return health, nil
}

func (s *Store) tableColumns(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(jobs)")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	present := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		present[name] = struct{}{}
	}
	return present, rows.Err()
}

// RetryFailed re-enqueues failed jobs and reports their ids. With no IDs every
// failed job is retried. Retried jobs go to the back of the queue in their
// existing relative order.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) ([]string, error) {
	var retried []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		retried = nil
		query := `SELECT id FROM jobs WHERE state = ?`
		args := []any{string(StateFailed)}
		if len(ids) > 0 {
			query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
			for _, id := range ids {
				args = append(args, id)
			}
		}
		query += ` ORDER BY queued_seq`

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		var targets []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			targets = append(targets, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		now := formatTime(time.Now())
		for _, id := range targets {
			if _, err := tx.ExecContext(ctx, `
				UPDATE jobs SET state = ?, stage = NULL, error_message = NULL, locator = NULL,
					queued_seq = `+nextSeqExpr+`, started_at = NULL, finished_at = NULL, updated_at = ?
				WHERE id = ? AND state = ?`,
				string(StateQueued), now, id, string(StateFailed),
			); err != nil {
				return err
			}
			retried = append(retried, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retry failed jobs: %w", err)
	}
	return retried, nil
}

// Remove deletes a job that is not currently active.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ? AND state != ?`, id, string(StateActive))
	if err != nil {
		return false, fmt.Errorf("remove job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// ClearCompleted deletes completed jobs and reports their ids.
func (s *Store) ClearCompleted(ctx context.Context) ([]string, error) {
	return s.clearStates(ctx, StateCompleted)
}

// ClearFailed deletes failed jobs and reports their ids.
func (s *Store) ClearFailed(ctx context.Context) ([]string, error) {
	return s.clearStates(ctx, StateFailed)
}

// Clear deletes every job that is not currently active and reports their ids.
func (s *Store) Clear(ctx context.Context) ([]string, error) {
	return s.clearStates(ctx, StateQueued, StateCompleted, StateFailed)
}

func (s *Store) clearStates(ctx context.Context, states ...State) ([]string, error) {
	ids, err := s.queryIDsWithRetry(ctx, `DELETE FROM jobs WHERE state IN (`+makePlaceholders(len(states))+`) RETURNING id`, statesToArgs(states)...)
	if err != nil {
		return nil, fmt.Errorf("clear jobs: %w", err)
	}
	return ids, nil
}
