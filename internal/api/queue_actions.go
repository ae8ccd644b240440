package api

import (
	"context"

	"vodforge/internal/queue"
)

// QueueActionService captures queue operations needed by per-job retry and
// remove workflows.
type QueueActionService interface {
	Get(ctx context.Context, id string) (*queue.Job, error)
	RetryFailed(ctx context.Context, ids ...string) ([]string, error)
	Remove(ctx context.Context, id string) (bool, error)
}

type ActionOutcome string

const (
	ActionUpdated   ActionOutcome = "updated"
	ActionNotFound  ActionOutcome = "not_found"
	ActionNotFailed ActionOutcome = "not_failed"
	ActionActive    ActionOutcome = "active"
)

type ActionResult struct {
	ID         string        `json:"id"`
	Outcome    ActionOutcome `json:"outcome"`
	PriorState string        `json:"prior_state,omitempty"`
}

type ActionsResult struct {
	UpdatedCount int64          `json:"updated_count"`
	Jobs         []ActionResult `json:"jobs"`
}

// UpdatedIDs lists the jobs whose outcome was ActionUpdated.
func (r ActionsResult) UpdatedIDs() []string {
	var ids []string
	for _, job := range r.Jobs {
		if job.Outcome == ActionUpdated {
			ids = append(ids, job.ID)
		}
	}
	return ids
}

// RetryFailedJobsByID re-enqueues only failed jobs.
func RetryFailedJobsByID(ctx context.Context, service QueueActionService, ids []string) (ActionsResult, error) {
	result := ActionsResult{Jobs: make([]ActionResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Get(ctx, id)
		if err != nil {
			return ActionsResult{}, err
		}
		if job == nil {
			result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionNotFound})
			continue
		}
		if job.State != queue.StateFailed {
			result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionNotFailed, PriorState: string(job.State)})
			continue
		}
		retried, err := service.RetryFailed(ctx, id)
		if err != nil {
			return ActionsResult{}, err
		}
		if len(retried) > 0 {
			result.UpdatedCount += int64(len(retried))
			result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionUpdated, PriorState: string(job.State)})
			continue
		}
		result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionNotFailed, PriorState: string(job.State)})
	}
	return result, nil
}

// RemoveJobsByID deletes jobs that are not currently active.
func RemoveJobsByID(ctx context.Context, service QueueActionService, ids []string) (ActionsResult, error) {
	result := ActionsResult{Jobs: make([]ActionResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Get(ctx, id)
		if err != nil {
			return ActionsResult{}, err
		}
		if job == nil {
			result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionNotFound})
			continue
		}
		if job.State == queue.StateActive {
			result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionActive, PriorState: string(job.State)})
			continue
		}
		removed, err := service.Remove(ctx, id)
		if err != nil {
			return ActionsResult{}, err
		}
		if removed {
			result.UpdatedCount++
			result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionUpdated, PriorState: string(job.State)})
			continue
		}
		result.Jobs = append(result.Jobs, ActionResult{ID: id, Outcome: ActionActive, PriorState: string(job.State)})
	}
	return result, nil
}
