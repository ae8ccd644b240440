package api

import (
	"time"

	"vodforge/internal/queue"
	"vodforge/internal/workflow"
)

// FromStateInfo converts a queue status view to its API payload.
func FromStateInfo(info queue.StateInfo) JobStatus {
	return JobStatus{
		ID:       info.ID,
		State:    string(info.State),
		Stage:    string(info.Stage),
		Error:    info.Error,
		Locator:  info.Locator,
		Attempts: info.Attempts,
	}
}

// FromJob converts a queue job to its API payload.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	variants := make([]string, 0, len(job.Variants))
	for _, spec := range job.Variants {
		variants = append(variants, spec.String())
	}
	dto := Job{
		ID:         job.ID,
		Input:      job.InputLocation,
		Variants:   variants,
		State:      string(job.State),
		Stage:      string(job.Stage),
		Error:      job.ErrorMessage,
		Locator:    job.Locator,
		Attempts:   job.Attempts,
		LeaseOwner: job.LeaseOwner,
		CreatedAt:  FormatTime(job.CreatedAt),
		UpdatedAt:  FormatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		dto.StartedAt = FormatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = FormatTime(*job.FinishedAt)
	}
	return dto
}

// FromJobs converts a slice of queue jobs.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:    summary.Running,
		Owner:      summary.Owner,
		Processed:  summary.Processed,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
	}
	for _, active := range summary.Active {
		wf.Active = append(wf.Active, ActiveJob{ID: active.ID, Stage: string(active.Stage)})
	}
	if summary.LastJob != nil {
		last := FromStateInfo(*summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats with
// every known state present.
func MergeQueueStats(stats map[queue.State]int) map[string]int {
	out := make(map[string]int, len(queue.AllStates()))
	for _, state := range queue.AllStates() {
		out[string(state)] = stats[state]
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
