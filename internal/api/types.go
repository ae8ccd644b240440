package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitOutcome reports how a submission was applied.
type SubmitOutcome string

const (
	// SubmitAccepted means the job is now queued, either new or re-enqueued
	// after reaching a terminal state.
	SubmitAccepted SubmitOutcome = "accepted"
	// SubmitDuplicate means a queued or active job with the same id already
	// existed and nothing changed.
	SubmitDuplicate SubmitOutcome = "duplicate"
)

// SubmitResult is returned by Service.Submit.
type SubmitResult struct {
	ID       string        `json:"id"`
	Outcome  SubmitOutcome `json:"outcome"`
	Requeued bool          `json:"requeued,omitempty"`
}

// JobStatus is the poller view of a job.
type JobStatus struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Stage    string `json:"stage,omitempty"`
	Error    string `json:"error,omitempty"`
	Locator  string `json:"locator,omitempty"`
	Attempts int    `json:"attempts"`
}

// Job describes a queue entry in a transport-friendly format.
type Job struct {
	ID         string   `json:"id"`
	Input      string   `json:"input"`
	Variants   []string `json:"variants"`
	State      string   `json:"state"`
	Stage      string   `json:"stage,omitempty"`
	Error      string   `json:"error,omitempty"`
	Locator    string   `json:"locator,omitempty"`
	Attempts   int      `json:"attempts"`
	LeaseOwner string   `json:"lease_owner,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
	StartedAt  string   `json:"started_at,omitempty"`
	FinishedAt string   `json:"finished_at,omitempty"`
}

// WorkflowStatus summarizes a worker's execution state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	Owner      string         `json:"owner"`
	Processed  int64          `json:"processed"`
	QueueStats map[string]int `json:"queue_stats"`
	Active     []ActiveJob    `json:"active,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	LastJob    *JobStatus     `json:"last_job,omitempty"`
}

// ActiveJob is a job currently held by a worker.
type ActiveJob struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}
