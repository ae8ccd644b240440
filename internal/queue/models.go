package queue

import (
	"strings"
	"time"

	"vodforge/internal/rendition"
)

// State is the externally visible lifecycle of a job.
type State string

const (
	StateQueued    State = "queued"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

var allStates = []State{StateQueued, StateActive, StateCompleted, StateFailed}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	for _, state := range allStates {
		if state == normalized {
			return state, true
		}
	}
	return "", false
}

// IsTerminal reports whether the state only changes through an explicit re-enqueue.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Stage is the worker's position in the per-job pipeline while a job is active.
type Stage string

const (
	StageNone        Stage = ""
	StageClaimed     Stage = "claimed"
	StageTranscoding Stage = "transcoding"
	StageManifesting Stage = "manifesting"
	StagePublishing  Stage = "publishing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// Job is a queue entry persisted in SQLite.
type Job struct {
	ID             string
	InputLocation  string
	Variants       []rendition.Spec
	State          State
	Stage          Stage
	ErrorMessage   string
	Locator        string
	Attempts       int
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// NewJob carries the caller-supplied fields of a submission.
type NewJob struct {
	ID            string
	InputLocation string
	Variants      []rendition.Spec
}

// EnqueueResult reports how a submission was applied.
type EnqueueResult struct {
	ID string
	// Duplicate is set when a queued or active job with the same ID already
	// existed; nothing was changed.
	Duplicate bool
	// Requeued is set when a terminal job with the same ID was reset to queued.
	Requeued bool
}

// StateInfo is the status view of a job.
type StateInfo struct {
	ID       string
	State    State
	Stage    Stage
	Error    string
	Locator  string
	Attempts int
}

// Info projects the job onto its status view.
func (j *Job) Info() StateInfo {
	return StateInfo{
		ID:       j.ID,
		State:    j.State,
		Stage:    j.Stage,
		Error:    j.ErrorMessage,
		Locator:  j.Locator,
		Attempts: j.Attempts,
	}
}

// HealthSummary describes aggregated queue counts per state.
type HealthSummary struct {
	Total     int
	Queued    int
	Active    int
	Completed int
	Failed    int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
