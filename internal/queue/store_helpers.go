package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vodforge/internal/rendition"
)

var jobColumns = strings.Join(jobColumnNames, ", ")

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		input        string
		variantsJSON string
		stateStr     string
		stage        sql.NullString
		errorMessage sql.NullString
		locator      sql.NullString
		attempts     int
		leaseOwner   sql.NullString
		leaseExpires sql.NullInt64
		queuedSeq    int64
		createdRaw   string
		updatedRaw   string
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&input,
		&variantsJSON,
		&stateStr,
		&stage,
		&errorMessage,
		&locator,
		&attempts,
		&leaseOwner,
		&leaseExpires,
		&queuedSeq,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		InputLocation: input,
		State:         State(stateStr),
		Stage:         Stage(stage.String),
		ErrorMessage:  errorMessage.String,
		Locator:       locator.String,
		Attempts:      attempts,
		LeaseOwner:    leaseOwner.String,
	}
	if err := json.Unmarshal([]byte(variantsJSON), &job.Variants); err != nil {
		return nil, fmt.Errorf("decode variants for job %s: %w", id, err)
	}
	if leaseExpires.Valid {
		expires := time.UnixMilli(leaseExpires.Int64).UTC()
		job.LeaseExpiresAt = &expires
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.FinishedAt = parseNullableTime(finishedRaw)
	return job, nil
}

func encodeVariants(specs []rendition.Spec) (string, error) {
	data, err := json.Marshal(specs)
	if err != nil {
		return "", fmt.Errorf("encode variants: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func statesToArgs(states []State) []any {
	args := make([]any, len(states))
	for i, state := range states {
		args[i] = string(state)
	}
	return args
}
