package queue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a job ID is unknown.
	ErrNotFound = errors.New("job not found")
	// ErrLeaseLost is returned when a fenced transition is attempted by a
	// worker that no longer holds the job's lease.
	ErrLeaseLost = errors.New("job lease lost")
	// ErrInvalidJob is returned for submissions that can never be processed.
	ErrInvalidJob = errors.New("invalid job")
)

const maxIDLength = 128

// ValidateID checks that a job ID is usable as a storage path segment.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidJob)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id longer than %d characters", ErrInvalidJob, maxIDLength)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: id %q is not a valid path segment", ErrInvalidJob, id)
	}
	if i := strings.IndexFunc(id, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '-', r == '_', r == '.':
			return false
		}
		return true
	}); i >= 0 {
		return fmt.Errorf("%w: id %q contains %q; use letters, digits, '-', '_' or '.'", ErrInvalidJob, id, id[i:i+1])
	}
	return nil
}
