// Package services defines shared error markers and context helpers used by
// the pipeline stages and their external integrations.
//
// Wrap tags a failure with one of the exported markers plus the stage and
// operation it came from, so callers can classify it with errors.Is and logs
// can attach an operator hint. The context helpers stamp job IDs, stage names,
// and correlation identifiers for structured logging.
package services
