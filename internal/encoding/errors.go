package encoding

import (
	"fmt"
	"strings"

	"vodforge/internal/services"
)

// EncodeFailedError reports a rendition whose encode did not produce output.
type EncodeFailedError struct {
	Variant string
	Err     error
	// Output is the tail of the encoder's combined output, if any.
	Output string
}

func (e *EncodeFailedError) Error() string {
	msg := fmt.Sprintf("encode %s failed", e.Variant)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += ": " + lastLine(e.Output)
	}
	return msg
}

func (e *EncodeFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrExternalTool}
	}
	return []error{services.ErrExternalTool, e.Err}
}

// AggregateEncodeFailedError reports that more than one rendition failed.
// Failures are in rendition order.
type AggregateEncodeFailedError struct {
	Failures []*EncodeFailedError
}

func (e *AggregateEncodeFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		parts = append(parts, failure.Error())
	}
	return fmt.Sprintf("%d renditions failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *AggregateEncodeFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		errs = append(errs, failure)
	}
	return errs
}

// Variants lists the names of the failed renditions.
func (e *AggregateEncodeFailedError) Variants() []string {
	names := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		names = append(names, failure.Variant)
	}
	return names
}

const maxOutputTail = 4096

func tail(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > maxOutputTail {
		trimmed = trimmed[len(trimmed)-maxOutputTail:]
	}
	return trimmed
}

func lastLine(output string) string {
	output = strings.TrimSpace(output)
	if i := strings.LastIndexByte(output, '\n'); i >= 0 {
		return strings.TrimSpace(output[i+1:])
	}
	return output
}
