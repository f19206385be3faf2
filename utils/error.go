package utils

import (
	"errors"
	"fmt"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrAmbiguousResolution marks an extracted asset code/serial that matched
// zero or more than one covered asset.
var ErrAmbiguousResolution = errors.New("ambiguous resolution")

// ErrTransientIO marks inbox/PDF failures that should be retried on the next
// scheduled tick. The source message stays unseen, so nothing is lost.
var ErrTransientIO = errors.New("transient io failure")

// ValidationError carries per-field messages for malformed business input.
// It is surfaced synchronously to the caller, never silently corrected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
