package appointment

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports malformed or missing request fields. Nothing is
// written when it is returned.
type ValidationError struct {
	Fields  map[string]string
	Message string
	Err     error
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func newValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields, Message: "invalid appointment request"}
}

func invalidField(field string, err error) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: err.Error()}, Message: "invalid appointment request", Err: err}
}

// ConflictError means the requested slot cannot be taken right now.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string { return e.Err.Error() }
func (e *ConflictError) Unwrap() error { return e.Err }

func conflict(err error) error { return &ConflictError{Err: err} }
