package pipeline

import (
	"errors"
	"fmt"
)

// Kind is the category of a pipeline failure.
type Kind string

const (
	ClassificationFailure Kind = "classification_failure"
	AppNotFound           Kind = "app_not_found"
	ServiceUnavailable    Kind = "service_unavailable"
	OracleSilent          Kind = "oracle_silent"
	MalformedJSON         Kind = "malformed_json"
	SchemaViolation       Kind = "schema_violation"
)

// Failure is a terminal pipeline outcome. Reason is the human-readable text
// returned to the caller.
type Failure struct {
	Kind   Kind
	Stage  Stage
	Reason string
	Err    error
}

func (f *Failure) Error() string { return f.Reason }

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func fail(kind Kind, stage Stage, err error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Stage: stage, Reason: fmt.Sprintf(format, args...), Err: err}
}
