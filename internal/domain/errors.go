package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for collaborator failures.
var (
	ErrAuth       = errors.New("authentication failed")
	ErrNavigation = errors.New("navigation failed")
	ErrNoRuns     = errors.New("no runs in listing")
	ErrNotSent    = errors.New("draft not sent")
)

// ValidationError lists required settings that were absent. The
// pipeline never starts partially configured.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// StageError pins a failure to the pipeline stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func FailAt(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
