package domain

import (
	"errors"
	"testing"
)

func TestStageError(t *testing.T) {
	err := FailAt(StageDispatch, ErrNotSent)
	if err.Error() != "dispatch: draft not sent" {
		t.Errorf("got %q", err.Error())
	}
	if !errors.Is(err, ErrNotSent) {
		t.Error("StageError must unwrap to its cause")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Missing: []string{"DAG_ID", "EMAIL_RECIPIENTS"}}
	want := "missing required configuration: DAG_ID, EMAIL_RECIPIENTS"
	if err.Error() != want {
		t.Errorf("got %q", err.Error())
	}
}
