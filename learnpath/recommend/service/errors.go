package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProfile means the caller must fix the input.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrRetrievalUnavailable means the similarity-search collaborator failed or timed out.
	// Callers may retry or degrade.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrDimensionMismatch signals a configuration or model-compatibility bug.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrRoleNotFound is returned by role lookups for unknown roles.
	ErrRoleNotFound = errors.New("role not found")
)

// Stage is a step of the single-request lifecycle
type Stage string

const (
	StageReceived  Stage = "received"
	StageEncoded   Stage = "encoded"
	StageRetrieved Stage = "retrieved"
	StageScored    Stage = "scored"
	StagePerturbed Stage = "perturbed"
	StageAssembled Stage = "assembled"
	StageReturned  Stage = "returned"
)

// StageError reports which pipeline stage failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("recommend: %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether the caller may retry or degrade.
// Only retrieval failures qualify.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRetrievalUnavailable)
}

// FailedStage extracts the failing stage, or "" when err carries none.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func dimensionError(what string, want, got int) error {
	return fmt.Errorf("%w: %s has %d dimensions, expected %d", ErrDimensionMismatch, what, got, want)
}
