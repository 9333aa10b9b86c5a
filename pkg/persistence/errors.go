// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPlayNotFound indicates a play was not found by the given identifier.
	ErrPlayNotFound = errors.New("play not found")

	// ErrWorkstreamNotFound indicates a workstream was not found by the given identifier.
	ErrWorkstreamNotFound = errors.New("workstream not found")

	// ErrExecutionStateNotFound indicates no execution state exists for the given key.
	ErrExecutionStateNotFound = errors.New("execution state not found")
)

// PlayError wraps play-related errors with additional context.
type PlayError struct {
	Op     string // Operation being performed (e.g., "PlayByID", "Save")
	PlayID string
	Err    error
}

func (e *PlayError) Error() string {
	return fmt.Sprintf("%s operation failed for play %s: %v", e.Op, e.PlayID, e.Err)
}

func (e *PlayError) Unwrap() error {
	return e.Err
}

func (e *PlayError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPlayError creates a new play error with context.
func NewPlayError(op, playID string, err error) *PlayError {
	return &PlayError{Op: op, PlayID: playID, Err: err}
}

// ExecutionStateError wraps execution-state errors with the full record key.
type ExecutionStateError struct {
	Op           string
	WorkstreamID string
	NodeID       string
	Err          error
}

func (e *ExecutionStateError) Error() string {
	return fmt.Sprintf("%s operation failed for node %s in workstream %s: %v", e.Op, e.NodeID, e.WorkstreamID, e.Err)
}

func (e *ExecutionStateError) Unwrap() error {
	return e.Err
}

func (e *ExecutionStateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionStateError creates a new execution state error with context.
func NewExecutionStateError(op, workstreamID, nodeID string, err error) *ExecutionStateError {
	return &ExecutionStateError{Op: op, WorkstreamID: workstreamID, NodeID: nodeID, Err: err}
}

// IsPlayNotFound checks if an error indicates a play was not found.
func IsPlayNotFound(err error) bool {
	return errors.Is(err, ErrPlayNotFound)
}

// IsWorkstreamNotFound checks if an error indicates a workstream was not found.
func IsWorkstreamNotFound(err error) bool {
	return errors.Is(err, ErrWorkstreamNotFound)
}
