package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Status represents the current state of a task
type Status string

// Possible task status values. Transitions are monotonic along
// pending -> processing -> (completed | partial_failure | error);
// a task never regresses to an earlier status.
const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusCompleted      Status = "completed"
	StatusPartialFailure Status = "partial_failure"
	StatusError          Status = "error"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartialFailure, StatusError:
		return true
	}
	return false
}

// Task type constants
const (
	// TypeReasonGeneration represents the task type for generating
	// recommendation reasons for a set of matched books.
	TypeReasonGeneration = "reason_generation"
)

// Common errors returned by the task package
var (
	// ErrTaskNotFound is returned when a task identifier is unknown,
	// either expired or never issued.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskTerminal is returned when an operation requires an in-flight
	// task but the task has already reached a terminal status.
	ErrTaskTerminal = errors.New("task already in terminal status")
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}
