// Package events carries task lifecycle notifications between the task
// pipeline and observers, without coupling observers to the task package.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatusChangeEvent records one task status transition.
type StatusChangeEvent struct {
	// ID uniquely identifies this event.
	ID uuid.UUID `json:"id"`

	// TaskID is the task whose status changed.
	TaskID uuid.UUID `json:"task_id"`

	// From and To are the statuses before and after the transition.
	From string `json:"from"`
	To   string `json:"to"`

	// Detail optionally carries transition context, e.g. an error message
	// or the failed-book count.
	Detail string `json:"detail,omitempty"`

	// OccurredAt is when the transition happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStatusChangeEvent creates a StatusChangeEvent for the given transition.
func NewStatusChangeEvent(taskID uuid.UUID, from, to, detail string) *StatusChangeEvent {
	return &StatusChangeEvent{
		ID:         uuid.New(),
		TaskID:     taskID,
		From:       from,
		To:         to,
		Detail:     detail,
		OccurredAt: time.Now(),
	}
}

// Handler processes status change events.
type Handler interface {
	// HandleStatusChange processes the event. Returning an error does not
	// stop delivery to other handlers.
	HandleStatusChange(ctx context.Context, event *StatusChangeEvent) error
}

// Emitter publishes status change events to registered handlers.
type Emitter interface {
	EmitStatusChange(ctx context.Context, event *StatusChangeEvent) error
}
