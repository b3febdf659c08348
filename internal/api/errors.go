package api

import (
	"errors"
	"net/http"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so handlers
// never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrQueryTooShort),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrTaskTerminal):
		return http.StatusConflict

	case errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for the
// error. Raw error strings stay in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrQueryTooShort):
		return "Query is too short"

	case errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid task ID"

	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, task.ErrTaskTerminal):
		return "Task has already finished"

	case errors.Is(err, task.ErrQueueFull):
		return "Server is busy, please retry shortly"

	default:
		return "An unexpected error occurred"
	}
}
