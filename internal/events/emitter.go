package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter dispatches status change events synchronously to handlers
// registered in this process.
type InMemoryEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates an InMemoryEmitter.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		handlers: make([]Handler, 0),
		logger:   logger.With("component", "event_emitter"),
	}
}

// RegisterHandler adds a handler to receive future events.
func (e *InMemoryEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered event handler", "handler_count", len(e.handlers))
}

// EmitStatusChange delivers the event to every registered handler. A failing
// handler does not block the others; the first error is returned.
func (e *InMemoryEmitter) EmitStatusChange(ctx context.Context, event *StatusChangeEvent) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler.HandleStatusChange(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"event_id", event.ID,
				"task_id", event.TaskID,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// LoggingHandler writes every status transition to the structured log.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// HandleStatusChange implements Handler.
func (h *LoggingHandler) HandleStatusChange(ctx context.Context, event *StatusChangeEvent) error {
	h.logger.InfoContext(ctx, "task status changed",
		"task_id", event.TaskID,
		"from", event.From,
		"to", event.To,
		"detail", event.Detail)
	return nil
}
