package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/events"
)

// DefaultRetention is how long finished and in-flight task records are kept
// before the periodic sweep evicts them.
const DefaultRetention = time.Hour

// Snapshot is a read-only view of a task's state. All slices are defensive
// copies; pollers can never observe a partially updated structure.
type Snapshot struct {
	TaskID      uuid.UUID
	Status      Status
	Progress    string
	Query       string
	Books       []domain.Book
	Results     []domain.BookWithReason
	FailedBooks []string
	Error       string
	CreatedAt   time.Time
}

// taskState holds the mutable record for one task. A single background
// worker is the only writer for a given task, but concurrent pollers read
// it, so every access goes through the registry lock.
type taskState struct {
	id        uuid.UUID
	query     string
	books     []domain.Book
	createdAt time.Time

	status      Status
	progress    string
	results     []domain.BookWithReason
	failedBooks []string
	errMsg      string

	// cancel aborts the task's background job. Nil until the job starts.
	cancel context.CancelFunc
}

// Registry owns every task record for its lifetime: creation on submission,
// mutation by the executing background job, eviction by the periodic sweep.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[uuid.UUID]*taskState
	retention time.Duration
	logger    *slog.Logger
	emitter   events.Emitter
}

// NewRegistry creates a Registry. A non-positive retention falls back to
// DefaultRetention.
func NewRegistry(retention time.Duration, logger *slog.Logger) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		tasks:     make(map[uuid.UUID]*taskState),
		retention: retention,
		logger:    logger,
	}
}

// SetEmitter attaches an event emitter that receives every status
// transition. Call before the runner starts; transitions occurring while no
// emitter is set are not replayed.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitter = emitter
}

// emitTransition publishes a status change to the emitter, if one is set.
// Called without the registry lock held.
func (r *Registry) emitTransition(id uuid.UUID, from, to Status, detail string) {
	r.mu.RLock()
	emitter := r.emitter
	r.mu.RUnlock()
	if emitter == nil {
		return
	}
	event := events.NewStatusChangeEvent(id, string(from), string(to), detail)
	if err := emitter.EmitStatusChange(context.Background(), event); err != nil {
		r.logger.Warn("failed to emit status change event",
			"task_id", id,
			"error", err)
	}
}

// Register creates a pending task record for the given query and books.
func (r *Registry) Register(id uuid.UUID, query string, books []domain.Book) {
	copied := make([]domain.Book, len(books))
	copy(copied, books)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = &taskState{
		id:        id,
		query:     query,
		books:     copied,
		createdAt: time.Now(),
		status:    StatusPending,
		progress:  "waiting for a worker",
	}
}

// BindCancel stores the cancel function for a task's background job so that
// Cancel can abort it. No-op for unknown or terminal tasks.
func (r *Registry) BindCancel(id uuid.UUID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.tasks[id]; ok && !state.status.Terminal() {
		state.cancel = cancel
	}
}

// MarkProcessing transitions a pending task to processing. Returns
// ErrTaskNotFound for unknown ids and ErrTaskTerminal if the task already
// finished (e.g. cancelled while still queued).
func (r *Registry) MarkProcessing(id uuid.UUID, progress string) error {
	r.mu.Lock()
	state, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return ErrTaskNotFound
	}
	if state.status.Terminal() {
		r.mu.Unlock()
		return ErrTaskTerminal
	}
	from := state.status
	state.status = StatusProcessing
	state.progress = progress
	r.mu.Unlock()

	r.emitTransition(id, from, StatusProcessing, "")
	return nil
}

// SetProgress updates the human-readable progress message of an in-flight
// task. No-op once the task is terminal.
func (r *Registry) SetProgress(id uuid.UUID, progress string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.tasks[id]; ok && !state.status.Terminal() {
		state.progress = progress
	}
}

// AppendResult adds one finished book to the task's partial result list so
// pollers can observe progressive completion. Books whose generation fell
// back to a placeholder also record their title in the failed list.
func (r *Registry) AppendResult(id uuid.UUID, result domain.BookWithReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.tasks[id]
	if !ok || state.status.Terminal() {
		return
	}
	state.results = append(state.results, result)
	if result.Fallback {
		state.failedBooks = append(state.failedBooks, result.Title)
	}
}

// Complete finalizes a task as completed, or partial_failure when any book
// fell back to a placeholder reason. No-op if the task is already terminal.
func (r *Registry) Complete(id uuid.UUID) {
	r.mu.Lock()
	state, ok := r.tasks[id]
	if !ok || state.status.Terminal() {
		r.mu.Unlock()
		return
	}
	from := state.status
	detail := ""
	if len(state.failedBooks) > 0 {
		state.status = StatusPartialFailure
		state.progress = "finished with fallback reasons"
		detail = fmt.Sprintf("%d books fell back to placeholder reasons", len(state.failedBooks))
	} else {
		state.status = StatusCompleted
		state.progress = "all reasons generated"
	}
	to := state.status
	state.cancel = nil
	r.mu.Unlock()

	r.emitTransition(id, from, to, detail)
}

// Fail finalizes a task as error with the given message. Per-book generation
// failures never reach here; only orchestration-level failures do. No-op if
// the task is already terminal.
func (r *Registry) Fail(id uuid.UUID, msg string) {
	r.mu.Lock()
	state, ok := r.tasks[id]
	if !ok || state.status.Terminal() {
		r.mu.Unlock()
		return
	}
	from := state.status
	state.status = StatusError
	state.errMsg = msg
	state.progress = "failed"
	state.cancel = nil
	r.mu.Unlock()

	r.emitTransition(id, from, StatusError, msg)
}

// Cancel aborts an in-flight task: its context is cancelled and its status
// becomes error("cancelled"). Returns ErrTaskNotFound for unknown ids and
// ErrTaskTerminal when the task already finished.
func (r *Registry) Cancel(id uuid.UUID) error {
	r.mu.Lock()
	state, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return ErrTaskNotFound
	}
	if state.status.Terminal() {
		r.mu.Unlock()
		return ErrTaskTerminal
	}
	cancel := state.cancel
	from := state.status
	state.status = StatusError
	state.errMsg = "cancelled"
	state.progress = "cancelled"
	state.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.emitTransition(id, from, StatusError, "cancelled")
	r.logger.Info("task cancelled", "task_id", id)
	return nil
}

// Get returns a snapshot of the task's current state, or ErrTaskNotFound.
func (r *Registry) Get(id uuid.UUID) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, ErrTaskNotFound
	}

	snap := Snapshot{
		TaskID:    state.id,
		Status:    state.status,
		Progress:  state.progress,
		Query:     state.query,
		Error:     state.errMsg,
		CreatedAt: state.createdAt,
	}
	snap.Books = make([]domain.Book, len(state.books))
	copy(snap.Books, state.books)
	snap.Results = make([]domain.BookWithReason, len(state.results))
	copy(snap.Results, state.results)
	snap.FailedBooks = make([]string, len(state.failedBooks))
	copy(snap.FailedBooks, state.failedBooks)
	return snap, nil
}

// Sweep evicts tasks older than the retention window and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, state := range r.tasks {
		if now.Sub(state.createdAt) > r.retention {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := r.Sweep(now); removed > 0 {
				r.logger.Debug("swept expired tasks", "removed", removed)
			}
		}
	}
}
