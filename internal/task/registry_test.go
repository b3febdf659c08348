package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testBooks = []domain.Book{
	{Title: "Python编程：从入门到实践", Author: "Eric Matthes", ISBN: "9787115428028"},
	{Title: "流畅的Python", Author: "Luciano Ramalho", ISBN: "9787115454157"},
}

func newTestRegistry() *Registry {
	return NewRegistry(time.Hour, testLogger())
}

func registerTask(t *testing.T, r *Registry) uuid.UUID {
	t.Helper()
	id := uuid.New()
	r.Register(id, "python编程", testBooks)
	return id
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := registerTask(t, r)

	snap, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, snap.TaskID)
	assert.Equal(t, StatusPending, snap.Status)
	assert.Equal(t, "python编程", snap.Query)
	assert.Len(t, snap.Books, 2)
	assert.Empty(t, snap.Results)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestRegistry_GetUnknownID(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	_, err := r.Get(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegistry_LifecycleToCompleted(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := registerTask(t, r)

	require.NoError(t, r.MarkProcessing(id, "working"))
	snap, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, snap.Status)
	assert.Equal(t, "working", snap.Progress)

	for _, book := range testBooks {
		r.AppendResult(id, domain.BookWithReason{
			Book:   book,
			Reason: domain.Reason{LogicalReason: "matches the query"},
		})
	}
	r.Complete(id)

	snap, err = r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Len(t, snap.Results, 2)
	assert.Empty(t, snap.FailedBooks)
}

func TestRegistry_FallbackResultYieldsPartialFailure(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := registerTask(t, r)
	require.NoError(t, r.MarkProcessing(id, "working"))

	r.AppendResult(id, domain.BookWithReason{
		Book:   testBooks[0],
		Reason: domain.Reason{LogicalReason: "matches the query"},
	})
	r.AppendResult(id, domain.BookWithReason{
		Book:     testBooks[1],
		Reason:   domain.Reason{LogicalReason: fallbackLogicalReason},
		Fallback: true,
	})
	r.Complete(id)

	snap, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPartialFailure, snap.Status)
	assert.Equal(t, []string{testBooks[1].Title}, snap.FailedBooks)
	assert.Len(t, snap.Results, 2)
}

func TestRegistry_TerminalStatusIsMonotonic(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := registerTask(t, r)
	require.NoError(t, r.MarkProcessing(id, "working"))
	r.Complete(id)

	// Nothing moves a terminal task backwards.
	assert.ErrorIs(t, r.MarkProcessing(id, "again"), ErrTaskTerminal)
	r.SetProgress(id, "ignored")
	r.AppendResult(id, domain.BookWithReason{Book: testBooks[0]})
	r.Fail(id, "ignored")

	snap, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "all reasons generated", snap.Progress)
	assert.Empty(t, snap.Results)
	assert.Empty(t, snap.Error)
}

func TestRegistry_Fail(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := registerTask(t, r)

	r.Fail(id, "internal error: boom")

	snap, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "internal error: boom", snap.Error)
}

func TestRegistry_Cancel(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := registerTask(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.BindCancel(id, cancel)

	require.NoError(t, r.Cancel(id))
	assert.Error(t, ctx.Err())

	snap, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "cancelled", snap.Error)

	assert.ErrorIs(t, r.Cancel(id), ErrTaskTerminal)
	assert.ErrorIs(t, r.Cancel(uuid.New()), ErrTaskNotFound)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := registerTask(t, r)
	require.NoError(t, r.MarkProcessing(id, "working"))
	r.AppendResult(id, domain.BookWithReason{Book: testBooks[0]})

	snap, err := r.Get(id)
	require.NoError(t, err)
	snap.Results[0].Title = "mutated"
	snap.Books[0].Title = "mutated"

	fresh, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, testBooks[0].Title, fresh.Results[0].Title)
	assert.Equal(t, testBooks[0].Title, fresh.Books[0].Title)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.StatusChangeEvent
}

func (e *recordingEmitter) EmitStatusChange(ctx context.Context, event *events.StatusChangeEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) transitions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.From+"->"+ev.To)
	}
	return out
}

func TestRegistry_EmitsStatusTransitions(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	emitter := &recordingEmitter{}
	r.SetEmitter(emitter)

	id := registerTask(t, r)
	require.NoError(t, r.MarkProcessing(id, "working"))
	r.AppendResult(id, domain.BookWithReason{Book: testBooks[0], Fallback: true})
	r.Complete(id)

	assert.Equal(t, []string{
		"pending->processing",
		"processing->partial_failure",
	}, emitter.transitions())
}

func TestRegistry_SweepEvictsExpired(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Hour, testLogger())
	id := registerTask(t, r)

	assert.Equal(t, 0, r.Sweep(time.Now()))

	removed := r.Sweep(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 1, removed)

	_, err := r.Get(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
