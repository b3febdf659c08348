package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTask is a controllable Task for runner tests.
type fakeTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
	calls   atomic.Int64
}

func newFakeTask(execute func(ctx context.Context) error) *fakeTask {
	return &fakeTask{id: uuid.New(), execute: execute}
}

func (t *fakeTask) ID() uuid.UUID { return t.id }
func (t *fakeTask) Type() string  { return "fake" }

func (t *fakeTask) Execute(ctx context.Context) error {
	t.calls.Add(1)
	if t.execute != nil {
		return t.execute(ctx)
	}
	return nil
}

func newTestRunner(t *testing.T, config RunnerConfig) (*Runner, *Registry) {
	t.Helper()

	registry := newTestRegistry()
	runner := NewRunner(registry, NewDedupCache(time.Minute, testLogger()), config, testLogger())
	require.NoError(t, runner.Start())
	t.Cleanup(runner.Stop)
	return runner, registry
}

func TestRunner_ExecutesSubmittedTasks(t *testing.T) {
	t.Parallel()

	runner, _ := newTestRunner(t, RunnerConfig{WorkerCount: 3, QueueSize: 10})

	done := make(chan struct{})
	task := newFakeTask(func(ctx context.Context) error {
		close(done)
		return nil
	})

	require.NoError(t, runner.Submit(task))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task was never executed")
	}
	assert.Equal(t, int64(1), task.calls.Load())
}

func TestRunner_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	runner, _ := newTestRunner(t, RunnerConfig{WorkerCount: 3, QueueSize: 20})

	var running, peak atomic.Int64
	release := make(chan struct{})
	finished := make(chan struct{}, 10)

	for i := 0; i < 10; i++ {
		task := newFakeTask(func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			finished <- struct{}{}
			return nil
		})
		require.NoError(t, runner.Submit(task))
	}

	// Give the pool time to pick up work, then release everything.
	time.Sleep(200 * time.Millisecond)
	close(release)

	for i := 0; i < 10; i++ {
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatal("tasks did not finish")
		}
	}

	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Positive(t, peak.Load())
}

func TestRunner_QueueFull(t *testing.T) {
	t.Parallel()

	runner, _ := newTestRunner(t, RunnerConfig{WorkerCount: 1, QueueSize: 1})

	release := make(chan struct{})
	defer close(release)

	blocker := newFakeTask(func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, runner.Submit(blocker))

	// Wait until the worker has the blocker, so the queue slot is free again.
	require.Eventually(t, func() bool {
		return runner.Submit(newFakeTask(func(ctx context.Context) error {
			<-release
			return nil
		})) == nil
	}, 2*time.Second, 10*time.Millisecond)

	// Worker busy and queue occupied: the next submission is rejected.
	err := runner.Submit(newFakeTask(nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestRunner_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	runner, registry := newTestRunner(t, RunnerConfig{WorkerCount: 1, QueueSize: 10})

	panicking := newFakeTask(func(ctx context.Context) error {
		panic("boom")
	})
	registry.Register(panicking.ID(), "query", testBooks)
	require.NoError(t, runner.Submit(panicking))

	require.Eventually(t, func() bool {
		snap, err := registry.Get(panicking.ID())
		return err == nil && snap.Status == StatusError
	}, 5*time.Second, 10*time.Millisecond)

	snap, err := registry.Get(panicking.ID())
	require.NoError(t, err)
	assert.Contains(t, snap.Error, "internal error")

	// The worker survived and keeps processing.
	next := newFakeTask(nil)
	require.NoError(t, runner.Submit(next))
	require.Eventually(t, func() bool {
		return next.calls.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunner_StartTwiceFails(t *testing.T) {
	t.Parallel()

	runner := NewRunner(newTestRegistry(), nil, DefaultRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	assert.Error(t, runner.Start())
}
