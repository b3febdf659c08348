package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunnerConfig holds the settings for the background task runner.
type RunnerConfig struct {
	// WorkerCount is the number of goroutines pulling tasks off the queue.
	WorkerCount int

	// QueueSize is the capacity of the buffered submission channel.
	QueueSize int

	// SweepInterval is how often the registry and dedup sweepers run.
	SweepInterval time.Duration
}

// DefaultRunnerConfig returns the standard runner settings: three workers,
// a queue deep enough for request bursts, and a one minute sweep cadence.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:   3,
		QueueSize:     100,
		SweepInterval: time.Minute,
	}
}

// ErrQueueFull is returned by Submit when the task queue has no capacity.
var ErrQueueFull = errors.New("task queue is full")

// Runner executes submitted tasks on a fixed pool of worker goroutines.
// Submission is non-blocking; when all workers are busy and the queue is
// full the caller gets ErrQueueFull instead of waiting.
type Runner struct {
	registry *Registry
	dedup    *DedupCache
	config   RunnerConfig
	logger   *slog.Logger

	queue  chan Task
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewRunner creates a Runner wired to the given registry and dedup cache.
func NewRunner(registry *Registry, dedup *DedupCache, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRunnerConfig().QueueSize
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultRunnerConfig().SweepInterval
	}
	return &Runner{
		registry: registry,
		dedup:    dedup,
		config:   config,
		logger:   logger,
		queue:    make(chan Task, config.QueueSize),
	}
}

// Start launches the worker pool and the background sweepers. It is an
// error to start a runner twice.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.New("runner already started")
	}
	r.started = true

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	go r.registry.StartSweeper(ctx, r.config.SweepInterval)
	if r.dedup != nil {
		go r.dedup.StartSweeper(ctx, r.config.SweepInterval)
	}

	r.logger.Info("task runner started", "workers", r.config.WorkerCount)
	return nil
}

// Stop signals the workers to finish and waits for in-flight tasks to
// complete.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// Submit enqueues a task for execution without blocking.
func (r *Runner) Submit(t Task) error {
	select {
	case r.queue <- t:
		r.logger.Debug("task enqueued", "task_id", t.ID(), "task_type", t.Type())
		return nil
	default:
		return fmt.Errorf("%w: task %s rejected", ErrQueueFull, t.ID())
	}
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.queue:
			r.run(ctx, t, id)
		}
	}
}

// run executes one task, recovering from panics so a misbehaving task
// cannot take down its worker.
func (r *Runner) run(ctx context.Context, t Task, workerID int) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"panic", rec)
			r.registry.Fail(t.ID(), fmt.Sprintf("internal error: %v", rec))
		}
	}()

	start := time.Now()
	r.logger.Info("task started",
		"task_id", t.ID(),
		"task_type", t.Type(),
		"worker", workerID)

	if err := t.Execute(ctx); err != nil {
		r.logger.Error("task failed",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}

	r.logger.Info("task finished",
		"task_id", t.ID(),
		"task_type", t.Type(),
		"duration_ms", time.Since(start).Milliseconds())
}
