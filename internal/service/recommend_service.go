// Package service provides the application-level recommendation workflow:
// matching queries against the catalog, deduplicating submissions, and
// dispatching background reason generation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/generation"
	"github.com/shelfwise/shelfwise-api/internal/library"
	"github.com/shelfwise/shelfwise-api/internal/task"
)

// MinQueryRunes is the minimum query length accepted by Submit. Shorter
// queries are rejected before the matcher ever sees them.
const MinQueryRunes = 2

// SubmitResult is the synchronous outcome of a recommendation submission.
// Reasons are generated asynchronously; callers poll with the task ID.
type SubmitResult struct {
	// Query is the trimmed query the matcher ran against.
	Query string

	// Books are the matched catalog entries, without reasons.
	Books []domain.Book

	// TaskID identifies the background reason-generation task.
	// uuid.Nil when no books matched and no task was created.
	TaskID uuid.UUID

	// FromCache is true when an identical recent submission was reused
	// instead of spawning a new task.
	FromCache bool
}

// RecommendService coordinates catalog matching with the background task
// pipeline. It is safe for concurrent use.
type RecommendService struct {
	matcher   *library.Matcher
	generator generation.ReasonGenerator
	registry  *task.Registry
	dedup     *task.DedupCache
	runner    *task.Runner
	logger    *slog.Logger
}

// NewRecommendService creates a RecommendService with the given dependencies.
func NewRecommendService(
	matcher *library.Matcher,
	generator generation.ReasonGenerator,
	registry *task.Registry,
	dedup *task.DedupCache,
	runner *task.Runner,
	logger *slog.Logger,
) (*RecommendService, error) {
	if matcher == nil {
		return nil, errors.New("matcher cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if dedup == nil {
		return nil, errors.New("dedup cache cannot be nil")
	}
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &RecommendService{
		matcher:   matcher,
		generator: generator,
		registry:  registry,
		dedup:     dedup,
		runner:    runner,
		logger:    logger,
	}, nil
}

// Submit matches the query against the catalog and, when books match,
// ensures a background reason-generation task exists for them. It returns
// immediately; reason generation never blocks the caller.
func (s *RecommendService) Submit(ctx context.Context, query string) (*SubmitResult, error) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < MinQueryRunes {
		return nil, fmt.Errorf("%w: need at least %d characters", domain.ErrQueryTooShort, MinQueryRunes)
	}

	books := s.matcher.FindBooks(trimmed)
	if len(books) == 0 {
		s.logger.InfoContext(ctx, "no books matched query", "query", trimmed)
		return &SubmitResult{Query: trimmed, Books: []domain.Book{}}, nil
	}

	signature := task.Signature(library.Normalize(trimmed), books)
	if existingID, ok := s.dedup.Lookup(signature); ok {
		if _, err := s.registry.Get(existingID); err == nil {
			s.logger.InfoContext(ctx, "reusing recent identical submission",
				"query", trimmed,
				"task_id", existingID)
			return &SubmitResult{
				Query:     trimmed,
				Books:     books,
				TaskID:    existingID,
				FromCache: true,
			}, nil
		}
		// The registry swept the task out from under the dedup entry.
	}

	taskID := uuid.New()
	s.registry.Register(taskID, trimmed, books)

	recTask, err := task.NewRecommendationTask(taskID, trimmed, books, s.generator, s.registry, s.logger)
	if err != nil {
		s.registry.Fail(taskID, "failed to build task")
		return nil, fmt.Errorf("failed to build recommendation task: %w", err)
	}

	if err := s.runner.Submit(recTask); err != nil {
		s.registry.Fail(taskID, "server busy, task rejected")
		return nil, fmt.Errorf("failed to enqueue recommendation task: %w", err)
	}

	s.dedup.Store(signature, taskID)
	s.logger.InfoContext(ctx, "recommendation task submitted",
		"query", trimmed,
		"task_id", taskID,
		"matched_books", len(books))

	return &SubmitResult{Query: trimmed, Books: books, TaskID: taskID}, nil
}

// TaskStatus returns the current snapshot of a task, or task.ErrTaskNotFound
// for unknown or expired IDs.
func (s *RecommendService) TaskStatus(ctx context.Context, id uuid.UUID) (task.Snapshot, error) {
	return s.registry.Get(id)
}

// CancelTask aborts an in-flight task. It returns task.ErrTaskNotFound for
// unknown IDs and task.ErrTaskTerminal when the task already finished.
func (s *RecommendService) CancelTask(ctx context.Context, id uuid.UUID) error {
	return s.registry.Cancel(id)
}
