package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/generation"
)

// Fallback reason text used when generation fails for a book. The book is
// still returned to the caller; only the reason is a placeholder.
const (
	fallbackLogicalReason = "暂时无法生成个性化推荐理由，这本书与你的检索高度相关。"
	fallbackSocialReason  = "该书在馆藏中评分较高，值得一读。"
)

// RecommendationTask generates recommendation reasons for every matched
// book of one submission. Each book gets its own goroutine; per-book
// failures degrade to a fallback reason rather than failing the task.
type RecommendationTask struct {
	id        uuid.UUID
	query     string
	books     []domain.Book
	generator generation.ReasonGenerator
	registry  *Registry
	logger    *slog.Logger
}

// NewRecommendationTask creates a task for the given submission.
func NewRecommendationTask(
	id uuid.UUID,
	query string,
	books []domain.Book,
	generator generation.ReasonGenerator,
	registry *Registry,
	logger *slog.Logger,
) (*RecommendationTask, error) {
	if id == uuid.Nil {
		return nil, errors.New("task ID cannot be nil")
	}
	if len(books) == 0 {
		return nil, errors.New("task needs at least one book")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &RecommendationTask{
		id:        id,
		query:     query,
		books:     books,
		generator: generator,
		registry:  registry,
		logger:    logger.With("task_id", id, "task_type", TypeReasonGeneration),
	}, nil
}

// ID implements Task.
func (t *RecommendationTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *RecommendationTask) Type() string { return TypeReasonGeneration }

// Execute implements Task. It fans out one goroutine per book, appends
// results to the registry as they finish, and finalizes the task status.
// Cancellation surfaces through ctx; the registry entry is already marked
// terminal by then, so the finalizing calls become no-ops.
func (t *RecommendationTask) Execute(ctx context.Context) error {
	if err := t.registry.MarkProcessing(t.id, fmt.Sprintf("generating reasons for %d books", len(t.books))); err != nil {
		if errors.Is(err, ErrTaskTerminal) {
			// Cancelled while still queued.
			t.logger.InfoContext(ctx, "skipping task finished before execution")
			return nil
		}
		return fmt.Errorf("failed to mark task processing: %w", err)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.registry.BindCancel(t.id, cancel)

	var done atomic.Int64
	total := len(t.books)

	var group errgroup.Group
	for _, book := range t.books {
		group.Go(func() error {
			result := t.generateOne(taskCtx, book)
			t.registry.AppendResult(t.id, result)
			t.registry.SetProgress(t.id, fmt.Sprintf("generated %d/%d reasons", done.Add(1), total))
			return nil
		})
	}

	// Workers never return errors; failures become fallback reasons.
	_ = group.Wait()

	if err := taskCtx.Err(); err != nil {
		t.logger.InfoContext(ctx, "task stopped before completion", "cause", err)
		return nil
	}

	t.registry.Complete(t.id)
	return nil
}

// generateOne produces the reason for a single book, degrading to the
// fallback placeholder when generation fails.
func (t *RecommendationTask) generateOne(ctx context.Context, book domain.Book) domain.BookWithReason {
	reason, err := t.generator.GenerateReason(ctx, t.query, book)
	if err != nil {
		t.logger.WarnContext(ctx, "reason generation failed, using fallback",
			"isbn", book.ISBN,
			"title", book.Title,
			"error", err)
		return domain.BookWithReason{
			Book: book,
			Reason: domain.Reason{
				LogicalReason: fallbackLogicalReason,
				SocialReason:  fallbackSocialReason,
			},
			Fallback: true,
		}
	}
	return domain.BookWithReason{Book: book, Reason: *reason}
}
