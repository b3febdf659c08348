package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

// RetryPolicy parameterizes the retry behavior shared by every backend.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is the first backoff delay; subsequent delays grow
	// exponentially with jitter.
	BaseDelay time.Duration

	// AttemptTimeout bounds each individual generation call.
	AttemptTimeout time.Duration

	// TotalBudget bounds the wall-clock time across all attempts and
	// backoff delays. Once exhausted, the call gives up.
	TotalBudget time.Duration
}

// DefaultRetryPolicy returns the policy used for per-book generation calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		BaseDelay:      2 * time.Second,
		AttemptTimeout: 10 * time.Second,
		TotalBudget:    20 * time.Second,
	}
}

// RetryGenerator decorates a ReasonGenerator with the unified retry policy:
// bounded attempts, per-attempt timeout, exponential backoff with jitter, and
// a total wall-clock budget. Permanent errors (malformed responses, safety
// blocks) are returned immediately without retrying.
type RetryGenerator struct {
	inner  ReasonGenerator
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetryGenerator wraps inner with the given policy. Zero policy fields are
// replaced with defaults.
func NewRetryGenerator(inner ReasonGenerator, policy RetryPolicy, logger *slog.Logger) (*RetryGenerator, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: inner generator cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	defaults := DefaultRetryPolicy()
	if policy.MaxRetries < 0 {
		policy.MaxRetries = defaults.MaxRetries
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = defaults.BaseDelay
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = defaults.AttemptTimeout
	}
	if policy.TotalBudget <= 0 {
		policy.TotalBudget = defaults.TotalBudget
	}

	return &RetryGenerator{inner: inner, policy: policy, logger: logger}, nil
}

// GenerateReason calls the wrapped backend under the retry policy.
func (g *RetryGenerator) GenerateReason(
	ctx context.Context,
	query string,
	book domain.Book,
) (*domain.Reason, error) {
	ctx, cancel := context.WithTimeout(ctx, g.policy.TotalBudget)
	defer cancel()

	backoff := retry.NewExponential(g.policy.BaseDelay)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(uint64(g.policy.MaxRetries), backoff)

	attempt := 0
	var reason *domain.Reason

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptCtx, cancelAttempt := context.WithTimeout(ctx, g.policy.AttemptTimeout)
		defer cancelAttempt()

		result, err := g.inner.GenerateReason(attemptCtx, query, book)
		if err == nil {
			reason = result
			return nil
		}

		g.logger.WarnContext(ctx, "reason generation attempt failed",
			"attempt", attempt,
			"isbn", book.ISBN,
			"error", err)

		if IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if IsPermanent(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: exhausted retry budget after %d attempts: %v",
			ErrTransientFailure, attempt, err)
	}

	return reason, nil
}
