package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

// Router selects between a primary and an optional fallback backend. The
// fallback is consulted after the primary fails, typically once the
// RetryGenerator wrapping the primary has exhausted its budget.
type Router struct {
	primary  ReasonGenerator
	fallback ReasonGenerator
	logger   *slog.Logger
}

// NewRouter creates a router. fallback may be nil when only one backend is
// configured.
func NewRouter(primary, fallback ReasonGenerator, logger *slog.Logger) (*Router, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: primary generator cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}
	return &Router{primary: primary, fallback: fallback, logger: logger}, nil
}

// GenerateReason tries the primary backend and falls back when one is
// configured, unless the caller's context already expired.
func (r *Router) GenerateReason(
	ctx context.Context,
	query string,
	book domain.Book,
) (*domain.Reason, error) {
	reason, err := r.primary.GenerateReason(ctx, query, book)
	if err == nil {
		return reason, nil
	}

	if r.fallback == nil || ctx.Err() != nil {
		return nil, err
	}

	r.logger.WarnContext(ctx, "primary backend failed, trying fallback",
		"isbn", book.ISBN,
		"error", err)

	reason, fallbackErr := r.fallback.GenerateReason(ctx, query, book)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w (fallback also failed: %v)", err, fallbackErr)
	}
	return reason, nil
}
