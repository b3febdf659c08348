package generation

import (
	"context"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

// ReasonGenerator defines the interface for producing recommendation
// justifications. It is the boundary between the application core and the
// external LLM services; implementations live under internal/platform.
//
// GenerateReason returns a structured Reason or an error. The error return is
// the authoritative success signal; callers must never infer failure from the
// generated text itself.
type ReasonGenerator interface {
	// GenerateReason produces the logical (and optionally social)
	// justification for recommending book against the user's query.
	//
	// Parameters:
	//   - ctx: Context for the operation, used for cancellation and deadlines
	//   - query: The user's raw search query
	//   - book: The catalog book being justified
	//
	// Returns the generated reason, or an error classified by the sentinel
	// errors in errors.go.
	GenerateReason(ctx context.Context, query string, book domain.Book) (*domain.Reason, error)
}
