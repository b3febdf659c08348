package domain

import (
	"fmt"
	"strings"
)

// Book represents a single catalog entry. Books are loaded once at startup
// and never mutated afterwards; augmenting a book with generated reasons
// always operates on a copy.
type Book struct {
	// Title is the book's display title.
	Title string `json:"title"`

	// Author is the author line as printed in the catalog.
	Author string `json:"author"`

	// ISBN uniquely identifies the book within the catalog.
	ISBN string `json:"isbn"`

	// CoverURL points at a cover image for the book.
	CoverURL string `json:"cover_url"`

	// MatchStars is an optional editorial match weight (1-3) used by the
	// front-end to order results. Zero means unweighted.
	MatchStars int `json:"match_stars,omitempty"`

	// Trend is an optional social/trend annotation carried through from the
	// catalog, e.g. "rising". Empty when absent.
	Trend string `json:"trend,omitempty"`
}

// Validate checks that the book carries the fields every consumer relies on.
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: book title cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(b.ISBN) == "" {
		return fmt.Errorf("%w: book ISBN cannot be empty", ErrValidation)
	}
	return nil
}

// Reason holds the generated justification text for one recommended book.
// LogicalReason is always present on a successful generation; SocialReason
// is optional and may be empty when the model omits it.
type Reason struct {
	LogicalReason string `json:"logical_reason"`
	SocialReason  string `json:"social_reason,omitempty"`
}

// Validate checks that a generated reason is usable.
func (r Reason) Validate() error {
	if strings.TrimSpace(r.LogicalReason) == "" {
		return fmt.Errorf("%w: logical reason cannot be empty", ErrValidation)
	}
	return nil
}

// BookWithReason is a Book copy augmented with its generated reason. Failed
// generations substitute a placeholder reason and set Fallback.
type BookWithReason struct {
	Book
	Reason

	// Fallback marks books whose reason is a default placeholder because
	// generation exhausted its retry budget.
	Fallback bool `json:"fallback,omitempty"`
}
