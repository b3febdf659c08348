package library

import (
	"strings"
	"unicode/utf8"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

// MatcherConfig holds the tunable matching policy. The weights and threshold
// were chosen empirically; treat them as policy, not contract.
type MatcherConfig struct {
	// MinQueryRunes rejects queries shorter than this many runes before any
	// scoring happens, to avoid premature matches on very short input.
	MinQueryRunes int

	// ScoreThreshold is the minimum fuzzy score a keyword must reach for its
	// book list to be returned.
	ScoreThreshold float64
}

// DefaultMatcherConfig returns the standard matcher policy.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		MinQueryRunes:  3,
		ScoreThreshold: 0.30,
	}
}

// Matcher resolves raw queries to catalog book lists. It first attempts an
// exact index lookup and only then falls back to fuzzy scoring. Matchers are
// pure over the immutable catalog and safe for concurrent use.
type Matcher struct {
	catalog *Catalog
	config  MatcherConfig
}

// NewMatcher creates a matcher over the given catalog. Zero config fields
// are replaced with defaults.
func NewMatcher(catalog *Catalog, config MatcherConfig) *Matcher {
	defaults := DefaultMatcherConfig()
	if config.MinQueryRunes <= 0 {
		config.MinQueryRunes = defaults.MinQueryRunes
	}
	if config.ScoreThreshold <= 0 {
		config.ScoreThreshold = defaults.ScoreThreshold
	}
	return &Matcher{catalog: catalog, config: config}
}

// FindBooks returns the book list for the best-matching keyword, or nil when
// the query is too short or no keyword clears the score threshold.
func (m *Matcher) FindBooks(query string) []domain.Book {
	normalized := Normalize(query)
	if utf8.RuneCountInString(strings.ReplaceAll(normalized, " ", "")) < m.config.MinQueryRunes {
		return nil
	}

	// Strict path: exact match against the precomputed index.
	if books, ok := m.catalog.lookupExact(normalized); ok {
		return books
	}

	bestKeyword := ""
	bestScore := 0.0
	for _, keyword := range m.catalog.Keywords() {
		score := matchScore(normalized, Normalize(keyword))
		if score > bestScore {
			bestScore = score
			bestKeyword = keyword
		}
	}

	if bestScore <= m.config.ScoreThreshold {
		return nil
	}
	return m.catalog.Books(bestKeyword)
}

// Scoring weights for matchScore. The sum of all weights is 1.0 so a perfect
// match scores 1.0.
const (
	weightKeywordCoverage = 0.25 // keyword tokens covered by query tokens
	weightQueryCoverage   = 0.10 // query tokens covered by keyword tokens
	weightJaccard         = 0.15 // token-set Jaccard similarity
	weightKeywordRunes    = 0.25 // keyword rune set covered by query runes
	weightQueryRunes      = 0.10 // query rune set covered by keyword runes
	weightSubstring       = 0.15 // flat bonus when one contains the other
)

// matchScore computes the weighted similarity between a normalized query and
// a normalized keyword. Both inputs must already be normalized.
func matchScore(query, keyword string) float64 {
	if query == "" || keyword == "" {
		return 0
	}

	queryTokens := tokenSet(query)
	keywordTokens := tokenSet(keyword)
	overlap := intersectionSize(queryTokens, keywordTokens)

	score := 0.0
	if len(keywordTokens) > 0 {
		score += weightKeywordCoverage * float64(overlap) / float64(len(keywordTokens))
	}
	if len(queryTokens) > 0 {
		score += weightQueryCoverage * float64(overlap) / float64(len(queryTokens))
	}
	if union := len(queryTokens) + len(keywordTokens) - overlap; union > 0 {
		score += weightJaccard * float64(overlap) / float64(union)
	}

	queryRunes := runeSet(query)
	keywordRunes := runeSet(keyword)
	runeOverlap := runeIntersectionSize(queryRunes, keywordRunes)
	if len(keywordRunes) > 0 {
		score += weightKeywordRunes * float64(runeOverlap) / float64(len(keywordRunes))
	}
	if len(queryRunes) > 0 {
		score += weightQueryRunes * float64(runeOverlap) / float64(len(queryRunes))
	}

	stripped := strings.ReplaceAll(query, " ", "")
	strippedKeyword := strings.ReplaceAll(keyword, " ", "")
	if strings.Contains(stripped, strippedKeyword) || strings.Contains(strippedKeyword, stripped) {
		score += weightSubstring
	}

	return score
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		set[token] = struct{}{}
	}
	return set
}

func intersectionSize(a, b map[string]struct{}) int {
	n := 0
	for token := range a {
		if _, ok := b[token]; ok {
			n++
		}
	}
	return n
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, r := range s {
		if r == ' ' {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}

func runeIntersectionSize(a, b map[rune]struct{}) int {
	n := 0
	for r := range a {
		if _, ok := b[r]; ok {
			n++
		}
	}
	return n
}
