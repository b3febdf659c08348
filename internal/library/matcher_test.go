package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()

	catalog, err := NewCatalog(nil)
	require.NoError(t, err)
	return NewMatcher(catalog, DefaultMatcherConfig())
}

func TestFindBooks_ShortQueriesRejected(t *testing.T) {
	t.Parallel()

	matcher := newTestMatcher(t)

	for _, query := range []string{"", " ", "a", "ab", "算法"} {
		assert.Empty(t, matcher.FindBooks(query), "query %q should not match", query)
	}
}

func TestFindBooks_ExactIndexLookup(t *testing.T) {
	t.Parallel()

	matcher := newTestMatcher(t)

	t.Run("case-insensitive exact keyword", func(t *testing.T) {
		t.Parallel()

		books := matcher.FindBooks("Python")
		require.Len(t, books, 3)
		assert.Equal(t, "Python编程：从入门到实践", books[0].Title)
	})

	t.Run("whitespace-stripped exact keyword", func(t *testing.T) {
		t.Parallel()

		books := matcher.FindBooks(" java ")
		require.Len(t, books, 3)
		assert.Equal(t, "Java核心技术", books[0].Title)
	})

	t.Run("CJK keyword", func(t *testing.T) {
		t.Parallel()

		books := matcher.FindBooks("计算机系统")
		require.Len(t, books, 3)
		assert.Equal(t, "深入理解计算机系统", books[0].Title)
	})
}

func TestFindBooks_FuzzyFallback(t *testing.T) {
	t.Parallel()

	matcher := newTestMatcher(t)

	t.Run("keyword embedded in longer query", func(t *testing.T) {
		t.Parallel()

		books := matcher.FindBooks("python编程")
		require.NotEmpty(t, books)
		assert.Equal(t, "9787115428028", books[0].ISBN)
	})

	t.Run("partial CJK query", func(t *testing.T) {
		t.Parallel()

		books := matcher.FindBooks("计算机")
		require.NotEmpty(t, books)
		assert.Equal(t, "深入理解计算机系统", books[0].Title)
	})

	t.Run("no match below threshold", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, matcher.FindBooks("zzz_no_match_xyz"))
	})
}

func TestFindBooks_ReturnsCopies(t *testing.T) {
	t.Parallel()

	matcher := newTestMatcher(t)

	first := matcher.FindBooks("python")
	require.NotEmpty(t, first)
	first[0].Title = "mutated"

	second := matcher.FindBooks("python")
	assert.Equal(t, "Python编程：从入门到实践", second[0].Title)
}

func TestFindBooks_CoverURLsFilled(t *testing.T) {
	t.Parallel()

	matcher := newTestMatcher(t)

	for _, book := range matcher.FindBooks("python") {
		assert.NotEmpty(t, book.CoverURL)
		assert.Contains(t, book.CoverURL, book.ISBN)
	}
}

func TestNewCatalog_RejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	t.Run("empty keyword", func(t *testing.T) {
		t.Parallel()

		_, err := NewCatalog(map[string][]domain.Book{
			"  ": {{Title: "t", ISBN: "1"}},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("book without ISBN", func(t *testing.T) {
		t.Parallel()

		_, err := NewCatalog(map[string][]domain.Book{
			"topic": {{Title: "t"}},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestMatchScore(t *testing.T) {
	t.Parallel()

	t.Run("identical strings score highest", func(t *testing.T) {
		t.Parallel()

		assert.InDelta(t, 1.0, matchScore("python", "python"), 1e-9)
	})

	t.Run("disjoint strings score zero", func(t *testing.T) {
		t.Parallel()

		assert.InDelta(t, 0.0, matchScore("abc", "xyz"), 1e-9)
	})

	t.Run("substring earns bonus", func(t *testing.T) {
		t.Parallel()

		with := matchScore("python编程", "python")
		without := matchScore("pytho编程", "python")
		assert.Greater(t, with, without)
	})
}
