// Package library holds the static recommendation catalog and the query
// matching logic that maps a raw search string onto a keyword's book list.
package library

import (
	"fmt"
	"strings"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

// coverURLTemplate derives a cover image location from a book's ISBN.
const coverURLTemplate = "https://covers.openlibrary.org/b/isbn/%s-M.jpg"

// defaultEntries is the built-in catalog: curated subject keywords mapped to
// their recommended books. Extend it here when new subjects are added.
var defaultEntries = map[string][]domain.Book{
	"计算机系统": {
		{Title: "深入理解计算机系统", Author: "Randal E. Bryant, David R. O'Hallaron", ISBN: "9787111321312", MatchStars: 3},
		{Title: "计算机组成与设计：硬件/软件接口", Author: "David A. Patterson, John L. Hennessy", ISBN: "9787111641359", MatchStars: 2},
		{Title: "编码：隐匿在计算机软硬件背后的语言", Author: "Charles Petzold", ISBN: "9787121181184", MatchStars: 1},
	},
	"算法科学": {
		{Title: "算法导论", Author: "Thomas H. Cormen, Charles E. Leiserson", ISBN: "9787111187776", MatchStars: 3},
		{Title: "算法（第4版）", Author: "Robert Sedgewick, Kevin Wayne", ISBN: "9787115293800", MatchStars: 2},
		{Title: "学习JavaScript数据结构与算法", Author: "Loiane Groner", ISBN: "9787115458315", MatchStars: 1},
	},
	"Java": {
		{Title: "Java核心技术", Author: "Cay S. Horstmann", ISBN: "9787111213826", MatchStars: 3},
		{Title: "深入理解Java虚拟机", Author: "周志明", ISBN: "9787111608291", MatchStars: 2},
		{Title: "Effective Java中文版", Author: "Joshua Bloch", ISBN: "9787111604088", MatchStars: 1},
	},
	"python": {
		{Title: "Python编程：从入门到实践", Author: "Eric Matthes", ISBN: "9787115428028", MatchStars: 3, Trend: "rising"},
		{Title: "流畅的Python", Author: "Luciano Ramalho", ISBN: "9787115453655", MatchStars: 2},
		{Title: "Python学习手册", Author: "Mark Lutz", ISBN: "9787564147942", MatchStars: 1},
	},
	"未来教育": {
		{Title: "未来教育 : 教育改革的未来", Author: "赵慧著", ISBN: "9787511569684", MatchStars: 3},
		{Title: "超级AI与未来教育", Author: "李骏翼", ISBN: "9787500174943", MatchStars: 2, Trend: "rising"},
		{Title: "人工智能与未来教育", Author: "潘巧明", ISBN: "9787301339381", MatchStars: 1},
	},
}

// Catalog is the immutable in-memory book table plus a precomputed exact
// index over normalized, whitespace-stripped keywords. A Catalog is safe for
// concurrent use once constructed.
type Catalog struct {
	entries map[string][]domain.Book

	// exact maps strippedLower(keyword) -> keyword for the O(1) strict path.
	exact map[string]string
}

// NewCatalog builds a catalog from the given keyword table, filling in cover
// URLs for entries that lack one. Passing nil uses the built-in catalog.
func NewCatalog(entries map[string][]domain.Book) (*Catalog, error) {
	if entries == nil {
		entries = defaultEntries
	}

	c := &Catalog{
		entries: make(map[string][]domain.Book, len(entries)),
		exact:   make(map[string]string, len(entries)),
	}

	for keyword, books := range entries {
		if strings.TrimSpace(keyword) == "" {
			return nil, fmt.Errorf("%w: catalog keyword cannot be empty", domain.ErrValidation)
		}

		copied := make([]domain.Book, len(books))
		for i, book := range books {
			if err := book.Validate(); err != nil {
				return nil, fmt.Errorf("catalog entry %q: %w", keyword, err)
			}
			if book.CoverURL == "" {
				book.CoverURL = fmt.Sprintf(coverURLTemplate, book.ISBN)
			}
			copied[i] = book
		}

		c.entries[keyword] = copied
		c.exact[strippedKey(keyword)] = keyword
	}

	return c, nil
}

// Keywords returns the catalog's keyword set. Order is unspecified.
func (c *Catalog) Keywords() []string {
	keywords := make([]string, 0, len(c.entries))
	for keyword := range c.entries {
		keywords = append(keywords, keyword)
	}
	return keywords
}

// Books returns a copy of the book list for the given keyword, or nil if the
// keyword is unknown. Callers may freely mutate the returned slice.
func (c *Catalog) Books(keyword string) []domain.Book {
	books, ok := c.entries[keyword]
	if !ok {
		return nil
	}
	out := make([]domain.Book, len(books))
	copy(out, books)
	return out
}

// lookupExact resolves a normalized, whitespace-stripped query against the
// precomputed index without touching the fuzzy scorer.
func (c *Catalog) lookupExact(query string) ([]domain.Book, bool) {
	keyword, ok := c.exact[strippedKey(query)]
	if !ok {
		return nil, false
	}
	return c.Books(keyword), true
}

// strippedKey lowercases and removes all whitespace so that "Java " and
// "java" index the same entry.
func strippedKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
