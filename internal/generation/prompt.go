package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/shelfwise/shelfwise-api/internal/domain"
)

// SystemPrompt instructs the model to answer with a bare JSON object so the
// response can be parsed without scraping free text.
const SystemPrompt = `You are a professional librarian for a university library.
Given a reader's search query and one recommended book, explain why the book
fits the query. Respond with a single JSON object and nothing else, using the
keys "logical_reason" (required, 1-3 sentences connecting the query intent to
the book's core concepts) and "social_reason" (optional, one sentence about
which departments or reader groups borrow this book). Answer in the language
of the query.`

// defaultUserTemplate renders the per-book user message.
const defaultUserTemplate = `The reader searched for: "{{.Query}}"
Recommended book: "{{.Title}}" by {{.Author}} (ISBN {{.ISBN}}).{{if .Trend}}
Borrowing trend: {{.Trend}}.{{end}}`

var userTemplate = template.Must(template.New("reason").Parse(defaultUserTemplate))

// promptData carries the template inputs for one generation call.
type promptData struct {
	Query  string
	Title  string
	Author string
	ISBN   string
	Trend  string
}

// BuildUserPrompt renders the user message for one query/book pair. The query
// must be non-empty.
func BuildUserPrompt(query string, book domain.Book) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query cannot be empty", domain.ErrEmptyContent)
	}

	var buf bytes.Buffer
	err := userTemplate.Execute(&buf, promptData{
		Query:  query,
		Title:  book.Title,
		Author: book.Author,
		ISBN:   book.ISBN,
		Trend:  book.Trend,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// ParseReason extracts the Reason JSON object from a model reply. Models
// often wrap JSON in markdown fences or surrounding prose, so the parser
// tolerates both by cutting out the outermost braces before unmarshalling.
func ParseReason(text string) (*domain.Reason, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty model reply", ErrInvalidResponse)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in model reply", ErrInvalidResponse)
	}

	var reason domain.Reason
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &reason); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := reason.Validate(); err != nil {
		return nil, fmt.Errorf("%w: missing logical_reason", ErrInvalidResponse)
	}
	return &reason, nil
}
