package api

import (
	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/task"
)

// SubmitRequest is the body of POST /api/books_with_reasons.
type SubmitRequest struct {
	Query string `json:"query" validate:"required"`
}

// BookResponse is a matched book as returned by the submission endpoint,
// before any reasons exist.
type BookResponse struct {
	Title          string `json:"title"`
	Author         string `json:"author"`
	ISBN           string `json:"isbn"`
	CoverURL       string `json:"cover_url"`
	MatchStars     int    `json:"match_stars,omitempty"`
	Trend          string `json:"trend,omitempty"`
	ReasonsLoading bool   `json:"reasons_loading"`
}

// SubmitResponse is the synchronous reply to a recommendation submission.
// Reasons arrive later through the task status endpoint.
type SubmitResponse struct {
	Status         string         `json:"status"`
	UserQuery      string         `json:"user_query"`
	Books          []BookResponse `json:"books"`
	TaskID         string         `json:"task_id,omitempty"`
	ReasonsLoading bool           `json:"reasons_loading"`
	FromCache      bool           `json:"from_cache"`
}

// BookWithReasonResponse is a book augmented with its generated reason.
type BookWithReasonResponse struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	CoverURL      string `json:"cover_url"`
	MatchStars    int    `json:"match_stars,omitempty"`
	Trend         string `json:"trend,omitempty"`
	LogicalReason string `json:"logical_reason"`
	SocialReason  string `json:"social_reason,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
}

// TaskStatusResponse is the reply to a task status poll. Books holds the
// results generated so far; it grows across polls until the task reaches a
// terminal status.
type TaskStatusResponse struct {
	TaskID      string                   `json:"task_id"`
	Status      string                   `json:"status"`
	Progress    string                   `json:"progress"`
	UserQuery   string                   `json:"user_query"`
	TotalBooks  int                      `json:"total_books"`
	Books       []BookWithReasonResponse `json:"books"`
	FailedBooks []string                 `json:"failed_books,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// CancelResponse is the reply to an accepted cancellation.
type CancelResponse struct {
	Status  string `json:"status"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func bookToResponse(book domain.Book) BookResponse {
	return BookResponse{
		Title:          book.Title,
		Author:         book.Author,
		ISBN:           book.ISBN,
		CoverURL:       book.CoverURL,
		MatchStars:     book.MatchStars,
		Trend:          book.Trend,
		ReasonsLoading: true,
	}
}

func bookWithReasonToResponse(result domain.BookWithReason) BookWithReasonResponse {
	return BookWithReasonResponse{
		Title:         result.Title,
		Author:        result.Author,
		ISBN:          result.ISBN,
		CoverURL:      result.CoverURL,
		MatchStars:    result.MatchStars,
		Trend:         result.Trend,
		LogicalReason: result.LogicalReason,
		SocialReason:  result.SocialReason,
		Fallback:      result.Fallback,
	}
}

func snapshotToResponse(snap task.Snapshot) TaskStatusResponse {
	books := make([]BookWithReasonResponse, 0, len(snap.Results))
	for _, result := range snap.Results {
		books = append(books, bookWithReasonToResponse(result))
	}
	return TaskStatusResponse{
		TaskID:      snap.TaskID.String(),
		Status:      string(snap.Status),
		Progress:    snap.Progress,
		UserQuery:   snap.Query,
		TotalBooks:  len(snap.Books),
		Books:       books,
		FailedBooks: snap.FailedBooks,
		Error:       snap.Error,
	}
}
