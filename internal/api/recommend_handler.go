// Package api exposes the recommendation pipeline over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/api/shared"
	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/service"
)

// RecommendHandler handles recommendation and task status HTTP requests.
type RecommendHandler struct {
	recommendService *service.RecommendService
	logger           *slog.Logger
}

// NewRecommendHandler creates a RecommendHandler.
func NewRecommendHandler(recommendService *service.RecommendService, logger *slog.Logger) *RecommendHandler {
	return &RecommendHandler{
		recommendService: recommendService,
		logger:           logger,
	}
}

// SubmitQuery handles POST /api/books_with_reasons. It returns matched books
// immediately with a task ID; reasons are generated in the background and
// fetched through TaskStatus.
func (h *RecommendHandler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Query is required")
		return
	}

	result, err := h.recommendService.Submit(r.Context(), req.Query)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	books := make([]BookResponse, 0, len(result.Books))
	for _, book := range result.Books {
		books = append(books, bookToResponse(book))
	}

	response := SubmitResponse{
		Status:         "success",
		UserQuery:      result.Query,
		Books:          books,
		ReasonsLoading: len(books) > 0,
		FromCache:      result.FromCache,
	}
	if result.TaskID != uuid.Nil {
		response.TaskID = result.TaskID.String()
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// TaskStatus handles GET /api/task_status/{task_id}. While the task is
// processing the books list holds the reasons generated so far.
func (h *RecommendHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	snap, err := h.recommendService.TaskStatus(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(snap))
}

// CancelTask handles DELETE /api/task_status/{task_id}. Cancelling an
// in-flight task terminates it; finished tasks cannot be cancelled.
func (h *RecommendHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	if err := h.recommendService.CancelTask(r.Context(), taskID); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, CancelResponse{
		Status:  "success",
		TaskID:  taskID.String(),
		Message: "Task cancelled",
	})
}

// parseTaskID extracts and validates the task_id URL parameter.
func parseTaskID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "task_id")
	taskID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidID, err)
	}
	return taskID, nil
}
