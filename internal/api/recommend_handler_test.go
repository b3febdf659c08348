package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/library"
	"github.com/shelfwise/shelfwise-api/internal/service"
	"github.com/shelfwise/shelfwise-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type generatorFunc func(ctx context.Context, query string, book domain.Book) (*domain.Reason, error)

func (f generatorFunc) GenerateReason(ctx context.Context, query string, book domain.Book) (*domain.Reason, error) {
	return f(ctx, query, book)
}

// newTestRouter wires a real service over the given generator behind the
// production route layout.
func newTestRouter(t *testing.T, gen generatorFunc) http.Handler {
	t.Helper()

	catalog, err := library.NewCatalog(nil)
	require.NoError(t, err)
	matcher := library.NewMatcher(catalog, library.DefaultMatcherConfig())

	registry := task.NewRegistry(time.Hour, testLogger())
	dedup := task.NewDedupCache(10*time.Second, testLogger())
	runner := task.NewRunner(registry, dedup, task.DefaultRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	t.Cleanup(runner.Stop)

	svc, err := service.NewRecommendService(matcher, gen, registry, dedup, runner, testLogger())
	require.NoError(t, err)

	handler := NewRecommendHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/books_with_reasons", handler.SubmitQuery)
		r.Get("/task_status/{task_id}", handler.TaskStatus)
		r.Delete("/task_status/{task_id}", handler.CancelTask)
	})
	return r
}

func instantGenerator() generatorFunc {
	return func(ctx context.Context, query string, book domain.Book) (*domain.Reason, error) {
		return &domain.Reason{
			LogicalReason: "系统讲解相关主题",
			SocialReason:  "读者好评率高",
		}, nil
	}
}

func blockedGenerator(release <-chan struct{}) generatorFunc {
	return func(ctx context.Context, query string, book domain.Book) (*domain.Reason, error) {
		select {
		case <-release:
			return &domain.Reason{LogicalReason: "released"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func submitQuery(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/books_with_reasons",
		bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSubmit(t *testing.T, rec *httptest.ResponseRecorder) SubmitResponse {
	t.Helper()

	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSubmitQuery_MatchedBooks(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, instantGenerator())

	rec := submitQuery(t, router, `{"query":"python"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSubmit(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "python", resp.UserQuery)
	assert.Len(t, resp.Books, 3)
	assert.NotEmpty(t, resp.TaskID)
	assert.True(t, resp.ReasonsLoading)
	assert.False(t, resp.FromCache)

	for _, book := range resp.Books {
		assert.NotEmpty(t, book.Title)
		assert.NotEmpty(t, book.ISBN)
		assert.NotEmpty(t, book.CoverURL)
		assert.True(t, book.ReasonsLoading)
	}
}

func TestSubmitQuery_NoMatch(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, instantGenerator())

	rec := submitQuery(t, router, `{"query":"zzz_no_match_xyz"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSubmit(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Empty(t, resp.Books)
	assert.Empty(t, resp.TaskID)
	assert.False(t, resp.ReasonsLoading)
}

func TestSubmitQuery_InvalidRequests(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, instantGenerator())

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"query":`},
		{"missing query", `{}`},
		{"empty query", `{"query":""}`},
		{"too short query", `{"query":"a"}`},
		{"whitespace query", `{"query":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := submitQuery(t, router, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "error", resp["status"])
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestSubmitQuery_DuplicateReusesTask(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, instantGenerator())

	first := decodeSubmit(t, submitQuery(t, router, `{"query":"python"}`))
	second := decodeSubmit(t, submitQuery(t, router, `{"query":"python"}`))

	assert.Equal(t, first.TaskID, second.TaskID)
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
}

func TestTaskStatus_CompletesWithReasons(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, instantGenerator())

	submitted := decodeSubmit(t, submitQuery(t, router, `{"query":"python"}`))
	require.NotEmpty(t, submitted.TaskID)

	var status TaskStatusResponse
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/task_status/"+submitted.TaskID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
		return status.Status == string(task.StatusCompleted)
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, submitted.TaskID, status.TaskID)
	assert.Equal(t, "python", status.UserQuery)
	assert.Equal(t, 3, status.TotalBooks)
	assert.Len(t, status.Books, 3)
	assert.Empty(t, status.FailedBooks)
	for _, book := range status.Books {
		assert.NotEmpty(t, book.LogicalReason)
		assert.False(t, book.Fallback)
	}
}

func TestTaskStatus_UnknownAndInvalidIDs(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, instantGenerator())

	req := httptest.NewRequest(http.MethodGet, "/api/task_status/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/task_status/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelTask(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	router := newTestRouter(t, blockedGenerator(release))

	submitted := decodeSubmit(t, submitQuery(t, router, `{"query":"python"}`))
	require.NotEmpty(t, submitted.TaskID)

	req := httptest.NewRequest(http.MethodDelete, "/api/task_status/"+submitted.TaskID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var cancelResp CancelResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cancelResp))
	assert.Equal(t, "success", cancelResp.Status)
	assert.Equal(t, submitted.TaskID, cancelResp.TaskID)

	// Polling now reports the terminal error status.
	req = httptest.NewRequest(http.MethodGet, "/api/task_status/"+submitted.TaskID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status TaskStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, string(task.StatusError), status.Status)
	assert.Equal(t, "cancelled", status.Error)

	// A second cancel conflicts.
	req = httptest.NewRequest(http.MethodDelete, "/api/task_status/"+submitted.TaskID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelTask_Unknown(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, instantGenerator())

	req := httptest.NewRequest(http.MethodDelete, "/api/task_status/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
