package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shelfwise/shelfwise-api/internal/api"
	apiMiddleware "github.com/shelfwise/shelfwise-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	recommendHandler := api.NewRecommendHandler(app.recommendService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/books_with_reasons", recommendHandler.SubmitQuery)
		r.Get("/task_status/{task_id}", recommendHandler.TaskStatus)
		r.Delete("/task_status/{task_id}", recommendHandler.CancelTask)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
