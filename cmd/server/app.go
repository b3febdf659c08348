package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwise/shelfwise-api/internal/config"
	"github.com/shelfwise/shelfwise-api/internal/events"
	"github.com/shelfwise/shelfwise-api/internal/generation"
	"github.com/shelfwise/shelfwise-api/internal/library"
	"github.com/shelfwise/shelfwise-api/internal/platform/gemini"
	"github.com/shelfwise/shelfwise-api/internal/platform/openaicompat"
	"github.com/shelfwise/shelfwise-api/internal/service"
	"github.com/shelfwise/shelfwise-api/internal/task"
)

// application holds the wired components of the running server.
type application struct {
	config           *config.Config
	logger           *slog.Logger
	recommendService *service.RecommendService
	runner           *task.Runner
}

// newApplication builds the full dependency graph: catalog, matcher, LLM
// backends with retry and fallback, task pipeline, and the recommend
// service on top.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	catalog, err := library.NewCatalog(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	matcher := library.NewMatcher(catalog, library.MatcherConfig{
		MinQueryRunes:  cfg.Matcher.MinQueryRunes,
		ScoreThreshold: cfg.Matcher.ScoreThreshold,
	})

	generator, err := buildGenerator(ctx, &cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator: %w", err)
	}

	registry := task.NewRegistry(cfg.Task.RetentionWindow, logger)

	emitter := events.NewInMemoryEmitter(logger)
	emitter.RegisterHandler(events.NewLoggingHandler(logger))
	registry.SetEmitter(emitter)

	dedup := task.NewDedupCache(cfg.Dedup.Window, logger)
	runner := task.NewRunner(registry, dedup, task.RunnerConfig{
		WorkerCount:   cfg.Task.WorkerCount,
		QueueSize:     cfg.Task.QueueSize,
		SweepInterval: cfg.Task.SweepInterval,
	}, logger)

	recommendService, err := service.NewRecommendService(
		matcher, generator, registry, dedup, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build recommend service: %w", err)
	}

	return &application{
		config:           cfg,
		logger:           logger,
		recommendService: recommendService,
		runner:           runner,
	}, nil
}

// run starts the task runner and the HTTP server, blocking until shutdown.
func (app *application) run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup stops the background components during shutdown.
func (app *application) cleanup() {
	app.runner.Stop()
}

// buildGenerator assembles the reason generator: the configured primary
// backend wrapped in the retry policy, plus an optional fallback backend
// routed to when the primary exhausts its budget.
func buildGenerator(ctx context.Context, cfg *config.LLMConfig, logger *slog.Logger) (generation.ReasonGenerator, error) {
	policy := generation.RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.RetryDelay,
		AttemptTimeout: cfg.CallTimeout,
		TotalBudget:    cfg.TotalBudget,
	}

	primary, err := buildBackend(ctx, backendSettings{
		provider:    cfg.Provider,
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, logger)
	if err != nil {
		return nil, err
	}

	primaryWithRetry, err := generation.NewRetryGenerator(primary, policy, logger)
	if err != nil {
		return nil, err
	}

	if cfg.FallbackProvider == "" {
		return primaryWithRetry, nil
	}

	fallback, err := buildBackend(ctx, backendSettings{
		provider:    cfg.FallbackProvider,
		apiKey:      cfg.FallbackAPIKey,
		baseURL:     cfg.FallbackBaseURL,
		model:       cfg.FallbackModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build fallback backend: %w", err)
	}

	fallbackWithRetry, err := generation.NewRetryGenerator(fallback, policy, logger)
	if err != nil {
		return nil, err
	}

	return generation.NewRouter(primaryWithRetry, fallbackWithRetry, logger)
}

// backendSettings is the provider-independent subset of LLM configuration
// needed to construct one backend.
type backendSettings struct {
	provider    string
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
}

// buildBackend constructs a single LLM backend. The spark and qwen
// providers speak the chat-completion wire format on vendor endpoints, so
// they share the OpenAI-compatible client.
func buildBackend(ctx context.Context, settings backendSettings, logger *slog.Logger) (generation.ReasonGenerator, error) {
	switch settings.provider {
	case "openai", "spark", "qwen":
		return openaicompat.NewGenerator(openaicompat.Config{
			APIKey:      settings.apiKey,
			BaseURL:     settings.baseURL,
			Model:       settings.model,
			Temperature: settings.temperature,
			MaxTokens:   settings.maxTokens,
		}, logger.With("backend", settings.provider))
	case "gemini":
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey:      settings.apiKey,
			Model:       settings.model,
			Temperature: settings.temperature,
			MaxTokens:   settings.maxTokens,
		}, logger.With("backend", settings.provider))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", settings.provider)
	}
}

// shutdownTimeout bounds how long graceful shutdown may take.
const shutdownTimeout = 10 * time.Second
