// Package openaicompat implements the generation.ReasonGenerator interface
// against any chat-completion endpoint speaking the OpenAI wire format. The
// OpenAI, Spark, and Qwen services all expose this shape, so one adapter with
// a configurable base URL covers all three.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/generation"
)

// Config holds the settings for one OpenAI-compatible backend.
type Config struct {
	// APIKey authenticates against the endpoint. Required.
	APIKey string

	// BaseURL overrides the endpoint, e.g. the Spark or Qwen compatible-mode
	// URL. Empty means the default OpenAI endpoint.
	BaseURL string

	// Model names the chat model to use. Required.
	Model string

	// Temperature controls sampling; zero uses the service default.
	Temperature float32

	// MaxTokens caps the reply length; zero uses the service default.
	MaxTokens int
}

// Generator calls a chat-completion endpoint to produce recommendation
// reasons. It performs exactly one attempt per call; retry behavior belongs
// to the generation.RetryGenerator decorating it.
type Generator struct {
	client *openai.Client
	config Config
	logger *slog.Logger
}

// NewGenerator creates a Generator for the configured endpoint.
func NewGenerator(config Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// GenerateReason implements generation.ReasonGenerator.
func (g *Generator) GenerateReason(
	ctx context.Context,
	query string,
	book domain.Book,
) (*domain.Reason, error) {
	userPrompt, err := generation.BuildUserPrompt(query, book)
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "calling chat-completion endpoint",
		"model", g.config.Model,
		"isbn", book.ISBN)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generation.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in completion", generation.ErrInvalidResponse)
	}

	reason, err := generation.ParseReason(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "chat-completion call succeeded", "isbn", book.ISBN)
	return reason, nil
}

// classifyError maps transport and API errors onto the generation taxonomy.
// Rate limits and server-side failures are transient; auth and bad-request
// errors will not improve on retry.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized,
			apiErr.HTTPStatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: authentication rejected: %v", generation.ErrInvalidConfig, err)
		default:
			return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}
	}

	// Anything else is a transport-level failure worth retrying.
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}
