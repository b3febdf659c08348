// Package gemini implements the generation.ReasonGenerator interface using
// Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/shelfwise/shelfwise-api/internal/domain"
	"github.com/shelfwise/shelfwise-api/internal/generation"
)

// Config holds the Gemini backend settings.
type Config struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Model names the Gemini model to use. Required.
	Model string

	// Temperature controls sampling; zero uses the service default.
	Temperature float32

	// MaxTokens caps the reply length; zero uses the service default.
	MaxTokens int
}

// Generator calls the Gemini API to produce recommendation reasons. It
// performs exactly one attempt per call; retry behavior belongs to the
// generation.RetryGenerator decorating it.
type Generator struct {
	client *genai.Client
	config Config
	logger *slog.Logger
}

// NewGenerator creates a Generator with the provided dependencies.
func NewGenerator(ctx context.Context, config Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{client: client, config: config, logger: logger}, nil
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

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: generation.SystemPrompt}},
		},
	}
	if g.config.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(g.config.Temperature)
	}
	if g.config.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(g.config.MaxTokens)
	}

	g.logger.DebugContext(ctx, "calling Gemini API",
		"model", g.config.Model,
		"isbn", book.ISBN)

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genConfig)
	if err != nil {
		return nil, classifyError(err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	reason, err := generation.ParseReason(text)
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "Gemini API call succeeded", "isbn", book.ISBN)
	return reason, nil
}

// extractText pulls the concatenated text parts out of a response, mapping
// empty and safety-blocked candidates to the generation taxonomy.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// classifyError maps Gemini API errors onto the generation taxonomy.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests,
			apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case apiErr.Code == http.StatusUnauthorized,
			apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: authentication rejected: %v", generation.ErrInvalidConfig, err)
		default:
			return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}
	}
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}
