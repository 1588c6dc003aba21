// internal/llmclient/gemini.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// GeminiClient implements schemas.LLMClient over the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxElapsed time.Duration
	logger     *zap.Logger
}

// NewGeminiClient initializes the client. A non-empty cfg.Endpoint replaces the API base URL.
func NewGeminiClient(ctx context.Context, cfg config.PlannerConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		model:      cfg.Model,
		timeout:    cfg.APITimeout,
		maxElapsed: 2 * time.Minute,
		logger:     logger.Named("llm_client.gemini"),
	}, nil
}

// Generate sends the prompts to Gemini, retrying rate limits and server errors.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	temperature := float32(req.Options.Temperature)
	gc := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.Options.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.Options.MaxTokens)
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.UserPrompt}}}}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxElapsed
	b.MaxInterval = 30 * time.Second

	var text string
	operation := func() error {
		attemptCtx, cancel := withTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		result, err := c.client.Models.GenerateContent(attemptCtx, c.model, contents, gc)
		if err != nil {
			return c.classify(err)
		}

		text = result.Text()
		if text == "" {
			return backoff.Permanent(fmt.Errorf("gemini returned no text for model %s", c.model))
		}

		fields := []zap.Field{zap.Duration("duration", time.Since(start)), zap.String("tier", string(req.Tier))}
		if u := result.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("completion_tokens", u.CandidatesTokenCount),
			)
		}
		c.logger.Info("LLM generation complete (Gemini)", fields...)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return text, nil
}

// classify marks errors that a retry cannot fix as permanent.
func (c *GeminiClient) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			c.logger.Warn("Transient Gemini API error, retrying...", zap.Int("status", apiErr.Code))
			return err
		default:
			return backoff.Permanent(fmt.Errorf("gemini API error: %w", err))
		}
	}
	if errors.Is(err, context.Canceled) {
		return backoff.Permanent(err)
	}
	c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return err
}

// Close is a no-op; the genai client holds no closable resources.
func (c *GeminiClient) Close() error { return nil }
