// internal/llmclient/openai.go
package llmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// OpenAIClient implements schemas.LLMClient over the OpenAI Responses API.
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIClient creates the client. A non-empty cfg.Endpoint replaces the API base URL,
// which also serves OpenAI-compatible local servers.
func NewOpenAIClient(cfg config.PlannerConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.APITimeout,
		logger:  logger.Named("llm_client.openai"),
	}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	params := responses.ResponseNewParams{
		Model:       c.model,
		Input:       responses.ResponseNewParamsInputUnion{OfString: openai.String(req.UserPrompt)},
		Temperature: openai.Float(req.Options.Temperature),
	}
	if req.SystemPrompt != "" {
		params.Instructions = openai.String(req.SystemPrompt)
	}
	if req.Options.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.Options.MaxTokens))
	}

	start := time.Now()
	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	text := resp.OutputText()
	if text == "" {
		return "", fmt.Errorf("openai returned no text for model %s", c.model)
	}
	c.logger.Info("LLM generation complete (OpenAI)",
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.InputTokens),
		zap.Int64("completion_tokens", resp.Usage.OutputTokens),
	)
	return text, nil
}

func (c *OpenAIClient) Close() error { return nil }
