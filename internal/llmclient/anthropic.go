// internal/llmclient/anthropic.go
package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// defaultAnthropicMaxTokens applies when the request leaves MaxTokens unset; the API requires one.
const defaultAnthropicMaxTokens = 1024

// AnthropicClient implements schemas.LLMClient over the Claude Messages API.
type AnthropicClient struct {
	client  anthropic.Client
	model   anthropic.Model
	timeout time.Duration
	logger  *zap.Logger
}

func NewAnthropicClient(cfg config.PlannerConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &AnthropicClient{
		client:  anthropic.NewClient(opts...),
		model:   anthropic.Model(cfg.Model),
		timeout: cfg.APITimeout,
		logger:  logger.Named("llm_client.anthropic"),
	}, nil
}

func (c *AnthropicClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model: c.model,
		Messages: []anthropic.MessageParam{{
			Role:    anthropic.MessageParamRole("user"),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.UserPrompt)},
		}},
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Options.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt, Type: "text"}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic returned an empty response")
	}

	var sb strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	c.logger.Info("LLM generation complete (Anthropic)",
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.InputTokens),
		zap.Int64("completion_tokens", resp.Usage.OutputTokens),
	)
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text blocks")
	}
	return sb.String(), nil
}

func (c *AnthropicClient) Close() error { return nil }
