// internal/llmclient/ollama.go
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// OllamaClient implements schemas.LLMClient against a local Ollama server.
type OllamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewOllamaClient(cfg config.PlannerConfig, logger *zap.Logger) (*OllamaClient, error) {
	host, err := url.Parse(cfg.Endpoint)
	if err != nil || host.Host == "" {
		return nil, fmt.Errorf("invalid ollama endpoint %q", cfg.Endpoint)
	}
	return &OllamaClient{
		client:  api.NewClient(host, http.DefaultClient),
		model:   cfg.Model,
		timeout: cfg.APITimeout,
		logger:  logger.Named("llm_client.ollama"),
	}, nil
}

func (c *OllamaClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var messages []api.Message
	if req.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.UserPrompt})

	options := map[string]any{"temperature": req.Options.Temperature}
	if req.Options.MaxTokens > 0 {
		options["num_predict"] = req.Options.MaxTokens
	}

	stream := false
	chat := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	start := time.Now()
	var response api.ChatResponse
	err := c.client.Chat(ctx, chat, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	if response.Message.Content == "" {
		return "", fmt.Errorf("ollama returned no text for model %s", c.model)
	}
	c.logger.Info("LLM generation complete (Ollama)", zap.Duration("duration", time.Since(start)))
	return response.Message.Content, nil
}

func (c *OllamaClient) Close() error { return nil }
