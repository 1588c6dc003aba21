// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// ErrUnsupportedProvider is returned for a provider name the factory does not know.
var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// NewClient creates the planner's chat client from configuration, throttled
// when requests_per_minute is set.
func NewClient(ctx context.Context, cfg config.PlannerConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	var (
		client schemas.LLMClient
		err    error
	)

	switch cfg.Provider {
	case config.ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg, logger)
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(cfg, logger)
	case config.ProviderAnthropic:
		client, err = NewAnthropicClient(cfg, logger)
	case config.ProviderOllama:
		client, err = NewOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: '%s'. Supported: [%s, %s, %s, %s]", ErrUnsupportedProvider, cfg.Provider,
			config.ProviderGemini, config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderOllama)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		client = NewThrottledClient(client, cfg.RequestsPerMinute)
	}
	return client, nil
}

// withTimeout derives a bounded context; a non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
