package grounding

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

// OllamaModel runs grounding through a vision model served by Ollama. Raw mode
// bypasses the prompt template so the model sees the instruction verbatim.
type OllamaModel struct {
	client       *api.Client
	model        string
	maxNewTokens int
	logger       *zap.Logger
}

func NewOllamaModel(cfg config.GroundingConfig, logger *zap.Logger) (*OllamaModel, error) {
	host, err := url.Parse(cfg.Endpoint)
	if err != nil || host.Host == "" {
		return nil, fmt.Errorf("invalid ollama endpoint %q", cfg.Endpoint)
	}
	return &OllamaModel{
		client:       api.NewClient(host, &http.Client{Timeout: cfg.APITimeout}),
		model:        cfg.Model,
		maxNewTokens: cfg.MaxNewTokens,
		logger:       logger.Named("grounding.ollama"),
	}, nil
}

func (m *OllamaModel) Infer(ctx context.Context, img image.Image, prompt string) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}

	options := map[string]any{"temperature": 0}
	if m.maxNewTokens > 0 {
		options["num_predict"] = m.maxNewTokens
	}
	stream := false
	req := &api.GenerateRequest{
		Model:   m.model,
		Prompt:  prompt,
		Images:  []api.ImageData{buf.Bytes()},
		Raw:     true,
		Stream:  &stream,
		Options: options,
	}

	var out string
	err := m.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out += resp.Response
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	return out, nil
}

func (m *OllamaModel) Close() error { return nil }
