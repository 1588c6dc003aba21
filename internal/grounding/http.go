package grounding

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
	"github.com/LexiestLeszek/LocalComputerUse/internal/llmutil"
)

// inferRequest is the wire format of the grounding inference server.
type inferRequest struct {
	Prompt            string `json:"prompt"`
	Image             string `json:"image"`
	MaxNewTokens      int    `json:"max_new_tokens"`
	SkipSpecialTokens bool   `json:"skip_special_tokens"`
}

type inferResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// HTTPModel posts screenshots to a JSON inference server that hosts the
// grounding model and returns its decoded output with special tokens kept.
type HTTPModel struct {
	endpoint     string
	apiKey       string
	maxNewTokens int
	maxElapsed   time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

func NewHTTPModel(cfg config.GroundingConfig, logger *zap.Logger) *HTTPModel {
	return &HTTPModel{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		maxNewTokens: cfg.MaxNewTokens,
		maxElapsed:   cfg.MaxRetryElapsed,
		httpClient:   &http.Client{Timeout: cfg.APITimeout},
		logger:       logger.Named("grounding.http"),
	}
}

// Infer encodes img as PNG and sends it with prompt, retrying transient failures.
func (m *HTTPModel) Infer(ctx context.Context, img image.Image, prompt string) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}

	body, err := json.Marshal(inferRequest{
		Prompt:            prompt,
		Image:             base64.StdEncoding.EncodeToString(buf.Bytes()),
		MaxNewTokens:      m.maxNewTokens,
		SkipSpecialTokens: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal inference request: %w", err)
	}

	b := m.retryPolicy()
	var text string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if m.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+m.apiKey)
		}

		resp, err := m.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			m.logger.Warn("Network error during inference, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return m.statusError(resp.StatusCode, respBody)
		}

		var out inferResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode inference response: %w", err))
		}
		if out.Error != "" {
			return backoff.Permanent(fmt.Errorf("inference server error: %s", out.Error))
		}
		text = out.Text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return text, nil
}

// retryPolicy returns the backoff for one Infer call. A non-positive
// maxElapsed disables retries.
func (m *HTTPModel) retryPolicy() backoff.BackOff {
	if m.maxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = m.maxElapsed
	return b
}

func (m *HTTPModel) statusError(status int, body []byte) error {
	err := fmt.Errorf("inference server returned status %d: %s", status, llmutil.Truncate(string(body), 300))
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		m.logger.Warn("Transient inference error, retrying...", zap.Int("status", status))
		return err
	default:
		return backoff.Permanent(err)
	}
}

func (m *HTTPModel) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}
