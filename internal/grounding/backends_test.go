package grounding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
)

func httpConfig(endpoint string) config.GroundingConfig {
	return config.GroundingConfig{
		Backend:         config.GroundingHTTP,
		Endpoint:        endpoint,
		MaxNewTokens:    64,
		APIKey:          "secret",
		MaxRetryElapsed: 10 * time.Second,
	}
}

func TestHTTPModel_Infer(t *testing.T) {
	var got inferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = w.Write([]byte(`{"text":"</s><s>click <loc_1><loc_2></s>"}`))
	}))
	t.Cleanup(server.Close)

	model := NewHTTPModel(httpConfig(server.URL), zaptest.NewLogger(t))
	t.Cleanup(func() { _ = model.Close() })

	out, err := model.Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 6)), "what to do")
	require.NoError(t, err)
	assert.Equal(t, "</s><s>click <loc_1><loc_2></s>", out)

	assert.Equal(t, "what to do", got.Prompt)
	assert.Equal(t, 64, got.MaxNewTokens)
	assert.False(t, got.SkipSpecialTokens)

	// The image round-trips as a PNG of the same size.
	decoded, err := base64.StdEncoding.DecodeString(got.Image)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
}

func TestHTTPModel_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	t.Cleanup(server.Close)

	out, err := NewHTTPModel(httpConfig(server.URL), zaptest.NewLogger(t)).
		Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPModel_ZeroRetryElapsedTriesOnce(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := httpConfig(server.URL)
	cfg.MaxRetryElapsed = 0
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewHTTPModel(cfg, zaptest.NewLogger(t)).
		Infer(ctx, image.NewRGBA(image.Rect(0, 0, 1, 1)), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.NoError(t, ctx.Err(), "must return before the deadline")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPModel_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	_, err := NewHTTPModel(httpConfig(server.URL), zaptest.NewLogger(t)).
		Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPModel_ServerReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	t.Cleanup(server.Close)

	_, err := NewHTTPModel(httpConfig(server.URL), zaptest.NewLogger(t)).
		Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestHTTPModel_HonorsCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTPModel(httpConfig(server.URL), zaptest.NewLogger(t)).
		Infer(ctx, image.NewRGBA(image.Rect(0, 0, 1, 1)), "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())
}

func TestOllamaModel_Infer(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"tinyclick","response":"</s><s>click <loc_3><loc_4>","done":true}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.GroundingConfig{Backend: config.GroundingOllama, Endpoint: server.URL, Model: "tinyclick", MaxNewTokens: 32}
	model, err := NewOllamaModel(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := model.Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)), "what to do")
	require.NoError(t, err)
	assert.Equal(t, "</s><s>click <loc_3><loc_4>", out)
	assert.Equal(t, true, got["raw"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "what to do", got["prompt"])
	images, ok := got["images"].([]any)
	require.True(t, ok)
	assert.Len(t, images, 1)
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(httpConfig("http://localhost:8080/generate"), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &HTTPModel{}, m)

	m, err = NewModel(config.GroundingConfig{Backend: config.GroundingOllama, Endpoint: "http://localhost:11434", Model: "x"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &OllamaModel{}, m)

	_, err = NewModel(config.GroundingConfig{Backend: "grpc"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}
