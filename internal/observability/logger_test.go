// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("console logger colors the level", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "localcu",
			Colors:      config.ColorConfig{Info: "green"},
		}
		logger := New(cfg, zapcore.AddSync(&buf))
		logger.Named("orchestrator").Info("step finished")
		require.NoError(t, logger.Sync())

		out := buf.String()
		assert.Contains(t, out, ansi["green"]+"INFO"+colorReset)
		assert.Contains(t, out, "localcu.orchestrator.")
		assert.Contains(t, out, "step finished")
	})

	t.Run("unknown color leaves the level plain", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.LoggerConfig{Level: "info", Format: "console", Colors: config.ColorConfig{Warn: "chartreuse"}}
		logger := New(cfg, zapcore.AddSync(&buf))
		logger.Warn("careful")

		assert.Contains(t, buf.String(), "WARN")
		assert.NotContains(t, buf.String(), colorReset)
	})

	t.Run("json logger", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}
		logger := New(cfg, zapcore.AddSync(&buf))
		logger.Warn("grounding slow", zap.String("key", "value"))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "grounding slow", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("level filtering and invalid level fallback", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(config.LoggerConfig{Level: "not-a-level", Format: "json"}, zapcore.AddSync(&buf))
		logger.Debug("hidden")
		logger.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("tees into a rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "localcu.log")
		var buf bytes.Buffer
		cfg := config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}
		logger := New(cfg, zapcore.AddSync(&buf))
		logger.Error("this should go to the file")
		require.NoError(t, logger.Sync())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "this should go to the file")
		// The file is always JSON.
		assert.Contains(t, string(content), `"level":"ERROR"`)
	})
}

func TestInitialize(t *testing.T) {
	t.Cleanup(ResetForTest)

	t.Run("only the first call wins", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "First"}, zapcore.AddSync(&buf))
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, zapcore.AddSync(&buf))
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		assert.Contains(t, buf.String(), "First")
		assert.NotContains(t, buf.String(), "Second")
	})

	t.Run("fallback before initialization", func(t *testing.T) {
		ResetForTest()
		logger := GetLogger()
		require.NotNil(t, logger)
		assert.Nil(t, globalLogger.Load())
	})

	t.Run("global logger after initialization", func(t *testing.T) {
		ResetForTest()
		Initialize(config.LoggerConfig{Level: "info"}, zapcore.AddSync(&bytes.Buffer{}))
		assert.Same(t, globalLogger.Load(), GetLogger())
		Sync()
	})
}

func TestBenignSyncError(t *testing.T) {
	assert.True(t, benignSyncError(errors.New("sync /dev/stderr: invalid argument")))
	assert.False(t, benignSyncError(errors.New("disk full")))
}
