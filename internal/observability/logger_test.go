package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.False(t, cfg.AddSource)
}

func TestNewLogger(t *testing.T) {
	t.Run("json output carries level and timestamp", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(LoggingConfig{Level: "debug", Format: "json"}, &buf)
		logger.Debug().Msg("hello")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "hello", entry["message"])
		assert.Contains(t, entry, "time")
	})

	t.Run("level filters lower entries", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
		logger.Info().Msg("dropped")
		assert.Empty(t, buf.String())
	})

	t.Run("console format is not json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(LoggingConfig{Level: "info", Format: "console"}, &buf)
		logger.Info().Msg("pretty")
		assert.Contains(t, buf.String(), "pretty")
		assert.False(t, json.Valid(buf.Bytes()))
	})

	t.Run("stderr output", func(t *testing.T) {
		logger := NewLogger(LoggingConfig{Level: "info", Format: "pretty", Output: "stderr"})
		assert.NotEqual(t, zerolog.Logger{}, logger)
	})

	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLoggerEnrichment(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithCorrelationID(ctx, "corr-1")

	enriched := WithComponent(logger, "graph")
	enriched = WithPaperContext(enriched, "W42")
	enriched = WithSearchContext(enriched, "graph neural networks", "*", 25)
	enriched = LoggerFromContext(ctx, enriched)
	enriched.Info().Msg("chained context")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "graph", entry["component"])
	assert.Equal(t, "W42", entry["paper_id"])
	assert.Equal(t, "graph neural networks", entry["query"])
	assert.Equal(t, "*", entry["cursor"])
	assert.Equal(t, float64(25), entry["per_page"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "corr-1", entry["correlation_id"])
}

func TestLoggerFromContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggerFromContext(context.Background(), zerolog.New(&buf))
	logger.Info().Msg("bare")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "request_id")
	assert.NotContains(t, entry, "correlation_id")
}
