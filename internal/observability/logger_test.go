package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/config"
)

func TestNewLoggerWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	log.Info("hello", slog.String("key", "value"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNewLoggerWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	log.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewLoggerWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLoggerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	log.Info("loaded config", slog.Any("platform", config.PlatformConfig{
		BaseURL:       "https://api.example.com",
		SessionCookie: "super-secret-session",
		CSRFToken:     "super-secret-token",
	}))

	out := buf.String()
	assert.Contains(t, out, "https://api.example.com")
	assert.NotContains(t, out, "super-secret-session")
	assert.NotContains(t, out, "super-secret-token")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	WithComponent(log, "syncer").Info("hi")
	assert.Contains(t, buf.String(), `"component":"syncer"`)
}

func TestContextHelpers(t *testing.T) {
	base := slog.New(slog.DiscardHandler)

	ctx := ContextWithLogger(context.Background(), base)
	assert.Equal(t, base, LoggerFromContext(ctx))
	assert.NotNil(t, LoggerFromContext(context.Background()))

	ctx = ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestTimeFormatApplied(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		TimeFormat: "2006-01-02",
	}, &buf)

	log.Info("stamped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	ts, ok := entry["time"].(string)
	require.True(t, ok)
	assert.Len(t, strings.TrimSpace(ts), 10)
}
