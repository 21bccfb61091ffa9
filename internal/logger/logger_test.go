package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "production", LogLevel: slog.LevelInfo}, &buf)

	WithSession(WithRequestID(log, "req-1"), "s-1", "cave").Info("Choice made", "choice", "walk")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Choice made", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "s-1", line["session_id"])
	assert.Equal(t, "cave", line["adventure"])
	assert.Equal(t, "adventure-engine", line["service"])
	assert.NotContains(t, line, "storage", "no backend configured")
}

func TestSetup_Level(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "development", LogLevel: slog.LevelWarn}, &buf)

	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Same(t, log, slog.Default())
}

func TestSetup_TagsStorageBackend(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&config.Config{LogLevel: slog.LevelInfo, StorageBackend: config.BackendSQLite}, &buf)

	log.Info("Server starting")
	assert.Contains(t, buf.String(), "service=adventure-engine")
	assert.Contains(t, buf.String(), "storage=sqlite")
}
