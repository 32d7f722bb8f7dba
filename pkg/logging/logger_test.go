package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", false)

	logger.Info("widget started", "session_id", "abc123")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "widget started", entry["msg"])
	assert.Equal(t, "abc123", entry["session_id"])
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "error", false)

	logger.Info("should be dropped")
	assert.Zero(t, buf.Len())

	logger.Error("should be kept")
	assert.NotZero(t, buf.Len())
}

func TestDefault(t *testing.T) {
	logger := Default()
	require.NotNil(t, logger)
	require.NotNil(t, logger.Logger)
}
