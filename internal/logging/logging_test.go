package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "json")
	logger.Info("dropped")
	logger.Warn("kept", "user", "admin")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "admin", line["user"])
}

func TestNewWithWriterText(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	NewWithWriter(&buf, "DEBUG", "TEXT").Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "k=v")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
