package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Error("load failed", "error", errors.New("boom"), "load_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "load failed", line["msg"])
	assert.Equal(t, "boom", line["err"])
	assert.NotContains(t, line, "error")
	assert.Equal(t, "abc", line["load_id"])
}

func TestNew_Level(t *testing.T) {
	assert.False(t, New(slog.LevelWarn).Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, New(slog.LevelDebug).Enabled(context.Background(), slog.LevelDebug))
}
