package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetupJSON(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev; slog.SetDefault(prev) }()

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn", "json"))

	log := WithComponent("pipeline")
	log.Info("dropped")
	log.Warn("kept", "app", "chat")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "pipeline", rec["component"])
	assert.Equal(t, "chat", rec["app"])
}

func TestSetupText(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev; slog.SetDefault(prev) }()

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "debug", "text"))
	WithComponent("server").Debug("hello")
	assert.Contains(t, buf.String(), "component=server")

	assert.Error(t, Setup(&buf, "info", "xml"))
}

func TestDetachContext(t *testing.T) {
	type key struct{}
	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), key{}, "v"), time.Hour)
	cancel()

	ctx := DetachContext(parent)
	assert.NoError(t, ctx.Err())
	assert.Equal(t, "v", ctx.Value(key{}))
}
