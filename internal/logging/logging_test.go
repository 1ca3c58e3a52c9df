package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo).With("request_id", "abc")
	ctx := ContextWithLogger(context.Background(), logger)

	FromContext(ctx).Info("hello")
	FromContext(ctx).Debug("filtered")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "abc", line["request_id"])
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	std := StdLogger(New(&buf, slog.LevelInfo), slog.LevelWarn)
	std.Print("slow query")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "slow query", line["msg"])
}
