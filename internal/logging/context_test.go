package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GraphID(ctx))
	assert.Empty(t, RunID(ctx))
	assert.Empty(t, Node(ctx))

	ctx = WithIDs(ctx, "g-1", "r-1")
	ctx = WithNode(ctx, "extract")

	assert.Equal(t, "g-1", GraphID(ctx))
	assert.Equal(t, "r-1", RunID(ctx))
	assert.Equal(t, "extract", Node(ctx))
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	t.Run("injects IDs from context", func(t *testing.T) {
		buf.Reset()
		ctx := WithNode(WithIDs(context.Background(), "g-9", "r-9"), "score")

		logger.InfoContext(ctx, "visit")

		out := buf.String()
		require.Contains(t, out, `"graph_id":"g-9"`)
		assert.Contains(t, out, `"run_id":"r-9"`)
		assert.Contains(t, out, `"node":"score"`)
	})

	t.Run("plain context logs without IDs", func(t *testing.T) {
		buf.Reset()
		logger.Info("startup")

		out := buf.String()
		assert.NotContains(t, out, "graph_id")
		assert.NotContains(t, out, "run_id")
	})

	t.Run("WithAttrs preserves injection", func(t *testing.T) {
		buf.Reset()
		child := logger.With(slog.String("component", "engine"))
		child.InfoContext(WithRunID(context.Background(), "r-2"), "tick")

		out := buf.String()
		assert.Contains(t, out, `"component":"engine"`)
		assert.Contains(t, out, `"run_id":"r-2"`)
	})
}
