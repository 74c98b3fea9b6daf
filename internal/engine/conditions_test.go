package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kajalmeshram11/workflow-engine/internal/expressions"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	eng, err := expressions.NewCELEngine()
	require.NoError(t, err)
	return NewEvaluator(eng, nil)
}

func TestEvaluatorEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty condition is unconditionally true", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(nil, 10)
		assert.True(t, ev.Evaluate(ctx, "", st))
		assert.Equal(t, int64(0), ev.ErrorCount())
	})

	t.Run("true predicate", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(map[string]any{"score": 85}, 10)
		assert.True(t, ev.Evaluate(ctx, "state.score > 70", st))
	})

	t.Run("false predicate", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(map[string]any{"score": 50}, 10)
		assert.False(t, ev.Evaluate(ctx, "state.score > 70", st))
	})

	t.Run("meta is visible to conditions", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(nil, 10)
		st.IncrementIteration()
		st.IncrementIteration()
		assert.True(t, ev.Evaluate(ctx, "meta.iteration_count >= 2", st))
	})

	t.Run("malformed condition fails closed", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(map[string]any{"x": 1}, 10)
		assert.False(t, ev.Evaluate(ctx, "state.x >>>", st))
		assert.Equal(t, int64(1), ev.ErrorCount())
	})

	t.Run("missing key fails closed", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(nil, 10)
		assert.False(t, ev.Evaluate(ctx, "state.missing > 5", st))
		assert.Equal(t, int64(1), ev.ErrorCount())
	})

	t.Run("non-boolean result fails closed", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(map[string]any{"x": 1}, 10)
		assert.False(t, ev.Evaluate(ctx, "state.x + 1", st))
		assert.Equal(t, int64(1), ev.ErrorCount())
	})

	t.Run("error count accumulates", func(t *testing.T) {
		ev := newTestEvaluator(t)
		st := NewState(nil, 10)
		ev.Evaluate(ctx, "state.a > 1", st)
		ev.Evaluate(ctx, "state.b > 1", st)
		assert.Equal(t, int64(2), ev.ErrorCount())
	})
}
