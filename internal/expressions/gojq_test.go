package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoJQEngine(t *testing.T) {
	eng := NewGoJQEngine()
	ctx := context.Background()

	assert.Equal(t, "jq", eng.Name())

	t.Run("field access", func(t *testing.T) {
		out, err := eng.Evaluate(ctx, ".score", map[string]any{"score": 85})
		require.NoError(t, err)
		assert.Equal(t, float64(85), out)
	})

	t.Run("reshaping", func(t *testing.T) {
		data := map[string]any{
			"functions": []any{
				map[string]any{"name": "parse", "args_count": 2},
				map[string]any{"name": "render", "args_count": 1},
			},
		}
		out, err := eng.Evaluate(ctx, "[.functions[].name]", data)
		require.NoError(t, err)
		assert.Equal(t, []any{"parse", "render"}, out)
	})

	t.Run("multiple outputs collected into a slice", func(t *testing.T) {
		out, err := eng.Evaluate(ctx, ".items[]", map[string]any{"items": []any{1, 2}})
		require.NoError(t, err)
		assert.Equal(t, []any{float64(1), float64(2)}, out)
	})

	t.Run("integers are widened for jq", func(t *testing.T) {
		out, err := eng.Evaluate(ctx, ".a + .b", map[string]any{"a": 1, "b": 2})
		require.NoError(t, err)
		assert.Equal(t, float64(3), out)
	})

	t.Run("env access is sandboxed", func(t *testing.T) {
		t.Setenv("SECRET_TOKEN", "hunter2")
		out, err := eng.Evaluate(ctx, `env.SECRET_TOKEN`, map[string]any{})
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := eng.Evaluate(ctx, ".[broken", nil)
		require.Error(t, err)
	})

	t.Run("empty expression", func(t *testing.T) {
		_, err := eng.Evaluate(ctx, "", nil)
		require.Error(t, err)
	})
}
