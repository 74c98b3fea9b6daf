package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError(t *testing.T) {
	t.Run("message format", func(t *testing.T) {
		err := NewError(ErrCodeValidation, "bad graph")
		assert.Equal(t, "[VALIDATION_ERROR] bad graph", err.Error())

		err = err.WithNode("extract")
		assert.Equal(t, "[VALIDATION_ERROR] node extract: bad graph", err.Error())
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewErrorf(ErrCodeStore, "insert failed").WithCause(cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("errors.As finds typed error through wrapping", func(t *testing.T) {
		inner := NewError(ErrCodeToolNotFound, "no such tool")
		wrapped := NewError(ErrCodeExecution, "run failed").WithCause(inner)

		var engErr *EngineError
		require.True(t, errors.As(wrapped, &engErr))
		assert.Equal(t, ErrCodeExecution, engErr.Code)
	})

	t.Run("details", func(t *testing.T) {
		err := NewError(ErrCodeExecution, "boom").WithDetails(map[string]any{"node": "a"})
		assert.Equal(t, "a", err.Details["node"])
	})
}

func TestValidationResult(t *testing.T) {
	t.Run("empty result is valid", func(t *testing.T) {
		r := &ValidationResult{}
		assert.True(t, r.Valid())
		assert.NoError(t, r.ToError())
	})

	t.Run("warnings alone stay valid", func(t *testing.T) {
		r := &ValidationResult{}
		r.AddWarning("nodes[0].tool_ref", ErrCodeToolNotFound, "tool not registered")
		assert.True(t, r.Valid())
		assert.NoError(t, r.ToError())
	})

	t.Run("errors invalidate", func(t *testing.T) {
		r := &ValidationResult{}
		r.AddError("nodes[1].name", ErrCodeDuplicateNode, "duplicate node")
		assert.False(t, r.Valid())
		require.Error(t, r.ToError())
	})

	t.Run("merge combines issues", func(t *testing.T) {
		a := &ValidationResult{}
		a.AddError("/", ErrCodeValidation, "first")
		b := &ValidationResult{}
		b.AddError("/", ErrCodeValidation, "second")
		b.AddWarning("/", ErrCodeValidation, "careful")

		a.Merge(b)
		assert.Len(t, a.Errors, 2)
		assert.Len(t, a.Warnings, 1)
	})
}

func TestGraphDefinitionJSON(t *testing.T) {
	raw := `{
		"name": "review",
		"nodes": [
			{"name": "extract", "tool_ref": "extract_functions"},
			{"name": "score", "tool_ref": "check_complexity", "retry": {"max": 2, "backoff": "linear", "delay": "100ms"}}
		],
		"edges": [
			{"from": "extract", "to": "score", "condition": "state.function_count > 0"}
		]
	}`

	var def GraphDefinition
	require.NoError(t, json.Unmarshal([]byte(raw), &def))

	assert.Equal(t, "review", def.Name)
	require.Len(t, def.Nodes, 2)
	assert.Equal(t, "extract_functions", def.Nodes[0].ToolRef)
	require.NotNil(t, def.Nodes[1].Retry)
	assert.Equal(t, 2, def.Nodes[1].Retry.Max)
	require.Len(t, def.Edges, 1)
	assert.Equal(t, "state.function_count > 0", def.Edges[0].Condition)
}
