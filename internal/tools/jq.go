package tools

import (
	"context"

	"github.com/Kajalmeshram11/workflow-engine/internal/expressions"
	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// JQTool returns the built-in jq tool: it runs a jq expression over the
// current state (as the input object) and stores the output under a
// caller-named key. Useful for reshaping or aggregating accumulated state
// mid-pipeline.
//
// Params:
//   - expression: the jq program (required)
//   - as: state key for the result (default "result")
func JQTool() Tool {
	return &jqTool{engine: expressions.NewGoJQEngine()}
}

type jqTool struct {
	engine *expressions.GoJQEngine
}

func (t *jqTool) Name() string { return "jq" }

func (t *jqTool) Description() string {
	return "Transform the current state with a jq expression"
}

func (t *jqTool) Invoke(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error) {
	expression, _ := params["expression"].(string)
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation,
			"jq requires non-empty 'expression' string parameter")
	}

	key, _ := params["as"].(string)
	if key == "" {
		key = "result"
	}

	result, err := t.engine.Evaluate(ctx, expression, state)
	if err != nil {
		return nil, err
	}

	return map[string]any{key: result}, nil
}
