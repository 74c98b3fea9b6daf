package tools

import (
	"context"

	"github.com/Kajalmeshram11/workflow-engine/internal/expressions"
	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// ExprTool returns the built-in expr.eval tool: it evaluates an Expr
// expression against the current state and stores the result under a
// caller-named key. This lets graphs compute derived state fields without
// registering host code.
//
// Params:
//   - expression: the Expr source (required)
//   - as: state key for the result (default "result")
func ExprTool() Tool {
	return &exprTool{engine: expressions.NewExprEngine()}
}

type exprTool struct {
	engine *expressions.ExprEngine
}

func (t *exprTool) Name() string { return "expr.eval" }

func (t *exprTool) Description() string {
	return "Evaluate an Expr expression against the current state"
}

func (t *exprTool) Invoke(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error) {
	expression, _ := params["expression"].(string)
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation,
			"expr.eval requires non-empty 'expression' string parameter")
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
