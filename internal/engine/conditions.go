package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Kajalmeshram11/workflow-engine/internal/expressions"
)

// Evaluator decides edge activation. It wraps an expression engine with the
// fail-closed policy: an absent condition is true, and any evaluation
// failure (compile error, missing key, non-boolean result) is false rather
// than a fault. Failures are counted and logged so silently-false
// conditions stay diagnosable.
type Evaluator struct {
	engine expressions.Engine
	logger *slog.Logger

	errorCount atomic.Int64
}

// NewEvaluator creates an Evaluator backed by the given expression engine.
func NewEvaluator(engine expressions.Engine, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{engine: engine, logger: logger}
}

// Evaluate returns whether the edge guarded by condition is active given the
// current state. It never returns an error.
func (ev *Evaluator) Evaluate(ctx context.Context, condition string, st *State) bool {
	if condition == "" {
		return true
	}

	data := map[string]any{
		"state": stateScope(st),
		MetaKey: st.metaMap(),
	}

	out, err := ev.engine.Evaluate(ctx, condition, data)
	if err != nil {
		ev.errorCount.Add(1)
		ev.logger.WarnContext(ctx, "condition evaluation failed, treating as false",
			slog.String("condition", condition),
			slog.String("error", err.Error()),
		)
		return false
	}

	b, ok := out.(bool)
	if !ok {
		ev.errorCount.Add(1)
		ev.logger.WarnContext(ctx, "condition produced non-boolean result, treating as false",
			slog.String("condition", condition),
			slog.Any("result", out),
		)
		return false
	}
	return b
}

// ErrorCount returns how many condition evaluations failed closed.
func (ev *Evaluator) ErrorCount() int64 {
	return ev.errorCount.Load()
}

// stateScope is the value bound to the "state" variable in conditions:
// user keys only, metadata lives under its own variable.
func stateScope(st *State) map[string]any {
	scope := make(map[string]any, len(st.values))
	for k, v := range st.values {
		scope[k] = v
	}
	return scope
}
