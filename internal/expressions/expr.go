package expressions

import (
	"context"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

const defaultProgramCacheLimit = 1024

// ExprOption configures an ExprEngine.
type ExprOption func(*ExprEngine)

// WithStrictVariables makes references to variables absent from the data map
// a compile error instead of resolving to nil.
func WithStrictVariables() ExprOption {
	return func(e *ExprEngine) { e.strict = true }
}

// WithProgramCacheLimit bounds the compiled-program cache. When the bound is
// reached the whole cache is reset rather than evicted piecemeal.
func WithProgramCacheLimit(n int) ExprOption {
	return func(e *ExprEngine) {
		if n > 0 {
			e.cacheCap = n
		}
	}
}

// ExprEngine evaluates expr-lang expressions against a run's data. It covers
// the general-logic niche the condition language does not: let bindings,
// array operations (filter, map, count, any, all, sum), nil coalescing (??),
// optional chaining (?.) and pipe chaining (|). Data map keys surface as
// top-level variables. Safe for concurrent use.
type ExprEngine struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	strict   bool
	cacheCap int
}

// NewExprEngine creates an Expr engine. By default undefined variables
// resolve to nil, which lets expressions probe state keys that earlier nodes
// may not have produced yet.
func NewExprEngine(opts ...ExprOption) *ExprEngine {
	e := &ExprEngine{
		programs: make(map[string]*vm.Program),
		cacheCap: defaultProgramCacheLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate runs the expression against data, compiling and caching the
// program on first use.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty expr expression")
	}
	if data == nil {
		data = map[string]any{}
	}

	prg, err := e.program(expression, data)
	if err != nil {
		return nil, err
	}

	out, err := expr.Run(prg, data)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"expr evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}
	return out, nil
}

// program returns the cached compiled form of expression, compiling it if
// needed. Concurrent first evaluations may compile the same expression twice;
// the loser's program is simply overwritten.
func (e *ExprEngine) program(expression string, env map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	opts := []expr.Option{expr.Env(env)}
	if !e.strict {
		opts = append(opts, expr.AllowUndefinedVariables())
	}
	prg, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"expr compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.mu.Lock()
	if len(e.programs) >= e.cacheCap {
		e.programs = make(map[string]*vm.Program, e.cacheCap)
	}
	e.programs[expression] = prg
	e.mu.Unlock()
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)
