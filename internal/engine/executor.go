package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Kajalmeshram11/workflow-engine/internal/graph"
	"github.com/Kajalmeshram11/workflow-engine/internal/logging"
	"github.com/Kajalmeshram11/workflow-engine/internal/tools"
	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// DefaultMaxIterations is the iteration cap applied when a run does not
// configure its own. The cap is the engine's only infinite-loop defense
// (self-loops are legitimate), so it is enforced unconditionally.
const DefaultMaxIterations = 50

// Sink receives log entries as they are produced. Delivery is best-effort:
// the interpreter discards the returned error deliberately, so a slow or
// disconnected observer can never affect run outcome.
type Sink interface {
	Send(entry schema.LogEntry) error
}

// Options configures a single execution.
type Options struct {
	MaxIterations int  // 0 means DefaultMaxIterations
	Sink          Sink // optional streaming observer
}

// Result is the outcome of an execution. It is always well-formed: failures
// of individual tools or conditions surface in the log and final state,
// never as an error from Execute.
type Result struct {
	Status          schema.RunStatus  `json:"status"`
	HaltReason      string            `json:"halt_reason,omitempty"`
	FinalState      *State            `json:"final_state"`
	Log             []schema.LogEntry `json:"execution_log"`
	ConditionErrors int64             `json:"condition_errors,omitempty"`
}

// Interpreter walks a graph one node at a time: invoke the current node's
// tool, merge its output into state, pick the next node by evaluating edge
// conditions in declaration order, repeat until no edge matches or the
// iteration cap is hit.
type Interpreter struct {
	registry  tools.ToolRegistry
	evaluator *Evaluator
	logger    *slog.Logger
}

// NewInterpreter creates an Interpreter. The registry is consulted at every
// node visit (not bound at build time) so registrations between runs are
// observed.
func NewInterpreter(registry tools.ToolRegistry, evaluator *Evaluator, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		registry:  registry,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Execute runs the graph to termination and returns the final state and the
// full execution log. The only error conditions are structural (nil graph);
// everything that happens during the walk is reported through the Result.
func (it *Interpreter) Execute(ctx context.Context, g *graph.Graph, initial map[string]any, opts Options) (*Result, error) {
	if g == nil || g.Len() == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph is empty")
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	st := NewState(initial, maxIter)
	log := make([]schema.LogEntry, 0, g.Len())
	current := g.Start()

	status := schema.RunStatusCompleted
	haltReason := ""

	for {
		// Cancellation stops the walk cleanly: the partial log and state
		// are returned, not discarded.
		if ctx.Err() != nil {
			status = schema.RunStatusCancelled
			haltReason = schema.HaltReasonCancelled
			break
		}

		if st.IterationCount() >= st.MaxIterations() {
			status = schema.RunStatusHalted
			haltReason = schema.HaltReasonMaxIterations
			it.logger.WarnContext(ctx, "iteration cap reached, halting run",
				slog.Int("max_iterations", st.MaxIterations()))
			break
		}

		node, _ := g.Node(current)
		nodeCtx := logging.WithNode(ctx, current)

		entry := schema.LogEntry{
			Node:      current,
			Timestamp: time.Now().UTC(),
			Iteration: st.IterationCount(),
		}

		tool, found := it.registry.Lookup(node.ToolRef)
		switch {
		case !found:
			// No-op visit: state stays untouched, next-node selection
			// still runs against the pre-invocation state.
			entry.Status = schema.EntryToolNotFound
			it.logger.WarnContext(nodeCtx, "tool not registered",
				slog.String("tool_ref", node.ToolRef))
		default:
			output, err := it.invoke(nodeCtx, tool, node, st)
			if err != nil {
				entry.Status = schema.EntryError
				entry.Error = err.Error()
				st.RecordError(err.Error())
				it.logger.ErrorContext(nodeCtx, "tool invocation failed",
					slog.String("tool_ref", node.ToolRef),
					slog.String("error", err.Error()))
			} else {
				st.Merge(output)
				entry.Status = schema.EntrySuccess
				entry.Output = output
			}
		}

		log = append(log, entry)

		if opts.Sink != nil {
			// Best-effort delivery; the error is discarded on purpose.
			_ = opts.Sink.Send(entry)
		}

		st.IncrementIteration()

		next, selected := it.selectNext(nodeCtx, g, current, st)
		if !selected {
			break
		}
		if !g.Has(next) {
			// Dangling edge target degrades to completion instead of faulting.
			it.logger.WarnContext(nodeCtx, "edge points to unknown node, completing run",
				slog.String("target", next))
			break
		}
		current = next
	}

	st.Finish(log)

	return &Result{
		Status:          status,
		HaltReason:      haltReason,
		FinalState:      st,
		Log:             log,
		ConditionErrors: it.evaluator.ErrorCount(),
	}, nil
}

// invoke calls the node's tool against a snapshot of the state, honoring the
// node's retry policy if one is declared. Context cancellation is never
// retried.
func (it *Interpreter) invoke(ctx context.Context, tool tools.Tool, node schema.NodeDefinition, st *State) (map[string]any, error) {
	sched := newRetrySchedule(node.Retry)
	attempt := 0
	for {
		output, err := tool.Invoke(ctx, st.Snapshot(), node.Params)
		if err == nil {
			return output, nil
		}
		if !sched.allows(attempt) || errors.Is(err, context.Canceled) {
			return nil, err
		}

		it.logger.InfoContext(ctx, "retrying tool invocation",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", sched.delay(attempt)),
			slog.String("error", err.Error()))
		if werr := sched.wait(ctx, attempt); werr != nil {
			return nil, err
		}
		attempt++
	}
}

// selectNext iterates the current node's outgoing edges in declaration order
// and returns the target of the first edge whose condition holds against the
// post-merge state. Returns false when no edge matches, including the
// zero-outgoing-edge case.
func (it *Interpreter) selectNext(ctx context.Context, g *graph.Graph, current string, st *State) (string, bool) {
	for _, edge := range g.Edges(current) {
		if it.evaluator.Evaluate(ctx, edge.Condition, st) {
			return edge.To, true
		}
	}
	return "", false
}
