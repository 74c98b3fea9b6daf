package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Kajalmeshram11/workflow-engine/internal/graph"
	"github.com/Kajalmeshram11/workflow-engine/internal/logging"
	"github.com/Kajalmeshram11/workflow-engine/internal/store"
	"github.com/Kajalmeshram11/workflow-engine/internal/streaming"
	"github.com/Kajalmeshram11/workflow-engine/internal/tools"
	"github.com/Kajalmeshram11/workflow-engine/internal/validation"
	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// Service is the orchestration facade over the interpreter: it owns graph
// persistence, run records, and event publication, and hands the interpreter
// a freshly built Graph per run. The transport layer and the scheduler both
// drive executions through it.
type Service struct {
	store     store.Store
	validator *validation.GraphValidator
	registry  tools.ToolRegistry
	hub       streaming.EventHub
	interp    *Interpreter
	logger    *slog.Logger
}

// NewService wires a Service from its collaborators. hub may be nil to
// disable streaming.
func NewService(s store.Store, v *validation.GraphValidator, registry tools.ToolRegistry, hub streaming.EventHub, evaluator *Evaluator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     s,
		validator: v,
		registry:  registry,
		hub:       hub,
		interp:    NewInterpreter(registry, evaluator, logger),
		logger:    logger,
	}
}

// Registry exposes the tool registry for listing over the API.
func (svc *Service) Registry() tools.ToolRegistry {
	return svc.registry
}

// CreateGraph validates and persists a graph definition. Validation errors
// reject the definition; warnings are returned alongside the stored graph.
func (svc *Service) CreateGraph(ctx context.Context, def *schema.GraphDefinition) (*store.Graph, *schema.ValidationResult, error) {
	result := svc.validator.Validate(def)
	if !result.Valid() {
		return nil, result, result.ToError()
	}

	g := &store.Graph{
		ID:         uuid.NewString(),
		Name:       def.Name,
		Definition: *def,
		CreatedAt:  time.Now().UTC(),
	}
	if err := svc.store.CreateGraph(ctx, g); err != nil {
		return nil, result, schema.NewError(schema.ErrCodeStore, "store graph").WithCause(err)
	}

	svc.logger.InfoContext(logging.WithGraphID(ctx, g.ID), "graph created",
		slog.String("name", g.Name),
		slog.Int("nodes", len(def.Nodes)),
		slog.Int("edges", len(def.Edges)))

	return g, result, nil
}

// RunGraph executes a stored graph against the supplied initial state and
// persists the run record. Each log entry is mirrored to the event hub as it
// is produced; hub delivery is best-effort and never affects the run.
func (svc *Service) RunGraph(ctx context.Context, graphID string, initial map[string]any, opts Options) (*store.Run, *Result, error) {
	stored, err := svc.store.GetGraph(ctx, graphID)
	if err != nil {
		return nil, nil, err
	}

	g, err := graph.BuildFromDefinition(&stored.Definition)
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.NewString()
	ctx = logging.WithIDs(ctx, graphID, runID)

	if svc.hub != nil {
		opts.Sink = combineSinks(opts.Sink, streaming.NewHubSink(svc.hub, runID, graphID))
		_ = svc.hub.Publish(ctx, streaming.StreamEvent{
			RunID:     runID,
			GraphID:   graphID,
			EventType: schema.EventRunStarted,
		})
	}

	startedAt := time.Now().UTC()
	svc.logger.InfoContext(ctx, "run started",
		slog.Int("max_iterations", effectiveMaxIterations(opts)))

	result, err := svc.interp.Execute(ctx, g, initial, opts)
	if err != nil {
		return nil, nil, err
	}

	finalState, err := json.Marshal(result.FinalState)
	if err != nil {
		return nil, nil, schema.NewError(schema.ErrCodeExecution, "marshal final state").WithCause(err)
	}

	completedAt := time.Now().UTC()
	run := &store.Run{
		ID:          runID,
		GraphID:     graphID,
		Status:      result.Status,
		HaltReason:  result.HaltReason,
		FinalState:  finalState,
		Log:         result.Log,
		CreatedAt:   startedAt,
		CompletedAt: &completedAt,
	}

	// Persist even when the caller's context was cancelled mid-run: a
	// partially completed run is a valid record, not something to discard.
	if err := svc.store.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		return nil, result, schema.NewError(schema.ErrCodeStore, "store run").WithCause(err)
	}

	if svc.hub != nil {
		_ = svc.hub.Publish(context.WithoutCancel(ctx), streaming.StreamEvent{
			RunID:     runID,
			GraphID:   graphID,
			EventType: schema.EventRunCompleted,
			Payload: map[string]any{
				"status":      result.Status,
				"halt_reason": result.HaltReason,
			},
		})
	}

	svc.logger.InfoContext(ctx, "run finished",
		slog.String("status", string(result.Status)),
		slog.Int("visits", len(result.Log)))

	return run, result, nil
}

// RunScheduled satisfies the scheduler's runner contract.
func (svc *Service) RunScheduled(ctx context.Context, graphID string, initial map[string]any) error {
	_, _, err := svc.RunGraph(ctx, graphID, initial, Options{})
	return err
}

// GetGraph returns a stored graph.
func (svc *Service) GetGraph(ctx context.Context, id string) (*store.Graph, error) {
	return svc.store.GetGraph(ctx, id)
}

// ListGraphs returns all stored graphs, newest first.
func (svc *Service) ListGraphs(ctx context.Context) ([]*store.Graph, error) {
	return svc.store.ListGraphs(ctx)
}

// DeleteGraph removes a stored graph and its runs.
func (svc *Service) DeleteGraph(ctx context.Context, id string) error {
	return svc.store.DeleteGraph(ctx, id)
}

// GetRun returns a persisted run record.
func (svc *Service) GetRun(ctx context.Context, id string) (*store.Run, error) {
	return svc.store.GetRun(ctx, id)
}

// ListRuns returns persisted run records.
func (svc *Service) ListRuns(ctx context.Context, filter store.RunFilter) ([]*store.Run, error) {
	return svc.store.ListRuns(ctx, filter)
}

// Counts returns graph and run totals for health reporting.
func (svc *Service) Counts(ctx context.Context) (graphs, runs int, err error) {
	graphs, err = svc.store.CountGraphs(ctx)
	if err != nil {
		return 0, 0, err
	}
	runs, err = svc.store.CountRuns(ctx)
	if err != nil {
		return 0, 0, err
	}
	return graphs, runs, nil
}

func effectiveMaxIterations(opts Options) int {
	if opts.MaxIterations > 0 {
		return opts.MaxIterations
	}
	return DefaultMaxIterations
}

// multiSink fans a log entry out to several sinks, best-effort each.
type multiSink []Sink

func (m multiSink) Send(entry schema.LogEntry) error {
	for _, s := range m {
		_ = s.Send(entry)
	}
	return nil
}

func combineSinks(sinks ...Sink) Sink {
	var active multiSink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	if len(active) == 1 {
		return active[0]
	}
	return active
}
