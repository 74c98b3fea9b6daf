package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Kajalmeshram11/workflow-engine/internal/engine"
	"github.com/Kajalmeshram11/workflow-engine/internal/store"
	"github.com/Kajalmeshram11/workflow-engine/internal/streaming"
	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// chanSink forwards log entries to a channel. Sends give up when the
// request context ends so a disconnected client never blocks a run.
type chanSink struct {
	ctx context.Context
	ch  chan<- schema.LogEntry
}

func (s chanSink) Send(entry schema.LogEntry) error {
	select {
	case s.ch <- entry:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

type runOutcome struct {
	run    *store.Run
	result *engine.Result
	err    error
}

// handleRunStream executes a stored graph and streams each log entry to
// the client as a Server-Sent Event, finishing with a run_completed event
// carrying the final state. Closing the connection cancels the run.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	graphID := r.PathValue("id")

	var req struct {
		InitialState  map[string]any `json:"initial_state"`
		MaxIterations int            `json:"max_iterations"`
	}
	if r.Body != nil {
		// An empty body means an empty initial state.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ctx := r.Context()
	entries := make(chan schema.LogEntry, 64)
	done := make(chan runOutcome, 1)

	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = s.deps.MaxIterations
	}
	opts := engine.Options{
		MaxIterations: maxIter,
		Sink:          chanSink{ctx: ctx, ch: entries},
	}

	submitErr := s.deps.Pool.Submit(ctx, func(runCtx context.Context) (*engine.Result, error) {
		run, result, err := s.deps.Service.RunGraph(runCtx, graphID, req.InitialState, opts)
		done <- runOutcome{run: run, result: result, err: err}
		close(entries)
		return result, err
	})
	if submitErr != nil {
		writeError(w, submitErr)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for entry := range entries {
		writeSSE(w, schema.EventNodeVisited, entry)
		flusher.Flush()
	}

	outcome := <-done
	if outcome.err != nil {
		writeSSE(w, "error", map[string]any{"error": outcome.err.Error()})
		flusher.Flush()
		return
	}

	writeSSE(w, schema.EventRunCompleted, map[string]any{
		"run_id":        outcome.run.ID,
		"status":        outcome.run.Status,
		"halt_reason":   outcome.run.HaltReason,
		"final_state":   json.RawMessage(outcome.run.FinalState),
		"execution_log": outcome.run.Log,
	})
	flusher.Flush()
}

// handleSSEGlobal streams hub events across all runs, optionally filtered
// by run_id query param.
func (s *Server) handleSSEGlobal(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	filter := streaming.EventFilter{RunID: r.URL.Query().Get("run_id")}
	ch, cancel, err := s.deps.Hub.Subscribe(r.Context(), filter)
	if err != nil {
		s.deps.Logger.Error("SSE subscribe failed", "error", err)
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, event.EventType, event)
			flusher.Flush()
		}
	}
}

// writeSSE writes a single Server-Sent Event frame.
func writeSSE(w http.ResponseWriter, eventType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}
