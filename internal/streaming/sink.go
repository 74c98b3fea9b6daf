package streaming

import (
	"context"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// HubSink adapts an EventHub to the engine's Sink contract: each log entry
// produced by the interpreter is published as a node_visited event tagged
// with the run and graph IDs. The engine discards the returned error, which
// keeps the hub's best-effort semantics.
type HubSink struct {
	hub     EventHub
	runID   string
	graphID string
}

// NewHubSink creates a sink publishing to hub under the given run identity.
func NewHubSink(hub EventHub, runID, graphID string) *HubSink {
	return &HubSink{hub: hub, runID: runID, graphID: graphID}
}

// Send publishes a log entry as a stream event.
func (s *HubSink) Send(entry schema.LogEntry) error {
	e := entry
	return s.hub.Publish(context.Background(), StreamEvent{
		RunID:     s.runID,
		GraphID:   s.graphID,
		EventType: schema.EventNodeVisited,
		Entry:     &e,
	})
}
