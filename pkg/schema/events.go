package schema

import "time"

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusHalted    RunStatus = "halted"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// HaltReason explains why a run ended in a non-completed terminal state.
const (
	HaltReasonMaxIterations = "max_iterations_exceeded"
	HaltReasonCancelled     = "cancelled"
)

// EntryStatus is the per-node-visit outcome recorded in the execution log.
type EntryStatus string

const (
	EntrySuccess      EntryStatus = "success"
	EntryError        EntryStatus = "error"
	EntryToolNotFound EntryStatus = "tool_not_found"
)

// LogEntry is one immutable record in the execution log. Entries are
// appended in visitation order, one per node visit.
type LogEntry struct {
	Node      string         `json:"node"`
	Timestamp time.Time      `json:"timestamp"`
	Iteration int            `json:"iteration"`
	Status    EntryStatus    `json:"status"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Stream event type constants for run streaming.
const (
	EventRunStarted   = "run_started"
	EventNodeVisited  = "node_visited"
	EventRunCompleted = "run_completed"
)
