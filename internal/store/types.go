package store

import (
	"encoding/json"
	"time"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// Graph is the persisted form of a workflow graph definition. The engine
// never reads this table itself; a fresh executable graph is built from
// Definition for every run.
type Graph struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name,omitempty"`
	Definition schema.GraphDefinition `json:"definition"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Run is a completed execution's persisted record.
type Run struct {
	ID          string            `json:"run_id"`
	GraphID     string            `json:"graph_id"`
	Status      schema.RunStatus  `json:"status"`
	HaltReason  string            `json:"halt_reason,omitempty"`
	FinalState  json.RawMessage   `json:"final_state,omitempty"`
	Log         []schema.LogEntry `json:"execution_log,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ScheduledJob triggers a run of a stored graph on a cron schedule.
type ScheduledJob struct {
	ID           string          `json:"id"`
	GraphID      string          `json:"graph_id"`
	CronSpec     string          `json:"cron_spec"`
	InitialState json.RawMessage `json:"initial_state,omitempty"`
	Enabled      bool            `json:"enabled"`
	NextRunAt    *time.Time      `json:"next_run_at,omitempty"`
	LastRunAt    *time.Time      `json:"last_run_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RunFilter narrows ListRuns results.
type RunFilter struct {
	GraphID string
	Limit   int
}

// ScheduledJobFilter narrows ListScheduledJobs results.
type ScheduledJobFilter struct {
	Enabled *bool
}
