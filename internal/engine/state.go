package engine

import (
	"encoding/json"
	"time"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// MetaKey is the reserved state key under which engine metadata is exposed
// to conditions and tools. Tool output using this key is ignored on merge so
// metadata can never be clobbered.
const MetaKey = "meta"

// Meta is the engine-owned metadata of a run. It is kept apart from user
// state so tool output cannot collide with it structurally.
type Meta struct {
	StartTime      time.Time         `json:"start_time"`
	IterationCount int               `json:"iteration_count"`
	MaxIterations  int               `json:"max_iterations"`
	EndTime        *time.Time        `json:"end_time,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	ExecutionLog   []schema.LogEntry `json:"execution_log,omitempty"`
}

// State is the mutable key-value container threaded through a run. It is
// owned by exactly one Interpreter execution and never shared across runs,
// so no locking is needed.
type State struct {
	values map[string]any
	meta   Meta
}

// NewState creates a State from caller-supplied initial data. The initial
// map is copied; a caller-supplied value under the reserved meta key is
// dropped.
func NewState(initial map[string]any, maxIterations int) *State {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		if k == MetaKey {
			continue
		}
		values[k] = v
	}
	return &State{
		values: values,
		meta: Meta{
			StartTime:     time.Now().UTC(),
			MaxIterations: maxIterations,
		},
	}
}

// Merge applies tool output with shallow-overwrite semantics: every returned
// key replaces any existing key of the same name. The reserved meta key is
// ignored.
func (s *State) Merge(output map[string]any) {
	for k, v := range output {
		if k == MetaKey {
			continue
		}
		s.values[k] = v
	}
}

// Get returns a user state value.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Meta returns a copy of the run metadata.
func (s *State) Meta() Meta {
	return s.meta
}

// IterationCount returns the number of node visits so far.
func (s *State) IterationCount() int {
	return s.meta.IterationCount
}

// MaxIterations returns the iteration cap for this run.
func (s *State) MaxIterations() int {
	return s.meta.MaxIterations
}

// IncrementIteration advances the visit counter.
func (s *State) IncrementIteration() {
	s.meta.IterationCount++
}

// RecordError stores a tool failure message in the metadata.
func (s *State) RecordError(msg string) {
	s.meta.LastError = msg
}

// Finish stamps the end time and attaches the execution log.
func (s *State) Finish(log []schema.LogEntry) {
	now := time.Now().UTC()
	s.meta.EndTime = &now
	s.meta.ExecutionLog = log
}

// Snapshot returns the view of the state handed to tools and conditions:
// a copy of all user keys plus the metadata sub-map under the reserved key.
// Mutating the snapshot does not affect the State.
func (s *State) Snapshot() map[string]any {
	snap := make(map[string]any, len(s.values)+1)
	for k, v := range s.values {
		snap[k] = v
	}
	snap[MetaKey] = s.metaMap()
	return snap
}

// metaMap renders the metadata as a plain map for expression scopes.
func (s *State) metaMap() map[string]any {
	m := map[string]any{
		"start_time":      s.meta.StartTime.Format(time.RFC3339Nano),
		"iteration_count": s.meta.IterationCount,
		"max_iterations":  s.meta.MaxIterations,
	}
	if s.meta.EndTime != nil {
		m["end_time"] = s.meta.EndTime.Format(time.RFC3339Nano)
	}
	if s.meta.LastError != "" {
		m["last_error"] = s.meta.LastError
	}
	return m
}

// MarshalJSON renders the state as a single object: all user keys plus the
// metadata under the reserved key. This is the shape persisted in run
// records and returned over the API.
func (s *State) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.values)+1)
	for k, v := range s.values {
		out[k] = v
	}
	out[MetaKey] = s.meta
	return json.Marshal(out)
}
