package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

func TestNewState(t *testing.T) {
	t.Run("copies initial data", func(t *testing.T) {
		initial := map[string]any{"x": 1, "name": "run"}
		st := NewState(initial, 10)

		initial["x"] = 99
		v, ok := st.Get("x")
		require.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("drops reserved meta key from initial data", func(t *testing.T) {
		st := NewState(map[string]any{"meta": "hijacked", "x": 1}, 10)

		_, ok := st.Get(MetaKey)
		assert.False(t, ok)

		v, ok := st.Get("x")
		require.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("nil initial data", func(t *testing.T) {
		st := NewState(nil, 5)
		assert.Equal(t, 0, st.IterationCount())
		assert.Equal(t, 5, st.MaxIterations())
	})
}

func TestStateMerge(t *testing.T) {
	t.Run("shallow overwrite", func(t *testing.T) {
		st := NewState(map[string]any{"x": 1, "keep": "me"}, 10)
		st.Merge(map[string]any{"x": 2, "added": true})

		v, _ := st.Get("x")
		assert.Equal(t, 2, v)
		v, _ = st.Get("keep")
		assert.Equal(t, "me", v)
		v, _ = st.Get("added")
		assert.Equal(t, true, v)
	})

	t.Run("nested values are replaced whole", func(t *testing.T) {
		st := NewState(map[string]any{"obj": map[string]any{"a": 1, "b": 2}}, 10)
		st.Merge(map[string]any{"obj": map[string]any{"c": 3}})

		v, _ := st.Get("obj")
		obj, ok := v.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, map[string]any{"c": 3}, obj)
	})

	t.Run("meta key is never clobbered", func(t *testing.T) {
		st := NewState(map[string]any{"x": 1}, 10)
		st.IncrementIteration()
		st.Merge(map[string]any{"meta": "overwritten", "x": 2})

		_, ok := st.Get(MetaKey)
		assert.False(t, ok)
		assert.Equal(t, 1, st.IterationCount())
	})
}

func TestStateSnapshot(t *testing.T) {
	t.Run("contains user keys and meta sub-map", func(t *testing.T) {
		st := NewState(map[string]any{"x": 1}, 7)
		st.IncrementIteration()

		snap := st.Snapshot()
		assert.Equal(t, 1, snap["x"])

		meta, ok := snap[MetaKey].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 1, meta["iteration_count"])
		assert.Equal(t, 7, meta["max_iterations"])
		assert.Contains(t, meta, "start_time")
	})

	t.Run("mutating snapshot leaves state untouched", func(t *testing.T) {
		st := NewState(map[string]any{"x": 1}, 10)

		snap := st.Snapshot()
		snap["x"] = 100
		delete(snap, MetaKey)

		v, _ := st.Get("x")
		assert.Equal(t, 1, v)
	})

	t.Run("last_error surfaces after RecordError", func(t *testing.T) {
		st := NewState(nil, 10)
		st.RecordError("boom")

		meta := st.Snapshot()[MetaKey].(map[string]any)
		assert.Equal(t, "boom", meta["last_error"])
	})
}

func TestStateMarshalJSON(t *testing.T) {
	st := NewState(map[string]any{"score": 85}, 10)
	st.IncrementIteration()
	st.Finish([]schema.LogEntry{{Node: "a", Status: schema.EntrySuccess}})

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, float64(85), out["score"])

	meta, ok := out["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), meta["iteration_count"])
	assert.NotEmpty(t, meta["end_time"])

	logEntries, ok := meta["execution_log"].([]any)
	require.True(t, ok)
	assert.Len(t, logEntries, 1)
}
