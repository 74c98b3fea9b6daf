package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testGraph(id string) *Graph {
	return &Graph{
		ID:   id,
		Name: "review",
		Definition: schema.GraphDefinition{
			Name: "review",
			Nodes: []schema.NodeDefinition{
				{Name: "extract", ToolRef: "extract_functions"},
				{Name: "score", ToolRef: "check_complexity", Params: map[string]any{"limit": 10}},
			},
			Edges: []schema.EdgeDefinition{
				{From: "extract", To: "score", Condition: "state.function_count > 0"},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestLibSQLStoreGraphs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("create and get round-trip", func(t *testing.T) {
		require.NoError(t, s.CreateGraph(ctx, testGraph("g1")))

		got, err := s.GetGraph(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "review", got.Name)
		require.Len(t, got.Definition.Nodes, 2)
		assert.Equal(t, "extract", got.Definition.Nodes[0].Name)
		require.Len(t, got.Definition.Edges, 1)
		assert.Equal(t, "state.function_count > 0", got.Definition.Edges[0].Condition)
	})

	t.Run("get missing graph", func(t *testing.T) {
		_, err := s.GetGraph(ctx, "nope")
		require.Error(t, err)

		var engErr *schema.EngineError
		require.True(t, errors.As(err, &engErr))
		assert.Equal(t, schema.ErrCodeNotFound, engErr.Code)
	})

	t.Run("list and count", func(t *testing.T) {
		require.NoError(t, s.CreateGraph(ctx, testGraph("g2")))

		graphs, err := s.ListGraphs(ctx)
		require.NoError(t, err)
		assert.Len(t, graphs, 2)

		n, err := s.CountGraphs(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteGraph(ctx, "g2"))
		_, err := s.GetGraph(ctx, "g2")
		require.Error(t, err)

		err = s.DeleteGraph(ctx, "g2")
		require.Error(t, err)
	})
}

func TestLibSQLStoreRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateGraph(ctx, testGraph("g1")))

	completed := time.Now().UTC()
	run := &Run{
		ID:         "r1",
		GraphID:    "g1",
		Status:     schema.RunStatusHalted,
		HaltReason: schema.HaltReasonMaxIterations,
		FinalState: json.RawMessage(`{"score":42,"meta":{"iteration_count":3}}`),
		Log: []schema.LogEntry{
			{Node: "extract", Iteration: 0, Status: schema.EntrySuccess, Timestamp: completed},
			{Node: "extract", Iteration: 1, Status: schema.EntryError, Error: "boom", Timestamp: completed},
		},
		CreatedAt:   completed,
		CompletedAt: &completed,
	}

	t.Run("create and get round-trip", func(t *testing.T) {
		require.NoError(t, s.CreateRun(ctx, run))

		got, err := s.GetRun(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, schema.RunStatusHalted, got.Status)
		assert.Equal(t, schema.HaltReasonMaxIterations, got.HaltReason)
		assert.JSONEq(t, string(run.FinalState), string(got.FinalState))
		require.Len(t, got.Log, 2)
		assert.Equal(t, "boom", got.Log[1].Error)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("list filters by graph", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunFilter{GraphID: "g1"})
		require.NoError(t, err)
		assert.Len(t, runs, 1)

		runs, err = s.ListRuns(ctx, RunFilter{GraphID: "other"})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("count", func(t *testing.T) {
		n, err := s.CountRuns(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("deleting the graph cascades to runs", func(t *testing.T) {
		require.NoError(t, s.DeleteGraph(ctx, "g1"))
		_, err := s.GetRun(ctx, "r1")
		require.Error(t, err)
	})
}

func TestLibSQLStoreScheduledJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateGraph(ctx, testGraph("g1")))

	next := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
	job := &ScheduledJob{
		ID:           "j1",
		GraphID:      "g1",
		CronSpec:     "*/5 * * * *",
		InitialState: json.RawMessage(`{"code":"def f():\n    pass"}`),
		Enabled:      true,
		NextRunAt:    &next,
		CreatedAt:    time.Now().UTC(),
	}

	t.Run("create and get round-trip", func(t *testing.T) {
		require.NoError(t, s.CreateScheduledJob(ctx, job))

		got, err := s.GetScheduledJob(ctx, "j1")
		require.NoError(t, err)
		assert.Equal(t, "*/5 * * * *", got.CronSpec)
		assert.True(t, got.Enabled)
		require.NotNil(t, got.NextRunAt)
		assert.JSONEq(t, string(job.InitialState), string(got.InitialState))
	})

	t.Run("enabled filter", func(t *testing.T) {
		disabled := &ScheduledJob{ID: "j2", GraphID: "g1", CronSpec: "0 0 * * *", Enabled: false}
		require.NoError(t, s.CreateScheduledJob(ctx, disabled))

		enabled := true
		jobs, err := s.ListScheduledJobs(ctx, ScheduledJobFilter{Enabled: &enabled})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "j1", jobs[0].ID)

		jobs, err = s.ListScheduledJobs(ctx, ScheduledJobFilter{})
		require.NoError(t, err)
		assert.Len(t, jobs, 2)
	})

	t.Run("update run times", func(t *testing.T) {
		last := time.Now().UTC().Truncate(time.Second)
		nextRun := last.Add(5 * time.Minute)
		require.NoError(t, s.UpdateScheduledJobTimes(ctx, "j1", &last, &nextRun))

		got, err := s.GetScheduledJob(ctx, "j1")
		require.NoError(t, err)
		require.NotNil(t, got.LastRunAt)
		assert.True(t, got.LastRunAt.Equal(last))
		require.NotNil(t, got.NextRunAt)
		assert.True(t, got.NextRunAt.Equal(nextRun))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteScheduledJob(ctx, "j2"))
		_, err := s.GetScheduledJob(ctx, "j2")
		require.Error(t, err)
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Vacuum(context.Background()))
}

func TestSQLStatements(t *testing.T) {
	script := `-- schema comment
CREATE TABLE a (id TEXT PRIMARY KEY);

-- another comment
CREATE INDEX idx_a ON a(id);
`
	stmts := sqlStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE INDEX idx_a")

	assert.Empty(t, sqlStatements("-- only a comment;\n-- and another"))
}
