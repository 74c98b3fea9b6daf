package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Graphs ---

func (s *LibSQLStore) CreateGraph(ctx context.Context, g *Graph) error {
	def, err := json.Marshal(g.Definition)
	if err != nil {
		return fmt.Errorf("marshal graph definition: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graphs (id, name, definition, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, nullStr(g.Name), string(def), timeOrNow(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert graph: %w", err)
	}
	return nil
}

func (s *LibSQLStore) GetGraph(ctx context.Context, id string) (*Graph, error) {
	g := &Graph{}
	var name sql.NullString
	var def string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, definition, created_at FROM graphs WHERE id = ?`, id,
	).Scan(&g.ID, &name, &def, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("graph", id)
	}
	if err != nil {
		return nil, err
	}
	g.Name = name.String
	if err := json.Unmarshal([]byte(def), &g.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal graph definition: %w", err)
	}
	return g, nil
}

func (s *LibSQLStore) ListGraphs(ctx context.Context) ([]*Graph, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, definition, created_at FROM graphs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var graphs []*Graph
	for rows.Next() {
		g := &Graph{}
		var name sql.NullString
		var def string
		if err := rows.Scan(&g.ID, &name, &def, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Name = name.String
		if err := json.Unmarshal([]byte(def), &g.Definition); err != nil {
			return nil, fmt.Errorf("unmarshal graph definition: %w", err)
		}
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

func (s *LibSQLStore) DeleteGraph(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeNotFound("graph", id)
	}
	return nil
}

func (s *LibSQLStore) CountGraphs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graphs`).Scan(&n)
	return n, err
}

// --- Runs ---

func (s *LibSQLStore) CreateRun(ctx context.Context, r *Run) error {
	logJSON, err := json.Marshal(r.Log)
	if err != nil {
		return fmt.Errorf("marshal run log: %w", err)
	}
	var completedAt any
	if r.CompletedAt != nil {
		completedAt = *r.CompletedAt
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, graph_id, status, halt_reason, final_state, log, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GraphID, string(r.Status), nullStr(r.HaltReason),
		nullRaw(r.FinalState), string(logJSON), timeOrNow(r.CreatedAt), completedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	var haltReason, finalState, logJSON sql.NullString
	var completedAt sql.NullTime
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, graph_id, status, halt_reason, final_state, log, created_at, completed_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.GraphID, &status, &haltReason, &finalState, &logJSON, &r.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, err
	}
	r.Status = schema.RunStatus(status)
	r.HaltReason = haltReason.String
	if finalState.Valid {
		r.FinalState = json.RawMessage(finalState.String)
	}
	if logJSON.Valid && logJSON.String != "" {
		if err := json.Unmarshal([]byte(logJSON.String), &r.Log); err != nil {
			return nil, fmt.Errorf("unmarshal run log: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return r, nil
}

func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT id, graph_id, status, halt_reason, final_state, log, created_at, completed_at FROM runs`
	var args []any
	if filter.GraphID != "" {
		query += ` WHERE graph_id = ?`
		args = append(args, filter.GraphID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var haltReason, finalState, logJSON sql.NullString
		var completedAt sql.NullTime
		var status string
		if err := rows.Scan(&r.ID, &r.GraphID, &status, &haltReason, &finalState, &logJSON, &r.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Status = schema.RunStatus(status)
		r.HaltReason = haltReason.String
		if finalState.Valid {
			r.FinalState = json.RawMessage(finalState.String)
		}
		if logJSON.Valid && logJSON.String != "" {
			if err := json.Unmarshal([]byte(logJSON.String), &r.Log); err != nil {
				return nil, fmt.Errorf("unmarshal run log: %w", err)
			}
		}
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *LibSQLStore) CountRuns(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// --- Scheduled Jobs ---

func (s *LibSQLStore) CreateScheduledJob(ctx context.Context, job *ScheduledJob) error {
	var nextRun, lastRun any
	if job.NextRunAt != nil {
		nextRun = *job.NextRunAt
	}
	if job.LastRunAt != nil {
		lastRun = *job.LastRunAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (id, graph_id, cron_spec, initial_state, enabled, next_run_at, last_run_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.GraphID, job.CronSpec, nullRaw(job.InitialState),
		boolToInt(job.Enabled), nextRun, lastRun, timeOrNow(job.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert scheduled job: %w", err)
	}
	return nil
}

func (s *LibSQLStore) GetScheduledJob(ctx context.Context, id string) (*ScheduledJob, error) {
	job := &ScheduledJob{}
	var initialState sql.NullString
	var enabled int
	var nextRun, lastRun sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, graph_id, cron_spec, initial_state, enabled, next_run_at, last_run_at, created_at
		 FROM scheduled_jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.GraphID, &job.CronSpec, &initialState, &enabled, &nextRun, &lastRun, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scheduled job", id)
	}
	if err != nil {
		return nil, err
	}
	if initialState.Valid {
		job.InitialState = json.RawMessage(initialState.String)
	}
	job.Enabled = enabled != 0
	if nextRun.Valid {
		t := nextRun.Time
		job.NextRunAt = &t
	}
	if lastRun.Valid {
		t := lastRun.Time
		job.LastRunAt = &t
	}
	return job, nil
}

func (s *LibSQLStore) ListScheduledJobs(ctx context.Context, filter ScheduledJobFilter) ([]*ScheduledJob, error) {
	query := `SELECT id, graph_id, cron_spec, initial_state, enabled, next_run_at, last_run_at, created_at FROM scheduled_jobs`
	var args []any
	if filter.Enabled != nil {
		query += ` WHERE enabled = ?`
		args = append(args, boolToInt(*filter.Enabled))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ScheduledJob
	for rows.Next() {
		job := &ScheduledJob{}
		var initialState sql.NullString
		var enabled int
		var nextRun, lastRun sql.NullTime
		if err := rows.Scan(&job.ID, &job.GraphID, &job.CronSpec, &initialState, &enabled, &nextRun, &lastRun, &job.CreatedAt); err != nil {
			return nil, err
		}
		if initialState.Valid {
			job.InitialState = json.RawMessage(initialState.String)
		}
		job.Enabled = enabled != 0
		if nextRun.Valid {
			t := nextRun.Time
			job.NextRunAt = &t
		}
		if lastRun.Valid {
			t := lastRun.Time
			job.LastRunAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *LibSQLStore) UpdateScheduledJobTimes(ctx context.Context, id string, lastRun, nextRun *time.Time) error {
	var last, next any
	if lastRun != nil {
		last = *lastRun
	}
	if nextRun != nil {
		next = *nextRun
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET last_run_at = ?, next_run_at = ? WHERE id = ?`,
		last, next, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeNotFound("scheduled job", id)
	}
	return nil
}

func (s *LibSQLStore) DeleteScheduledJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeNotFound("scheduled job", id)
	}
	return nil
}

// --- Helpers ---

func storeNotFound(kind, id string) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", kind, id)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*LibSQLStore)(nil)
