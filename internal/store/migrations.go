package store

import (
	"context"
	_ "embed"
	"strings"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

//go:embed migrations/001_initial_schema.sql
var schemaV1 string

// orderedMigrations lists every schema revision in apply order. Applied
// revisions are recorded in schema_version; Migrate runs only those above
// the stored mark.
var orderedMigrations = []struct {
	version int
	name    string
	script  string
}{
	{1, "initial_schema", schemaV1},
}

// Migrate brings the database schema up to the latest revision. Safe to call
// on every startup.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return schema.NewError(schema.ErrCodeStore, "create schema_version table").WithCause(err)
	}

	var applied int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&applied); err != nil {
		return schema.NewError(schema.ErrCodeStore, "read schema version").WithCause(err)
	}

	for _, m := range orderedMigrations {
		if m.version <= applied {
			continue
		}
		if err := s.applyMigration(ctx, m.version, m.name, m.script); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs one revision's statements and records it, all in a
// single transaction.
func (s *LibSQLStore) applyMigration(ctx context.Context, version int, name, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "begin migration %d", version).WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range sqlStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return schema.NewErrorf(schema.ErrCodeStore, "apply migration %d (%s)", version, name).
				WithCause(err).
				WithDetails(map[string]any{"statement": stmt})
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, name) VALUES (?, ?)`, version, name); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "record migration %d", version).WithCause(err)
	}
	if err := tx.Commit(); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "commit migration %d", version).WithCause(err)
	}
	return nil
}

// sqlStatements splits an embedded migration script into executable
// statements, dropping comment-only fragments.
func sqlStatements(script string) []string {
	var out []string
	for _, chunk := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(chunk)
		if stmt == "" || commentOnly(stmt) {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func commentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
