package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/dvera/autopilot/pkg/schema"
)

// LibSQLStore implements Store on libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path.
// The path should be a file URI, e.g. "file:/path/to/index.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Connection-level PRAGMAs. Some return rows so QueryRow is used.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate applies pending schema migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// IndexRun inserts or refreshes one run's index row.
func (s *LibSQLStore) IndexRun(ctx context.Context, entry *RunIndexEntry) error {
	if entry == nil || entry.ID == "" {
		return schema.NewError(schema.ErrCodeValidation, "run index entry needs an id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, plan_name, started_at, finished_at, success, completed_steps, total_steps, history_path, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   plan_name=excluded.plan_name, started_at=excluded.started_at,
		   finished_at=excluded.finished_at, success=excluded.success,
		   completed_steps=excluded.completed_steps, total_steps=excluded.total_steps,
		   history_path=excluded.history_path, last_error=excluded.last_error`,
		entry.ID, entry.PlanName, entry.StartedAt.UTC(), entry.FinishedAt.UTC(),
		boolToInt(entry.Success), entry.CompletedSteps, entry.TotalSteps,
		entry.HistoryPath, nullStr(entry.LastError), timeOrNow(entry.CreatedAt),
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "index run: %s", err.Error()).WithCause(err)
	}
	return nil
}

// GetRun fetches one indexed run by id.
func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*RunIndexEntry, error) {
	entry := &RunIndexEntry{}
	var success int
	var lastError sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, plan_name, started_at, finished_at, success, completed_steps, total_steps, history_path, last_error, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&entry.ID, &entry.PlanName, &entry.StartedAt, &entry.FinishedAt, &success,
		&entry.CompletedSteps, &entry.TotalSteps, &entry.HistoryPath, &lastError, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "get run: %s", err.Error()).WithCause(err)
	}
	entry.Success = success != 0
	entry.LastError = lastError.String
	return entry, nil
}

// ListRuns returns indexed runs matching the filter, newest first.
func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunIndexEntry, error) {
	var where []string
	var args []any

	if filter.PlanName != "" {
		where = append(where, "plan_name = ?")
		args = append(args, filter.PlanName)
	}
	if filter.Success != nil {
		where = append(where, "success = ?")
		args = append(args, boolToInt(*filter.Success))
	}
	if filter.Since != nil {
		where = append(where, "started_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT id, plan_name, started_at, finished_at, success, completed_steps, total_steps, history_path, last_error, created_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "list runs: %s", err.Error()).WithCause(err)
	}
	defer rows.Close()

	var entries []*RunIndexEntry
	for rows.Next() {
		entry := &RunIndexEntry{}
		var success int
		var lastError sql.NullString
		if err := rows.Scan(&entry.ID, &entry.PlanName, &entry.StartedAt, &entry.FinishedAt, &success,
			&entry.CompletedSteps, &entry.TotalSteps, &entry.HistoryPath, &lastError, &entry.CreatedAt); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeStore, "scan run: %s", err.Error()).WithCause(err)
		}
		entry.Success = success != 0
		entry.LastError = lastError.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteRun removes one indexed run. The history file is untouched.
func (s *LibSQLStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "delete run: %s", err.Error()).WithCause(err)
	}
	return checkRowsAffected(res, "run", id)
}

// Vacuum reclaims space after deletions.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.PilotError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
