package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const DefaultHistoryFile = "logs/history.db"

// History keeps every scenario result in a SQLite database
type History struct {
	db *sql.DB
}

// OpenHistory creates the database and its parent directory if needed
func OpenHistory(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "history: cannot create directory %s", dir)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "history: cannot open database")
	}
	// scenarios record from their own goroutines
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "history: cannot connect to database")
	}
	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "history: migration failed")
	}
	return h, nil
}

func (h *History) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			feature TEXT NOT NULL,
			scenario TEXT NOT NULL,
			passed INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Record stores the result, giving it a new ID if it doesn't have one
func (h *History) Record(ctx context.Context, result ScenarioResult) (ScenarioResult, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, feature, scenario, passed, started_at, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.Feature,
		result.Scenario,
		result.Passed,
		result.StartedAt.UnixMilli(),
		result.Duration.Milliseconds(),
		result.Error,
	)
	if err != nil {
		return result, errors.Wrap(err, "history: cannot record run")
	}
	return result, nil
}

// Recent returns up to limit results, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]ScenarioResult, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, feature, scenario, passed, started_at, duration_ms, error FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "history: cannot query runs")
	}
	defer rows.Close()

	var results []ScenarioResult
	for rows.Next() {
		var (
			result     ScenarioResult
			startedAt  int64
			durationMS int64
		)
		if err := rows.Scan(&result.ID, &result.Feature, &result.Scenario, &result.Passed, &startedAt, &durationMS, &result.Error); err != nil {
			return nil, errors.Wrap(err, "history: cannot scan run")
		}
		result.StartedAt = time.UnixMilli(startedAt)
		result.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, result)
	}
	return results, errors.Wrap(rows.Err(), "history: cannot read runs")
}

func (h *History) Close() error {
	return h.db.Close()
}
