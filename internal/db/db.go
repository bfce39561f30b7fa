package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Invocation event types written by the transport adapter. The tool core is
// stateless; this log is operational telemetry only.
const (
	EventServerStarted    = "server.started"
	EventInvocationOK     = "invocation.completed"
	EventInvocationFailed = "invocation.failed"
)

// OpenDB opens (or creates) a SQLite database at the given path, ensuring
// that the parent directory exists.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	return database, nil
}

// InitSchema creates the invocation audit table.
func InitSchema(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS invocations (
			id INTEGER PRIMARY KEY,
			timestamp INTEGER NOT NULL DEFAULT (unixepoch()),
			event_type TEXT NOT NULL,
			tool TEXT NOT NULL,
			code TEXT,
			duration_ms INTEGER,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool, id);
	`)
	return err
}

// LogInvocation appends one audit row. code is empty for successful calls
// and carries the failure code otherwise; payload is serialized to JSON and
// may be nil.
func LogInvocation(database *sql.DB, eventType, tool, code string, durationMs int64, payload map[string]any) (int64, error) {
	var payloadJSON any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal invocation payload: %w", err)
		}
		payloadJSON = string(data)
	}

	var codeCol any
	if code != "" {
		codeCol = code
	}
	res, err := database.Exec(
		`INSERT INTO invocations (event_type, tool, code, duration_ms, payload) VALUES (?, ?, ?, ?, ?)`,
		eventType, tool, codeCol, durationMs, payloadJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert invocation %s: %w", eventType, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get invocation id: %w", err)
	}
	return id, nil
}

// CountByTool returns how many invocations have been logged for the tool.
func CountByTool(database *sql.DB, tool string) (int, error) {
	var count int
	err := database.QueryRow(
		`SELECT COUNT(*) FROM invocations WHERE tool = ?`, tool,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
