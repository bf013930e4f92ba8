// Package metrics provides SQLite-backed recording of knowledge operation
// outcomes, grouped into sessions.
package metrics

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS operations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	tool        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_operations_session ON operations(session_id);
CREATE INDEX IF NOT EXISTS idx_operations_tool ON operations(tool);
`

// Recorder defines the metrics operations. Consumers should depend on this
// interface rather than the concrete *DB type to facilitate testing.
type Recorder interface {
	Record(op Operation) error
	SessionSummary(sessionID string) (*Summary, error)
	ToolCounts() (map[string]int, error)
	Close() error
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)

// Operation is one recorded tool invocation.
type Operation struct {
	SessionID string
	Tool      string
	// Outcome is the result classification: ok, review_required, not_found
	// or error.
	Outcome   string
	Duration  time.Duration
	StartedAt time.Time
}

// Summary aggregates one session's operations.
type Summary struct {
	SessionID     string         `json:"session_id"`
	Total         int            `json:"total"`
	ByOutcome     map[string]int `json:"by_outcome"`
	ByTool        map[string]int `json:"by_tool"`
	AvgDurationMs float64        `json:"avg_duration_ms"`
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// DB wraps a sql.DB with metrics-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("metrics: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metrics: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metrics: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record inserts one operation row.
func (db *DB) Record(op Operation) error {
	started := op.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO operations (session_id, tool, outcome, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, op.SessionID, op.Tool, op.Outcome, op.Duration.Milliseconds(), started.UTC())
	if err != nil {
		return fmt.Errorf("metrics: record operation: %w", err)
	}
	return nil
}

// SessionSummary aggregates the counts and mean duration for one session.
// A session with no recorded operations yields an empty summary, not an error.
func (db *DB) SessionSummary(sessionID string) (*Summary, error) {
	s := &Summary{
		SessionID: sessionID,
		ByOutcome: make(map[string]int),
		ByTool:    make(map[string]int),
	}

	rows, err := db.conn.Query(`
		SELECT tool, outcome, duration_ms FROM operations WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("metrics: query session: %w", err)
	}
	defer rows.Close()

	var totalMs int64
	for rows.Next() {
		var tool, outcome string
		var ms int64
		if err := rows.Scan(&tool, &outcome, &ms); err != nil {
			return nil, fmt.Errorf("metrics: scan operation: %w", err)
		}
		s.Total++
		s.ByOutcome[outcome]++
		s.ByTool[tool]++
		totalMs += ms
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metrics: iterate operations: %w", err)
	}
	if s.Total > 0 {
		s.AvgDurationMs = float64(totalMs) / float64(s.Total)
	}
	return s, nil
}

// ToolCounts returns the all-time invocation count per tool.
func (db *DB) ToolCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT tool, COUNT(*) FROM operations GROUP BY tool`)
	if err != nil {
		return nil, fmt.Errorf("metrics: query tool counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var tool string
		var n int
		if err := rows.Scan(&tool, &n); err != nil {
			return nil, fmt.Errorf("metrics: scan tool count: %w", err)
		}
		out[tool] = n
	}
	return out, rows.Err()
}
