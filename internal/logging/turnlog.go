package logging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoSessions is returned by LatestSession when the log is empty.
var ErrNoSessions = errors.New("turn log: no sessions")

// #region schema
const turnLogSchema = `
CREATE TABLE IF NOT EXISTS turn_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	turn         INTEGER NOT NULL,
	response     TEXT,
	reply        TEXT NOT NULL,
	seeding      INTEGER NOT NULL DEFAULT 0,
	match_depth  INTEGER NOT NULL DEFAULT 0,
	context_key  TEXT,
	fallback     INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS turn_log_session ON turn_log (session_id, turn);
`

// #endregion schema

// #region turn-log
// TurnLog persists exchanges to SQLite so sessions can be inspected and replayed.
type TurnLog struct {
	db *sql.DB
}

// NewTurnLog creates the turn_log table if needed and returns a log over db.
func NewTurnLog(db *sql.DB) (*TurnLog, error) {
	if _, err := db.Exec(turnLogSchema); err != nil {
		return nil, fmt.Errorf("migrate turn log: %w", err)
	}
	return &TurnLog{db: db}, nil
}

// Record writes one exchange.
func (l *TurnLog) Record(ctx context.Context, entry TurnEntry) error {
	return LogTurn(ctx, l.db, entry)
}

// Session returns every exchange of a session in turn order.
func (l *TurnLog) Session(ctx context.Context, sessionID string) ([]TurnEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT session_id, turn, response, reply, seeding, match_depth, context_key, fallback, created_at
		 FROM turn_log WHERE session_id = ? ORDER BY turn ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []TurnEntry
	for rows.Next() {
		var e TurnEntry
		var response, contextKey sql.NullString
		var seeding, fallback int
		var createdStr string
		if err := rows.Scan(&e.SessionID, &e.Turn, &response, &e.Reply, &seeding, &e.MatchDepth, &contextKey, &fallback, &createdStr); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		e.Response = response.String
		e.ContextKey = contextKey.String
		e.Seeding = seeding != 0
		e.Fallback = fallback != 0
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestSession returns the ID of the session with the most recent turn.
func (l *TurnLog) LatestSession(ctx context.Context) (string, error) {
	var id string
	err := l.db.QueryRowContext(ctx,
		`SELECT session_id FROM turn_log ORDER BY id DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSessions
	}
	if err != nil {
		return "", fmt.Errorf("latest session: %w", err)
	}
	return id, nil
}

// Resolve maps ref, a session ID or "latest", to a session ID.
func (l *TurnLog) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" || ref == "latest" {
		return l.LatestSession(ctx)
	}
	return ref, nil
}

// Sessions lists the most recent sessions, newest first.
func (l *TurnLog) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MIN(created_at), MAX(id) AS last_id
		 FROM turn_log GROUP BY session_id ORDER BY last_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var startedStr string
		var lastID int64
		if err := rows.Scan(&s.SessionID, &s.Turns, &startedStr, &lastID); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		out = append(out, s)
	}
	return out, rows.Err()
}

// #endregion turn-log

// #region log-turn
// LogTurn writes a turn entry to the turn_log table.
func LogTurn(ctx context.Context, db *sql.DB, entry TurnEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO turn_log (session_id, turn, response, reply, seeding, match_depth, context_key, fallback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Turn,
		nullIfEmpty(entry.Response),
		entry.Reply,
		boolInt(entry.Seeding),
		entry.MatchDepth,
		nullIfEmpty(entry.ContextKey),
		boolInt(entry.Fallback),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

// #endregion log-turn

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
