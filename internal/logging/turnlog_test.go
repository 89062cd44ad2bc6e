package logging

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	return db
}

func setupLog(t *testing.T) (*TurnLog, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	l, err := NewTurnLog(db)
	if err != nil {
		t.Fatalf("NewTurnLog: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return l, db
}

// #endregion helpers

// #region log-turn-tests
func TestLogTurn_Success(t *testing.T) {
	l, db := setupLog(t)
	ctx := context.Background()

	entry := TurnEntry{
		SessionID:  "s1",
		Turn:       1,
		Response:   "hello",
		Reply:      "how are you",
		MatchDepth: 2,
		ContextKey: "ehlo eho",
		Fallback:   false,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := l.Record(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM turn_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	got, err := l.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Reply != "how are you" || got[0].MatchDepth != 2 || got[0].ContextKey != "ehlo eho" {
		t.Errorf("unexpected entry: %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", entry.CreatedAt, got[0].CreatedAt)
	}
}

func TestLogTurn_ZeroCreatedAt(t *testing.T) {
	l, db := setupLog(t)

	before := time.Now().UTC()
	err := l.Record(context.Background(), TurnEntry{SessionID: "s2", Turn: 1, Reply: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM turn_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogTurn_EmptyOptionalFields(t *testing.T) {
	l, db := setupLog(t)

	err := l.Record(context.Background(), TurnEntry{
		SessionID: "s3",
		Turn:      1,
		Reply:     "first words",
		Seeding:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var response, contextKey sql.NullString
	var seeding int
	db.QueryRow("SELECT response, context_key, seeding FROM turn_log").Scan(&response, &contextKey, &seeding)
	if response.Valid {
		t.Error("expected NULL response for empty string")
	}
	if contextKey.Valid {
		t.Error("expected NULL context_key for empty string")
	}
	if seeding != 1 {
		t.Errorf("expected seeding=1, got %d", seeding)
	}
}

func TestLogTurn_Error(t *testing.T) {
	l, db := setupLog(t)
	db.Close() // close to force error

	err := l.Record(context.Background(), TurnEntry{SessionID: "s4", Turn: 1, Reply: "x"})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestNewTurnLog_ClosedDB(t *testing.T) {
	db := setupDB(t)
	db.Close()
	if _, err := NewTurnLog(db); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-turn-tests

// #region session-tests
func TestSession_OrderedByTurn(t *testing.T) {
	l, _ := setupLog(t)
	ctx := context.Background()

	for _, turn := range []int{2, 1, 3} {
		l.Record(ctx, TurnEntry{SessionID: "s", Turn: turn, Reply: strings.Repeat("x", turn)})
	}
	l.Record(ctx, TurnEntry{SessionID: "other", Turn: 1, Reply: "y"})

	got, err := l.Session(ctx, "s")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Turn != i+1 {
			t.Errorf("entry %d: expected turn %d, got %d", i, i+1, e.Turn)
		}
	}
}

func TestLatestSession(t *testing.T) {
	l, _ := setupLog(t)
	ctx := context.Background()

	_, err := l.LatestSession(ctx)
	if !errors.Is(err, ErrNoSessions) {
		t.Fatalf("expected ErrNoSessions, got %v", err)
	}

	l.Record(ctx, TurnEntry{SessionID: "old", Turn: 1, Reply: "a"})
	l.Record(ctx, TurnEntry{SessionID: "new", Turn: 1, Reply: "b"})

	id, err := l.LatestSession(ctx)
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if id != "new" {
		t.Errorf("expected 'new', got %q", id)
	}
}

func TestResolve(t *testing.T) {
	l, _ := setupLog(t)
	ctx := context.Background()

	if _, err := l.Resolve(ctx, "latest"); !errors.Is(err, ErrNoSessions) {
		t.Fatalf("expected ErrNoSessions, got %v", err)
	}
	l.Record(ctx, TurnEntry{SessionID: "s1", Turn: 1, Reply: "a"})

	for ref, want := range map[string]string{"latest": "s1", "": "s1", "other": "other"} {
		got, err := l.Resolve(ctx, ref)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", ref, err)
		}
		if got != want {
			t.Errorf("Resolve(%q) = %q, want %q", ref, got, want)
		}
	}
}

func TestSessions(t *testing.T) {
	l, _ := setupLog(t)
	ctx := context.Background()

	l.Record(ctx, TurnEntry{SessionID: "a", Turn: 1, Reply: "1"})
	l.Record(ctx, TurnEntry{SessionID: "a", Turn: 2, Reply: "2"})
	l.Record(ctx, TurnEntry{SessionID: "b", Turn: 1, Reply: "3"})

	got, err := l.Sessions(ctx, 10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].SessionID != "b" || got[1].SessionID != "a" || got[1].Turns != 2 {
		t.Errorf("unexpected sessions: %+v", got)
	}
}

// #endregion session-tests

// #region helper-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected 'hello'")
	}
}

func TestSetup(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	var buf bytes.Buffer
	logger := Setup("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON warn line, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// #endregion helper-tests
