package persist

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cliffjones/polli/internal/talkmap"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS talk_entries (
	depth        INTEGER NOT NULL,
	context_key  TEXT NOT NULL,
	position     INTEGER NOT NULL,
	utterance    TEXT NOT NULL,
	PRIMARY KEY (depth, context_key, position)
);
`

// #endregion schema

// #region store-struct
// SQLiteStore keeps every depth's talk map in one SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: the store and the turn log share the file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewStoreWithDB wraps an already-open database. The schema is not applied.
func NewStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region load
// Load reads one depth. A depth without rows is reported as Missing.
func (s *SQLiteStore) Load(ctx context.Context, depth int) LoadResult {
	rows, err := s.db.QueryContext(ctx,
		`SELECT context_key, utterance FROM talk_entries
		 WHERE depth = ? ORDER BY context_key ASC, position ASC`, depth,
	)
	if err != nil {
		return empty(depth, Unreadable, fmt.Errorf("query depth %d: %w", depth, err))
	}
	defer rows.Close()

	raw := map[string][]string{}
	for rows.Next() {
		var key, utterance string
		if err := rows.Scan(&key, &utterance); err != nil {
			return empty(depth, Malformed, fmt.Errorf("scan depth %d: %w", depth, err))
		}
		raw[key] = append(raw[key], utterance)
	}
	if err := rows.Err(); err != nil {
		return empty(depth, Unreadable, fmt.Errorf("iterate depth %d: %w", depth, err))
	}
	if len(raw) == 0 {
		return empty(depth, Missing, nil)
	}
	return loaded(depth, fromLists(raw))
}

// #endregion load

// #region save
// Save replaces one depth's rows atomically.
func (s *SQLiteStore) Save(ctx context.Context, depth int, m talkmap.Map) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM talk_entries WHERE depth = ?`, depth); err != nil {
		return fmt.Errorf("clear depth %d: %w", depth, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO talk_entries (depth, context_key, position, utterance) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, key := range m.Keys() {
		for pos, utterance := range m[key] {
			if _, err := stmt.ExecContext(ctx, depth, key, pos, utterance); err != nil {
				return fmt.Errorf("insert %q: %w", key, err)
			}
		}
	}

	return tx.Commit()
}

// #endregion save
