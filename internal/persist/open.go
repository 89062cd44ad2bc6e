package persist

import (
	"errors"
	"fmt"

	"github.com/cliffjones/polli/internal/config"
	"github.com/cliffjones/polli/internal/logging"
)

// #region open
// Backend is an opened storage backend.
type Backend struct {
	Provider   Provider
	SQLite     *SQLiteStore // nil for the file backend
	SQLitePath string

	turnDB *SQLiteStore
}

// Open builds the provider selected by cfg.
func Open(cfg config.Storage) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return &Backend{Provider: NewFileProvider(cfg.Dir)}, nil
	case config.BackendSQLite:
		store, err := NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
		}
		return &Backend{Provider: store, SQLite: store, SQLitePath: cfg.DBPath}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenTurnLog opens the turn log at path, sharing the talk map database when
// both live in the same file.
func (b *Backend) OpenTurnLog(path string) (*logging.TurnLog, error) {
	if b.SQLite != nil && b.SQLitePath == path {
		return logging.NewTurnLog(b.SQLite.DB())
	}
	if b.turnDB == nil {
		store, err := NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("open turn log %s: %w", path, err)
		}
		b.turnDB = store
	}
	return logging.NewTurnLog(b.turnDB.DB())
}

// Close releases every database handle the backend opened.
func (b *Backend) Close() error {
	var errs []error
	if b.SQLite != nil {
		errs = append(errs, b.SQLite.Close())
	}
	if b.turnDB != nil {
		errs = append(errs, b.turnDB.Close())
	}
	return errors.Join(errs...)
}

// #endregion open
