// Package sqlite provides a pure-Go SQLite backend for pandas.read_sql sources.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dslint/pkg/adapter"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Factory is the adapter.Factory for SQLite.
func Factory(logger *slog.Logger) adapter.Adapter { return New(logger) }

// Name returns the backend type name.
func (a *Adapter) Name() string {
	return "sqlite"
}

// Connect opens the database file read-only. An empty path opens a private
// in-memory database, which is writable.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := ":memory:"
	if cfg.Path != "" {
		dsn = "file:" + cfg.Path + "?mode=ro"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Each connection to ":memory:" is a distinct database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.Logger.Debug("opened sqlite database", slog.String("path", cfg.Path))

	a.DB = db
	a.Cfg = cfg
	a.Cfg.Type = a.Name()
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
