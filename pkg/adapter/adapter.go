// Package adapter provides the database backends that loaders read tabular data
// through.
//
// This package contains the contract every backend implements and the shared
// database/sql plumbing. Concrete backends are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/leapstack-labs/dslint/pkg/dataset"
)

// Config describes how to reach a backend.
type Config struct {
	// Type selects the backend: "duckdb", "sqlite" or "postgres".
	Type string
	// Path is the database file for embedded backends. Empty means in-memory.
	Path string
	// DSN is a driver connection string for server backends.
	DSN string
	// Params are backend-specific settings decoded by each adapter,
	// e.g. DuckDB extensions and session settings.
	Params map[string]any
	// Sampling bounds the rows every read through the connection keeps.
	Sampling Sampling
}

// Sampling caps the rows a read keeps. Rows beyond Size are reservoir sampled
// while the result is scanned, so memory stays bounded by Size whatever the
// size of the source.
type Sampling struct {
	// Size is the row cap. Zero or negative keeps every row.
	Size int
	Seed uint64
}

// Adapter defines the interface that all backends must implement.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// QueryDataset executes a query and reads at most limit rows into a
	// dataset. A negative limit reads every row. The rows read are then
	// sampled down to the connection's Sampling.Size.
	QueryDataset(ctx context.Context, sql string, limit int, args ...any) (*dataset.Dataset, error)

	// ReadTable reads a table (optionally schema-qualified) into a dataset.
	ReadTable(ctx context.Context, table string, columns []string, limit int) (*dataset.Dataset, error)

	// Name returns the backend type name.
	Name() string
}
