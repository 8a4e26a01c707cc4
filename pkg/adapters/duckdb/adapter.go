// Package duckdb provides a DuckDB backend for dslint loaders.
//
// Besides SQL sources (duckdb:/// URIs), DuckDB reads the flat files that
// pandas.read_csv, read_parquet and read_json point at.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/leapstack-labs/dslint/pkg/dataset"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Format is a flat file format DuckDB can scan.
type Format string

// Supported file formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// FileOptions controls how a file is scanned.
type FileOptions struct {
	// Delimiter overrides CSV delimiter sniffing.
	Delimiter string
	// Header says whether the first CSV row holds column names.
	// Nil lets DuckDB detect it.
	Header *bool
	// Columns selects columns; empty means all.
	Columns []string
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Factory is the adapter.Factory for DuckDB.
func Factory(logger *slog.Logger) adapter.Adapter { return New(logger) }

// Name returns the backend type name.
func (a *Adapter) Name() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// An empty path or ":memory:" opens an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}
	setup, err := params.setupStatements()
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	// Session settings and secrets only apply to the connection they ran on.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.Cfg.Type = a.Name()

	for _, stmt := range setup {
		if err := a.Exec(ctx, stmt); err != nil {
			_ = a.Close()
			a.DB = nil
			return fmt.Errorf("duckdb setup %q: %w", stmt, err)
		}
	}
	return nil
}

// ReadFile scans a CSV, Parquet or JSON file into a dataset, reading at most
// limit rows (all when negative).
func (a *Adapter) ReadFile(ctx context.Context, format Format, path string, opts FileOptions, limit int) (*dataset.Dataset, error) {
	query, err := fileQuery(format, path, opts, limit)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("reading file", slog.String("format", string(format)), slog.String("path", path))
	return a.QueryDataset(ctx, query, limit)
}

func fileQuery(format Format, path string, opts FileOptions, limit int) (string, error) {
	if !strings.Contains(path, "://") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}

	args := []string{adapter.QuoteLiteral(path)}
	var fn string
	switch format {
	case FormatCSV:
		fn = "read_csv_auto"
		if opts.Delimiter != "" {
			args = append(args, "delim="+adapter.QuoteLiteral(opts.Delimiter))
		}
		if opts.Header != nil {
			args = append(args, fmt.Sprintf("header=%t", *opts.Header))
		}
	case FormatParquet:
		fn = "read_parquet"
	case FormatJSON:
		fn = "read_json_auto"
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}

	sel := "*"
	if len(opts.Columns) > 0 {
		quoted := make([]string, len(opts.Columns))
		for i, c := range opts.Columns {
			quoted[i] = adapter.QuoteIdent(c)
		}
		sel = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s(%s)", sel, fn, strings.Join(args, ", "))
	if limit >= 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
