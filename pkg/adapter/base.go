package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/dataset"
)

// ErrNotConnected is returned by operations on an adapter without a connection.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, QueryDataset and ReadTable implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection", slog.String("type", b.Cfg.Type))
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// QueryDataset executes a query and scans up to limit rows into a dataset.
// When the connection has a sampling cap, rows are reservoir sampled during
// the scan. Cells are converted with dataset.ToFloat; non-numeric cells
// become NaN.
func (b *BaseSQLAdapter) QueryDataset(ctx context.Context, sqlStr string, limit int, args ...any) (*dataset.Dataset, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	sample := dataset.NewReservoir(b.Cfg.Sampling.Size, b.Cfg.Sampling.Seed)
	for rows.Next() {
		if limit >= 0 && sample.Seen() >= limit {
			break
		}
		values := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sample.Add(values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	records := sample.Records()
	b.logger().Debug("query loaded",
		slog.String("type", b.Cfg.Type),
		slog.Int("rows_read", sample.Seen()),
		slog.Int("rows", len(records)),
		slog.Int("columns", len(header)))

	return dataset.FromRecords(header, records)
}

// ReadTable reads the named columns (all when empty) of a table.
// Identifiers are quoted with double quotes, which all supported backends accept.
func (b *BaseSQLAdapter) ReadTable(ctx context.Context, table string, columns []string, limit int) (*dataset.Dataset, error) {
	sel := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = QuoteIdent(c)
		}
		sel = strings.Join(quoted, ", ")
	}
	query := "SELECT " + sel + " FROM " + QuoteQualified(table) //nolint:gosec // identifiers are quoted
	return b.QueryDataset(ctx, query, limit)
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// QuoteIdent quotes a single SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes each part of a dotted table reference.
func QuoteQualified(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// QuoteLiteral quotes a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
