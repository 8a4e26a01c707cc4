// Package postgres provides a PostgreSQL backend for pandas.read_sql sources.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/dslint/pkg/adapter"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Factory is the adapter.Factory for PostgreSQL.
func Factory(logger *slog.Logger) adapter.Adapter { return New(logger) }

// Name returns the backend type name.
func (a *Adapter) Name() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
// cfg.DSN may be a URL or a key=value connection string.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := ParseDSN(cfg.DSN, cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.Cfg.Type = a.Name()
	return nil
}

// ParseDSN parses a connection string. String-valued params override runtime
// parameters (e.g. application_name, search_path); "sslmode" must be given in
// the DSN itself.
func ParseDSN(dsn string, params map[string]any) (*pgx.ConnConfig, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres connection string is empty")
	}
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}
	for k, v := range params {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("postgres param %q must be a string", k)
		}
		connCfg.RuntimeParams[k] = s
	}
	return connCfg, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
