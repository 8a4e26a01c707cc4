package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/leapstack-labs/dslint/pkg/adapters/duckdb"
	"github.com/leapstack-labs/dslint/pkg/dataset"
)

// FileReader is implemented by backends that can scan flat files.
type FileReader interface {
	adapter.Adapter
	ReadFile(ctx context.Context, format duckdb.Format, path string, opts duckdb.FileOptions, limit int) (*dataset.Dataset, error)
}

// Pandas returns the built-in pandas loaders.
func Pandas() map[string]Func {
	return map[string]Func{
		"pandas.read_csv":       readCSV,
		"pandas.read_parquet":   readParquet,
		"pandas.read_json":      readJSON,
		"pandas.read_sql":       readSQL,
		"pandas.read_sql_query": readSQLQuery,
		"pandas.read_sql_table": readSQLTable,
	}
}

func readCSV(ctx context.Context, env *Env, args CallArgs) (*dataset.Dataset, error) {
	bound, err := args.Bind("filepath_or_buffer", "sep")
	if err != nil {
		return nil, err
	}
	path, err := requiredString(bound, "filepath_or_buffer")
	if err != nil {
		return nil, err
	}

	var opts duckdb.FileOptions
	if opts.Delimiter, _, err = stringArg(bound, "sep"); err != nil {
		return nil, err
	}
	if delim, ok, err := stringArg(bound, "delimiter"); err != nil {
		return nil, err
	} else if ok {
		opts.Delimiter = delim
	}
	if opts.Delimiter == `\s+` {
		opts.Delimiter = " "
	}

	switch h := bound["header"].(type) {
	case nil:
		if _, given := bound["header"]; given {
			off := false
			opts.Header = &off
		}
	case string:
		if h != "infer" {
			return nil, &ArgError{Name: "header", Reason: fmt.Sprintf("unsupported value %q", h)}
		}
	case int64:
		if h != 0 {
			return nil, &ArgError{Name: "header", Reason: "only header=0 or header=None are supported"}
		}
		on := true
		opts.Header = &on
	default:
		return nil, &ArgError{Name: "header", Reason: fmt.Sprintf("unsupported value %v", h)}
	}

	if opts.Columns, err = stringsArg(bound, "usecols"); err != nil {
		return nil, err
	}
	limit, err := rowLimit(bound)
	if err != nil {
		return nil, err
	}

	logIgnored(env, "pandas.read_csv", bound, "filepath_or_buffer", "sep", "delimiter", "header", "usecols", "nrows")
	return readFile(ctx, env, duckdb.FormatCSV, path, opts, limit)
}

func readParquet(ctx context.Context, env *Env, args CallArgs) (*dataset.Dataset, error) {
	bound, err := args.Bind("path", "engine", "columns")
	if err != nil {
		return nil, err
	}
	path, err := requiredString(bound, "path")
	if err != nil {
		return nil, err
	}
	var opts duckdb.FileOptions
	if opts.Columns, err = stringsArg(bound, "columns"); err != nil {
		return nil, err
	}

	logIgnored(env, "pandas.read_parquet", bound, "path", "engine", "columns")
	return readFile(ctx, env, duckdb.FormatParquet, path, opts, -1)
}

func readJSON(ctx context.Context, env *Env, args CallArgs) (*dataset.Dataset, error) {
	bound, err := args.Bind("path_or_buf", "orient")
	if err != nil {
		return nil, err
	}
	path, err := requiredString(bound, "path_or_buf")
	if err != nil {
		return nil, err
	}
	if orient, ok, err := stringArg(bound, "orient"); err != nil {
		return nil, err
	} else if ok && orient != "records" {
		return nil, &ArgError{Name: "orient", Reason: fmt.Sprintf("unsupported orient %q", orient)}
	}
	limit, err := rowLimit(bound)
	if err != nil {
		return nil, err
	}

	logIgnored(env, "pandas.read_json", bound, "path_or_buf", "orient", "lines", "nrows")
	return readFile(ctx, env, duckdb.FormatJSON, path, duckdb.FileOptions{}, limit)
}

func readSQL(ctx context.Context, env *Env, args CallArgs) (*dataset.Dataset, error) {
	bound, err := args.Bind("sql", "con")
	if err != nil {
		return nil, err
	}
	query, err := requiredString(bound, "sql")
	if err != nil {
		return nil, err
	}
	// read_sql delegates to read_sql_table when given a bare table name.
	if isTableName(query) {
		return sqlTable(ctx, env, bound, query)
	}
	return sqlQuery(ctx, env, bound, query)
}

func readSQLQuery(ctx context.Context, env *Env, args CallArgs) (*dataset.Dataset, error) {
	bound, err := args.Bind("sql", "con")
	if err != nil {
		return nil, err
	}
	query, err := requiredString(bound, "sql")
	if err != nil {
		return nil, err
	}
	return sqlQuery(ctx, env, bound, query)
}

func readSQLTable(ctx context.Context, env *Env, args CallArgs) (*dataset.Dataset, error) {
	bound, err := args.Bind("table_name", "con", "schema", "index_col", "coerce_float", "parse_dates", "columns")
	if err != nil {
		return nil, err
	}
	table, err := requiredString(bound, "table_name")
	if err != nil {
		return nil, err
	}
	return sqlTable(ctx, env, bound, table)
}

func sqlQuery(ctx context.Context, env *Env, bound map[string]any, query string) (*dataset.Dataset, error) {
	a, err := openSQL(ctx, env, bound)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	logIgnored(env, "pandas.read_sql", bound, "sql", "con")
	return a.QueryDataset(ctx, query, -1)
}

func sqlTable(ctx context.Context, env *Env, bound map[string]any, table string) (*dataset.Dataset, error) {
	schema, _, err := stringArg(bound, "schema")
	if err != nil {
		return nil, err
	}
	columns, err := stringsArg(bound, "columns")
	if err != nil {
		return nil, err
	}
	if schema != "" {
		table = schema + "." + table
	}

	a, err := openSQL(ctx, env, bound)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	logIgnored(env, "pandas.read_sql_table", bound, "sql", "table_name", "con", "schema", "columns")
	return a.ReadTable(ctx, table, columns, -1)
}

func openSQL(ctx context.Context, env *Env, bound map[string]any) (adapter.Adapter, error) {
	uri, err := requiredString(bound, "con")
	if err != nil {
		return nil, err
	}
	cfg, err := adapter.ParseURI(uri, env.DataRoot)
	if err != nil {
		return nil, &ArgError{Name: "con", Reason: err.Error()}
	}
	return env.open(ctx, cfg)
}

func readFile(ctx context.Context, env *Env, format duckdb.Format, path string, opts duckdb.FileOptions, limit int) (*dataset.Dataset, error) {
	backend := env.FileBackend
	if backend == "" {
		backend = "duckdb"
	}
	a, err := env.open(ctx, adapter.Config{Type: backend})
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	fr, ok := a.(FileReader)
	if !ok {
		return nil, fmt.Errorf("backend %q cannot read files", backend)
	}
	return fr.ReadFile(ctx, format, env.Resolve(path), opts, limit)
}

func rowLimit(bound map[string]any) (int, error) {
	n, ok, err := intArg(bound, "nrows")
	if err != nil || !ok {
		return -1, err
	}
	return n, nil
}

func isTableName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\n;()") {
		return false
	}
	return true
}

func logIgnored(env *Env, identity string, bound map[string]any, known ...string) {
	if rest := ignored(bound, known...); len(rest) > 0 {
		env.logger().Debug("ignoring loader arguments", slog.String("loader", identity), slog.Any("args", rest))
	}
}
