// Package loader maps data-ingestion call identities, such as
// "pandas.read_csv", to routines that materialize the data they would read.
//
// A loader only sees the call's literal arguments. Loaders read through the
// backends in pkg/adapter; files go through DuckDB, SQL sources through the
// backend named by the connection URI.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/leapstack-labs/dslint/pkg/dataset"
	"go.starlark.net/syntax"
)

// Func produces a dataset from the literal arguments of an ingestion call.
type Func func(ctx context.Context, env *Env, args CallArgs) (*dataset.Dataset, error)

// Env is the environment loaders run in. It is shared read-only between
// analyses.
type Env struct {
	// DataRoot is the directory relative file paths are resolved against.
	DataRoot string
	// Adapters opens the backends loaders read through.
	Adapters *adapter.Registry
	// FileBackend names the adapter used for flat files. It must implement
	// FileReader. Defaults to "duckdb".
	FileBackend string
	// Sampling caps the rows kept from each source while it is read.
	Sampling adapter.Sampling
	Logger   *slog.Logger
}

// Resolve returns path joined to the data root unless it is absolute or a URL.
func (e *Env) Resolve(path string) string {
	if strings.Contains(path, "://") || filepath.IsAbs(path) || e.DataRoot == "" {
		return path
	}
	return filepath.Join(e.DataRoot, path)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// open connects a backend. The caller must close it.
func (e *Env) open(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error) {
	if e.Adapters == nil {
		return nil, fmt.Errorf("no adapters configured")
	}
	cfg.Sampling = e.Sampling
	return e.Adapters.Open(ctx, cfg, e.logger())
}

// Registry maps call identities to loaders. It is immutable once built.
type Registry struct {
	env     *Env
	loaders map[string]Func
}

// NewRegistry returns a registry serving loaders in env.
func NewRegistry(env *Env, loaders map[string]Func) *Registry {
	if env == nil {
		env = &Env{}
	}
	return &Registry{env: env, loaders: maps.Clone(loaders)}
}

// WithAliases returns a registry that additionally serves each alias key with
// the loader registered under its value, e.g. {"mylib.read_table": "pandas.read_csv"}.
func (r *Registry) WithAliases(aliases map[string]string) (*Registry, error) {
	loaders := maps.Clone(r.loaders)
	for alias, target := range aliases {
		fn, ok := r.loaders[target]
		if !ok {
			return nil, fmt.Errorf("loader alias %q: unknown loader %q", alias, target)
		}
		loaders[alias] = fn
	}
	return &Registry{env: r.env, loaders: loaders}, nil
}

// Lookup returns the loader registered for identity.
func (r *Registry) Lookup(identity string) (Func, bool) {
	fn, ok := r.loaders[identity]
	return fn, ok
}

// Identities returns the registered identities, sorted.
func (r *Registry) Identities() []string {
	return slices.Sorted(maps.Keys(r.loaders))
}

// Load runs the loader for identity on call. It reports false when no loader
// is registered; that is not an error.
func (r *Registry) Load(ctx context.Context, identity string, call *syntax.CallExpr) (*dataset.Dataset, bool, error) {
	fn, ok := r.loaders[identity]
	if !ok {
		return nil, false, nil
	}
	args, err := EvalArgs(call)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", identity, err)
	}
	d, err := fn(ctx, r.env, args)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", identity, err)
	}
	return d, true, nil
}

// Static returns a loader that always yields d. It serves in-memory sources
// such as test fixtures and interactive sessions.
func Static(d *dataset.Dataset) Func {
	return func(context.Context, *Env, CallArgs) (*dataset.Dataset, error) {
		return d, nil
	}
}
