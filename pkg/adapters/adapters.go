// Package adapters assembles the built-in backends into a registry.
package adapters

import (
	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/leapstack-labs/dslint/pkg/adapters/duckdb"
	"github.com/leapstack-labs/dslint/pkg/adapters/postgres"
	"github.com/leapstack-labs/dslint/pkg/adapters/sqlite"
)

// Default returns a registry holding the duckdb, sqlite and postgres backends.
func Default() *adapter.Registry {
	return adapter.NewRegistry(map[string]adapter.Factory{
		"duckdb":   duckdb.Factory,
		"sqlite":   sqlite.Factory,
		"postgres": postgres.Factory,
	})
}
