package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Factory creates an unconnected adapter.
type Factory func(*slog.Logger) Adapter

// Registry maps backend type names to factories. It is built once at start-up
// and never modified, so it can be shared between concurrent analyses.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding the given factories.
func NewRegistry(factories map[string]Factory) *Registry {
	return &Registry{factories: maps.Clone(factories)}
}

// Get retrieves an adapter factory by name.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns all registered adapter names (sorted).
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

// IsRegistered checks if an adapter type is registered.
func (r *Registry) IsRegistered(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// New creates a new, unconnected adapter instance based on config type.
// The logger parameter is passed to the adapter constructor (nil uses discard logger).
func (r *Registry) New(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := r.Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: r.Names(),
		}
	}
	return factory(logger), nil
}

// Open creates an adapter for cfg and connects it.
func (r *Registry) Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	a, err := r.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: use a sqlite:///, duckdb:/// or postgresql:// connection URI", e.Type, e.Available)
}
