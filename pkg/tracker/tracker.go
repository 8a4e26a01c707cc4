// Package tracker binds source-level names to the datasets they hold.
//
// A Tracker belongs to one analysis unit. Bindings are created in textual
// order from assignments of the form
//
//	df = pandas.read_csv("data.csv")   // a registered loader call
//	X = df[["x1", "x2"]]               // a column projection of a bound name
//
// and are write-once: rebinding a name is ignored.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dslint/pkg/dataset"
	"github.com/leapstack-labs/dslint/pkg/identity"
	"github.com/leapstack-labs/dslint/pkg/loader"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"go.starlark.net/syntax"
)

// ShapeError is returned when a projection does not have the supported
// name[["col", ...]] shape or names a column the source does not have.
type ShapeError struct {
	Expr   syntax.Expr
	Reason string
}

func (e *ShapeError) Error() string {
	start, _ := e.Expr.Span()
	return fmt.Sprintf("%s: %s: %s", start, pyast.Describe(e.Expr), e.Reason)
}

// TypeError is returned when a dataset reference is not a plain name.
type TypeError struct {
	Expr syntax.Expr
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("dataset reference %s is not a name", pyast.Describe(e.Expr))
}

// IsInvariantViolation reports whether err signals a broken rule definition or
// programming error rather than a per-file condition.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, dataset.ErrUnknownStatistic) || errors.Is(err, dataset.ErrAlreadyNamed)
}

// Binding is a name bound to a dataset and its properties.
type Binding struct {
	Name       string
	Dataset    *dataset.Dataset
	Properties *dataset.Properties
	// Source is the identity of the loader call, or the name of the binding
	// the dataset was projected from.
	Source string
	Pos    syntax.Position
}

// Options configures a Tracker.
type Options struct {
	SampleSize int    // row cap, DefaultSampleSize when zero
	SampleSeed uint64 // sampling seed
	// EagerStats are computed for every new binding. Defaults to ["min"].
	EagerStats []string
	Statistics *dataset.Statistics
	Logger     *slog.Logger
}

// Tracker is the binding table of one analysis unit. It is not safe for
// concurrent use.
type Tracker struct {
	resolver *identity.Resolver
	loaders  *loader.Registry
	opts     Options
	log      *slog.Logger

	bindings map[string]*Binding
	order    []string
}

// New creates a tracker that resolves calls with resolver and materializes
// them with loaders.
func New(resolver *identity.Resolver, loaders *loader.Registry, opts Options) *Tracker {
	if opts.SampleSize == 0 {
		opts.SampleSize = dataset.DefaultSampleSize
	}
	if opts.EagerStats == nil {
		opts.EagerStats = []string{dataset.StatMin}
	}
	if opts.Statistics == nil {
		opts.Statistics = dataset.DefaultStatistics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		resolver: resolver,
		loaders:  loaders,
		opts:     opts,
		log:      logger,
		bindings: make(map[string]*Binding),
	}
}

// BindFromAssignment tries to bind name to the dataset value produces. It
// reports whether a new binding was created. Values that are not datasets, and
// names that are already bound, return false with no error. Errors mean the
// value looked like a dataset but could not be materialized.
func (t *Tracker) BindFromAssignment(ctx context.Context, name *syntax.Ident, value syntax.Expr) (bool, error) {
	if _, ok := t.bindings[name.Name]; ok {
		t.log.Debug("name already bound", slog.String("name", name.Name))
		return false, nil
	}

	var (
		d      *dataset.Dataset
		props  *dataset.Properties
		source string
		err    error
	)
	switch v := pyast.Unparen(value).(type) {
	case *syntax.CallExpr:
		d, source, err = t.fromCall(ctx, v)
	case *syntax.IndexExpr:
		d, props, source, err = t.fromProjection(v)
	default:
		return false, nil
	}
	if err != nil || d == nil {
		return false, err
	}

	d = d.Sample(t.opts.SampleSize, t.opts.SampleSeed)
	if props == nil || props.Dataset() != d {
		// Statistics describe the sampled rows.
		props = dataset.NewProperties(d, t.opts.Statistics)
	}
	if err := props.SetName(name.Name); err != nil {
		return false, err
	}
	for _, stat := range t.opts.EagerStats {
		if _, err := props.Get(stat); err != nil {
			return false, err
		}
	}

	t.bindings[name.Name] = &Binding{
		Name:       name.Name,
		Dataset:    d,
		Properties: props,
		Source:     source,
		Pos:        name.NamePos,
	}
	t.order = append(t.order, name.Name)
	t.log.Debug("bound dataset",
		slog.String("name", name.Name),
		slog.String("source", source),
		slog.Int("rows", d.NumRows()),
		slog.Any("columns", d.Columns()))
	return true, nil
}

func (t *Tracker) fromCall(ctx context.Context, call *syntax.CallExpr) (*dataset.Dataset, string, error) {
	id, err := t.resolver.Resolve(call)
	if err != nil {
		return nil, "", err
	}
	d, ok, err := t.loaders.Load(ctx, id, call)
	if !ok {
		t.log.Debug("unsupported function id", slog.String("identity", id))
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return d, id, nil
}

func (t *Tracker) fromProjection(ix *syntax.IndexExpr) (*dataset.Dataset, *dataset.Properties, string, error) {
	src, ok := pyast.Unparen(ix.X).(*syntax.Ident)
	if !ok {
		return nil, nil, "", nil
	}
	parent, ok := t.bindings[src.Name]
	if !ok {
		return nil, nil, "", nil
	}

	if _, ok := pyast.Unparen(ix.Y).(*syntax.ListExpr); !ok {
		// df["x1"] narrows to a series and df[0:10] indexes rows.
		return nil, nil, "", nil
	}
	columns, err := pyast.StringList(ix.Y)
	if err != nil {
		return nil, nil, "", &ShapeError{Expr: ix, Reason: "column selector must be a list of string literals"}
	}

	d, err := parent.Dataset.Project(columns)
	if err != nil {
		return nil, nil, "", &ShapeError{Expr: ix, Reason: err.Error()}
	}
	props := dataset.NewProperties(d, t.opts.Statistics)
	if err := props.InheritFrom(columns, parent.Properties); err != nil {
		return nil, nil, "", &ShapeError{Expr: ix, Reason: err.Error()}
	}
	return d, props, src.Name, nil
}

// Resolver returns the identity resolver of the analysis unit.
func (t *Tracker) Resolver() *identity.Resolver { return t.resolver }

// Binding returns the binding for name.
func (t *Tracker) Binding(name string) (*Binding, bool) {
	b, ok := t.bindings[name]
	return b, ok
}

// Bindings returns all bindings in creation order.
func (t *Tracker) Bindings() []*Binding {
	out := make([]*Binding, len(t.order))
	for i, name := range t.order {
		out[i] = t.bindings[name]
	}
	return out
}

// Properties returns the properties bound to name.
func (t *Tracker) Properties(name string) (*dataset.Properties, bool) {
	b, ok := t.bindings[name]
	if !ok {
		return nil, false
	}
	return b.Properties, true
}

// PropertiesOf resolves a name reference to its properties. It fails with a
// *TypeError for anything but a plain name.
func (t *Tracker) PropertiesOf(ref syntax.Expr) (*dataset.Properties, bool, error) {
	id, ok := pyast.Unparen(ref).(*syntax.Ident)
	if !ok {
		return nil, false, &TypeError{Expr: ref}
	}
	p, ok := t.Properties(id.Name)
	return p, ok, nil
}
