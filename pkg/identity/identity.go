// Package identity resolves call expressions to canonical dotted names.
//
// The identity of svc.fit(X, y) where svc = sklearn.svm.SVC() is
// "sklearn.svm.SVC.fit": the root name of an attribute chain is substituted by
// the identity of the call it was first assigned from, or by the path it was
// imported from.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/pyast"
	"go.starlark.net/syntax"
)

// DefaultMaxDepth bounds alias substitution.
const DefaultMaxDepth = 32

// ErrAliasCycle is returned when alias substitution revisits a call or exceeds
// the depth bound.
var ErrAliasCycle = errors.New("alias cycle")

// ShapeError is returned when a call target is neither a name nor an attribute
// chain ending in one, e.g. f()() or handlers[0]().
type ShapeError struct {
	Call *syntax.CallExpr
}

func (e *ShapeError) Error() string {
	start, _ := e.Call.Span()
	return fmt.Sprintf("%s: cannot resolve call target %s", start, pyast.Describe(e.Call.Fn))
}

// Options configures a Resolver.
type Options struct {
	MaxDepth int
	// DisableImports turns off import alias substitution, leaving only local
	// assignment aliases.
	DisableImports bool
	Logger         *slog.Logger
}

// Stats counts resolver work.
type Stats struct {
	Resolved  int // identities computed
	CacheHits int // lookups served from the memo
}

// Resolver memoizes call identities for one parsed file.
// It is not safe for concurrent use.
type Resolver struct {
	file *pyast.File
	opts Options
	log  *slog.Logger

	memo  map[*syntax.CallExpr]string
	stats Stats
}

// New creates a resolver for file.
func New(file *pyast.File, opts Options) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		file: file,
		opts: opts,
		log:  logger,
		memo: make(map[*syntax.CallExpr]string),
	}
}

// Resolve returns the canonical dotted identity of call.
func (r *Resolver) Resolve(call *syntax.CallExpr) (string, error) {
	return r.resolve(call, nil)
}

// Stats returns the counters accumulated so far.
func (r *Resolver) Stats() Stats {
	return r.stats
}

func (r *Resolver) resolve(call *syntax.CallExpr, visiting []*syntax.CallExpr) (string, error) {
	if id, ok := r.memo[call]; ok {
		r.stats.CacheHits++
		return id, nil
	}
	if slices.Contains(visiting, call) || len(visiting) >= r.opts.MaxDepth {
		return "", fmt.Errorf("%w at %s", ErrAliasCycle, pyast.Describe(call))
	}
	visiting = append(visiting, call)

	parts, err := chain(call)
	if err != nil {
		return "", err
	}

	root := parts[0]
	if b, _, ok := r.file.EnclosingScope(call).Lookup(root); ok {
		if inner, ok := b.Value.(*syntax.CallExpr); ok {
			rootID, err := r.resolve(inner, visiting)
			if err != nil {
				return "", err
			}
			parts[0] = rootID
		}
	} else if !r.opts.DisableImports {
		if imp, ok := r.file.Import(root); ok {
			parts[0] = imp.Path
		}
	}

	id := strings.Join(parts, ".")
	r.memo[call] = id
	r.stats.Resolved++
	r.log.Debug("resolved call identity", slog.String("call", pyast.Describe(call)), slog.String("identity", id))
	return id, nil
}

// chain returns the attribute chain of the call target, root name first.
func chain(call *syntax.CallExpr) ([]string, error) {
	var parts []string
	cur := pyast.Unparen(call.Fn)
	for {
		dot, ok := cur.(*syntax.DotExpr)
		if !ok {
			break
		}
		parts = append(parts, dot.Name.Name)
		cur = pyast.Unparen(dot.X)
	}
	id, ok := cur.(*syntax.Ident)
	if !ok {
		return nil, &ShapeError{Call: call}
	}
	parts = append(parts, id.Name)
	slices.Reverse(parts)
	return parts, nil
}
