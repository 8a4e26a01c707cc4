// Package contract holds the preconditions that modeling calls place on the
// datasets they consume, keyed by call identity.
package contract

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/leapstack-labs/dslint/pkg/pyast"
	"github.com/leapstack-labs/dslint/pkg/tracker"
	"go.starlark.net/syntax"
)

// Rule is the contract of one call identity.
type Rule struct {
	Identity string
	// Params are the call's parameter names in positional order.
	Params []string
	// Datasets name the parameters whose arguments the preconditions check.
	Datasets []string
	// Preconditions are precondition names from the library, evaluated in order.
	Preconditions []string
}

// ShapeError is returned when a call's arguments cannot be matched to the
// rule's parameters.
type ShapeError struct {
	Identity string
	Reason   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Identity, e.Reason)
}

// Violation describes a failed check, for diagnostics.
type Violation struct {
	Identity     string
	Argument     string // parameter name
	Dataset      string // bound name of the dataset
	Precondition string
}

type compiledRule struct {
	Rule
	checks []Precondition
}

// Registry maps call identities to rules. It is immutable once built.
type Registry struct {
	rules  map[string]compiledRule
	params Params
	log    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithParams sets precondition tuning.
func WithParams(p Params) Option {
	return func(r *Registry) { r.params = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry builds a registry. Later rules for the same identity replace
// earlier ones.
func NewRegistry(rules []Rule, opts ...Option) (*Registry, error) {
	r := &Registry{
		rules:  make(map[string]compiledRule, len(rules)),
		params: DefaultParams(),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, rule := range rules {
		if rule.Identity == "" {
			return nil, fmt.Errorf("contract without identity")
		}
		cr := compiledRule{Rule: rule}
		for _, ds := range rule.Datasets {
			if !slices.Contains(rule.Params, ds) {
				return nil, fmt.Errorf("contract %s: dataset %q is not a parameter", rule.Identity, ds)
			}
		}
		for _, name := range rule.Preconditions {
			p, ok := Lookup(name)
			if !ok {
				return nil, fmt.Errorf("contract %s: unknown precondition %q", rule.Identity, name)
			}
			cr.checks = append(cr.checks, p)
		}
		r.rules[rule.Identity] = cr
	}
	return r, nil
}

// Has reports whether identity has a contract.
func (r *Registry) Has(identity string) bool {
	_, ok := r.rules[identity]
	return ok
}

// Rules returns the registered rules sorted by identity.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(r.rules))
	for _, id := range slices.Sorted(maps.Keys(r.rules)) {
		out = append(out, r.rules[id].Rule)
	}
	return out
}

// Evaluate checks call against its contract. It returns true when the contract
// holds or does not apply: the identity is unregistered, or a designated
// argument is missing or has no known lineage.
func (r *Registry) Evaluate(ctx context.Context, call *syntax.CallExpr, t *tracker.Tracker) (bool, error) {
	ok, _, err := r.Check(ctx, call, t)
	return ok, err
}

// Check is Evaluate that also reports which preconditions failed.
// All preconditions are evaluated.
func (r *Registry) Check(_ context.Context, call *syntax.CallExpr, t *tracker.Tracker) (bool, []Violation, error) {
	id, err := t.Resolver().Resolve(call)
	if err != nil {
		return true, nil, err
	}
	rule, ok := r.rules[id]
	if !ok {
		r.log.Debug("unsupported function id", slog.String("identity", id))
		return true, nil, nil
	}

	args, err := bindArgs(rule.Rule, call)
	if err != nil {
		return true, nil, err
	}

	var violations []Violation
	for _, param := range rule.Datasets {
		arg, ok := args[param]
		if !ok {
			continue
		}
		props, ok, err := t.PropertiesOf(arg)
		if err != nil || !ok {
			r.log.Debug("no lineage for contract argument",
				slog.String("identity", id),
				slog.String("param", param),
				slog.String("arg", pyast.Describe(arg)))
			continue
		}
		for i, check := range rule.checks {
			holds, err := check(props, r.params)
			if err != nil {
				return false, nil, fmt.Errorf("%s: %w", id, err)
			}
			if !holds {
				violations = append(violations, Violation{
					Identity:     id,
					Argument:     param,
					Dataset:      props.Name(),
					Precondition: rule.Preconditions[i],
				})
			}
		}
	}
	return len(violations) == 0, violations, nil
}

// bindArgs maps call arguments to rule parameters: keywords first, then
// positionals in parameter order.
func bindArgs(rule Rule, call *syntax.CallExpr) (map[string]syntax.Expr, error) {
	split := pyast.SplitArgs(call)
	if split.Star != nil || split.StarStar != nil {
		return nil, &ShapeError{Identity: rule.Identity, Reason: "star arguments are not supported"}
	}

	bound := make(map[string]syntax.Expr, len(call.Args))
	for _, kw := range split.Keywords {
		if _, dup := bound[kw.Name]; dup {
			return nil, &ShapeError{Identity: rule.Identity, Reason: fmt.Sprintf("keyword %q given twice", kw.Name)}
		}
		bound[kw.Name] = kw.Value
	}
	for i, arg := range split.Positional {
		if i >= len(rule.Params) {
			break
		}
		name := rule.Params[i]
		if _, dup := bound[name]; dup {
			return nil, &ShapeError{Identity: rule.Identity, Reason: fmt.Sprintf("argument %q given both positionally and by keyword", name)}
		}
		bound[name] = arg
	}
	return bound, nil
}
