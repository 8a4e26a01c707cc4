package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/contract"
	"github.com/leapstack-labs/dslint/pkg/dataset"
	"github.com/leapstack-labs/dslint/pkg/identity"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/loader"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"github.com/leapstack-labs/dslint/pkg/tracker"
	"go.starlark.net/syntax"
)

// Env is what the data rules need beyond the source file. It is shared
// read-only between files.
type Env struct {
	Loaders    *loader.Registry
	Contracts  []contract.Rule
	Statistics *dataset.Statistics
	SampleSize int
	SampleSeed uint64
	// MaxAliasDepth bounds alias substitution. Zero means the resolver default.
	MaxAliasDepth int
}

// DataAPIConflictOptions are the rule's configuration keys.
type DataAPIConflictOptions struct {
	ScaleThreshold float64 `mapstructure:"scale_threshold"`
}

// DataAPIConflict returns the W5200 rule wired to env.
func DataAPIConflict(env Env) lint.RuleDef {
	return lint.RuleDef{
		ID:          "W5200",
		Name:        "data-api-conflict",
		Group:       "data",
		Description: "Dataset API conflict: the data passed to a call violates the call's preconditions.",
		Severity:    lint.SeverityWarning,
		ConfigKeys:  []string{"scale_threshold"},
		New: func(pass *lint.Pass) (lint.Visitor, error) {
			return newDataAPIConflict(env, pass)
		},

		Rationale: `Some estimators assume their input features share a range and scale.
Margin-based models such as support vector machines weigh features by
magnitude, so an unscaled column dominates the fit and silently degrades the
model. dslint reads the data a script loads, follows it through column
selections, and checks it against the preconditions of the APIs it reaches.`,

		BadExample: `df = pd.read_csv("data.csv")   # x1 in [0, 1000], x2 in [0, 1]
X = df[["x1", "x2"]]
clf = SVC()
clf.fit(X, y)`,

		GoodExample: `df = pd.read_csv("data.csv")
X = MinMaxScaler().fit_transform(df[["x1", "x2"]])
clf = SVC()
clf.fit(X, y)`,

		Fix: "Scale or normalize the features before fitting, e.g. with StandardScaler or MinMaxScaler.",
	}
}

// BindingLister is implemented by visitors that track datasets.
type BindingLister interface {
	Bindings() []*tracker.Binding
}

type dataAPIConflict struct {
	pass      *lint.Pass
	tracker   *tracker.Tracker
	contracts *contract.Registry
}

func newDataAPIConflict(env Env, pass *lint.Pass) (*dataAPIConflict, error) {
	opts := DataAPIConflictOptions{ScaleThreshold: contract.DefaultScaleThreshold}
	if err := lint.DecodeOptions(pass.Options, &opts); err != nil {
		return nil, err
	}
	if opts.ScaleThreshold <= 0 {
		return nil, fmt.Errorf("scale_threshold must be positive, got %v", opts.ScaleThreshold)
	}

	rules := env.Contracts
	if rules == nil {
		rules = contract.DefaultRules()
	}
	contracts, err := contract.NewRegistry(rules,
		contract.WithParams(contract.Params{ScaleThreshold: opts.ScaleThreshold}),
		contract.WithLogger(pass.Logger))
	if err != nil {
		return nil, err
	}

	loaders := env.Loaders
	if loaders == nil {
		loaders = loader.NewRegistry(nil, nil)
	}
	resolver := identity.New(pass.File, identity.Options{
		MaxDepth: env.MaxAliasDepth,
		Logger:   pass.Logger,
	})
	return &dataAPIConflict{
		pass: pass,
		tracker: tracker.New(resolver, loaders, tracker.Options{
			SampleSize: env.SampleSize,
			SampleSeed: env.SampleSeed,
			Statistics: env.Statistics,
			Logger:     pass.Logger,
		}),
		contracts: contracts,
	}, nil
}

func (v *dataAPIConflict) VisitAssign(ctx context.Context, stmt *syntax.AssignStmt) error {
	name, ok := stmt.LHS.(*syntax.Ident)
	if !ok || stmt.Op != syntax.EQ {
		return nil
	}
	_, err := v.tracker.BindFromAssignment(ctx, name, stmt.RHS)
	return v.handle(err, "binding skipped", slog.String("name", name.Name))
}

func (v *dataAPIConflict) VisitCall(ctx context.Context, call *syntax.CallExpr) error {
	ok, violations, err := v.contracts.Check(ctx, call, v.tracker)
	if err != nil {
		return v.handle(err, "contract not evaluated", slog.String("call", pyast.Describe(call)))
	}
	if ok {
		return nil
	}
	v.pass.Reportf(call, "Dataset API conflict: %s", describe(violations))
	return nil
}

func (v *dataAPIConflict) Bindings() []*tracker.Binding {
	return v.tracker.Bindings()
}

// handle turns a per-construct error into a log line. Only invariant
// violations abort the file.
func (v *dataAPIConflict) handle(err error, msg string, attrs ...any) error {
	switch {
	case err == nil:
		return nil
	case tracker.IsInvariantViolation(err):
		return err
	case isShapeMismatch(err):
		v.pass.Logger.Debug(msg, append(attrs, slog.Any("error", err))...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		v.pass.Logger.Warn(msg, append(attrs, slog.Any("error", err))...)
	}
	return nil
}

func isShapeMismatch(err error) bool {
	var (
		identityErr *identity.ShapeError
		trackerErr  *tracker.ShapeError
		typeErr     *tracker.TypeError
		contractErr *contract.ShapeError
		argErr      *loader.ArgError
		literalErr  *pyast.LiteralError
	)
	return errors.Is(err, identity.ErrAliasCycle) ||
		errors.As(err, &identityErr) ||
		errors.As(err, &trackerErr) ||
		errors.As(err, &typeErr) ||
		errors.As(err, &contractErr) ||
		errors.As(err, &argErr) ||
		errors.As(err, &literalErr)
}

// describe renders violations as
// "X=df fails range_is_equal, scale_is_equal of sklearn.svm.SVC.fit".
func describe(violations []contract.Violation) string {
	if len(violations) == 0 {
		return "precondition failed"
	}
	var parts []string
	for i := 0; i < len(violations); {
		v := violations[i]
		checks := []string{v.Precondition}
		j := i + 1
		for ; j < len(violations) && violations[j].Argument == v.Argument; j++ {
			checks = append(checks, violations[j].Precondition)
		}
		parts = append(parts, fmt.Sprintf("%s=%s fails %s", v.Argument, v.Dataset, strings.Join(checks, ", ")))
		i = j
	}
	return fmt.Sprintf("%s of %s", strings.Join(parts, "; "), violations[0].Identity)
}
