package lint

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/dslint/pkg/pyast"
	"go.starlark.net/syntax"
)

// Analyzer runs the enabled rules of a registry against files.
// It is safe for concurrent use; every file gets its own visitors.
type Analyzer struct {
	registry *Registry
	config   *Config
	logger   *slog.Logger
}

// NewAnalyzer creates a new analyzer with optional configuration.
func NewAnalyzer(registry *Registry, config *Config, logger *slog.Logger) *Analyzer {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{registry: registry, config: config, logger: logger}
}

// Rules returns the rules that are enabled under the analyzer's config.
func (a *Analyzer) Rules() []RuleDef {
	var rules []RuleDef
	for _, rule := range a.registry.All() {
		if !a.config.IsDisabled(rule.ID) {
			rules = append(rules, rule)
		}
	}
	return rules
}

// AnalyzeFile runs every enabled rule over file and returns the diagnostics
// sorted by position.
func (a *Analyzer) AnalyzeFile(ctx context.Context, file *pyast.File) ([]Diagnostic, error) {
	unit, err := a.NewUnit(file)
	if err != nil {
		return nil, err
	}
	return unit.Run(ctx, file.Stmts)
}

// AnalyzeSource parses src and analyzes it.
func (a *Analyzer) AnalyzeSource(ctx context.Context, filename string, src []byte) ([]Diagnostic, error) {
	file, err := pyast.Parse(filename, src)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeFile(ctx, file)
}

// Unit is one analysis unit: a file and the visitors of every enabled rule.
// Statements can be fed to it incrementally, which is how the interactive
// session works. A Unit is not safe for concurrent use.
type Unit struct {
	File     *pyast.File
	passes   []*Pass
	visitors []Visitor
	pending  []Diagnostic
}

// NewUnit creates the visitors for file.
func (a *Analyzer) NewUnit(file *pyast.File) (*Unit, error) {
	u := &Unit{File: file}
	for _, s := range file.Skipped {
		a.logger.Debug("statement not analyzed",
			slog.String("file", file.Path), slog.Int("line", s.Line), slog.String("reason", s.Message))
	}
	for _, rule := range a.Rules() {
		pass := &Pass{
			Rule:     rule,
			File:     file,
			Options:  a.config.GetRuleOptions(rule.ID),
			Logger:   a.logger.With(slog.String("rule", rule.ID), slog.String("file", file.Path)),
			severity: a.config.GetSeverity(rule.ID, rule.Severity),
			report:   func(d Diagnostic) { u.pending = append(u.pending, d) },
		}
		v, err := rule.New(pass)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rule.ID, err)
		}
		u.passes = append(u.passes, pass)
		u.visitors = append(u.visitors, v)
	}
	return u, nil
}

// Visitors returns the visitors of the unit in rule ID order.
func (u *Unit) Visitors() []Visitor {
	return u.visitors
}

// Run walks stmts, which must belong to the unit's file, and returns the
// diagnostics they produced sorted by position.
func (u *Unit) Run(ctx context.Context, stmts []syntax.Stmt) ([]Diagnostic, error) {
	u.pending = nil
	err := u.File.WalkStmts(stmts, func(n syntax.Node, _ *pyast.Scope) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, v := range u.visitors {
			var err error
			switch n := n.(type) {
			case *syntax.AssignStmt:
				err = v.VisitAssign(ctx, n)
			case *syntax.CallExpr:
				err = v.VisitCall(ctx, n)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", u.passes[i].Rule.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u.File.Path, err)
	}

	diags := u.pending
	u.pending = nil
	SortDiagnostics(diags)
	return diags, nil
}

// SortDiagnostics orders diagnostics by file, position and rule ID.
func SortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Pos.Line, b.Pos.Line),
			cmp.Compare(a.Pos.Column, b.Pos.Column),
			cmp.Compare(a.RuleID, b.RuleID),
		)
	})
}
