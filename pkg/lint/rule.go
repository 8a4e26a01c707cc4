package lint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dslint/pkg/pyast"
	"go.starlark.net/syntax"
)

// RuleDef is a data-driven rule definition.
// The rule itself is stateless; per-file state lives in the Visitor that New
// returns for each file.
type RuleDef struct {
	ID          string   // Unique identifier, e.g., "W5200"
	Name        string   // Symbolic name, e.g., "data-api-conflict"
	Group       string   // Category, e.g., "data", "reproducibility"
	Description string   // Human-readable description
	Severity    Severity // Default severity
	ConfigKeys  []string // Configuration keys this rule accepts (for rule-specific options)

	// New creates the rule's visitor for one file. An error aborts the file.
	New func(pass *Pass) (Visitor, error)

	// Documentation fields for richer rule documentation
	Rationale   string // Why this rule exists, what problems it prevents
	BadExample  string // Code showing the anti-pattern
	GoodExample string // Code showing the correct pattern
	Fix         string // How to fix violations (when not obvious)
}

// Visitor receives the nodes of one file in lexical order. An assignment is
// visited before the calls on its right-hand side. A returned error aborts the
// analysis of the file.
type Visitor interface {
	VisitAssign(ctx context.Context, stmt *syntax.AssignStmt) error
	VisitCall(ctx context.Context, call *syntax.CallExpr) error
}

// Pass is the context a rule's visitor runs in for one file.
type Pass struct {
	Rule    RuleDef
	File    *pyast.File
	Options map[string]any
	Logger  *slog.Logger

	severity Severity
	report   func(Diagnostic)
}

// Report records a diagnostic. Rule metadata the diagnostic leaves empty is
// filled in from the pass.
func (p *Pass) Report(d Diagnostic) {
	if d.RuleID == "" {
		d.RuleID = p.Rule.ID
	}
	if d.Symbol == "" {
		d.Symbol = p.Rule.Name
	}
	if d.File == "" {
		d.File = p.File.Path
	}
	if d.DocumentationURL == "" {
		d.DocumentationURL = BuildDocURL(p.Rule.ID)
	}
	d.Severity = p.severity
	p.report(d)
}

// Reportf records a diagnostic spanning node.
func (p *Pass) Reportf(node syntax.Node, format string, args ...any) {
	start, end := node.Span()
	p.Report(Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Pos:     PositionOf(start),
		EndPos:  PositionOf(end),
	})
}

// RuleInfo provides metadata about a rule for documentation/tooling.
type RuleInfo struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Group           string   `json:"group" yaml:"group"`
	Description     string   `json:"description" yaml:"description"`
	DefaultSeverity Severity `json:"default_severity" yaml:"default_severity"`
	ConfigKeys      []string `json:"config_keys,omitempty" yaml:"config_keys,omitempty"`
	Rationale       string   `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	BadExample      string   `json:"bad_example,omitempty" yaml:"bad_example,omitempty"`
	GoodExample     string   `json:"good_example,omitempty" yaml:"good_example,omitempty"`
	Fix             string   `json:"fix,omitempty" yaml:"fix,omitempty"`
}

// Info extracts metadata for documentation/tooling.
func (r RuleDef) Info() RuleInfo {
	return RuleInfo{
		ID:              r.ID,
		Name:            r.Name,
		Group:           r.Group,
		Description:     r.Description,
		DefaultSeverity: r.Severity,
		ConfigKeys:      r.ConfigKeys,
		Rationale:       r.Rationale,
		BadExample:      r.BadExample,
		GoodExample:     r.GoodExample,
		Fix:             r.Fix,
	}
}
