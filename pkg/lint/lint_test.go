package lint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/pyast"
)

// callVisitor reports every call whose callee is a bare name in names.
type callVisitor struct {
	pass    *lint.Pass
	names   map[string]bool
	assigns *[]string
	err     error
}

func (v *callVisitor) VisitAssign(_ context.Context, stmt *syntax.AssignStmt) error {
	if id, ok := stmt.LHS.(*syntax.Ident); ok && v.assigns != nil {
		*v.assigns = append(*v.assigns, id.Name)
	}
	return nil
}

func (v *callVisitor) VisitCall(_ context.Context, call *syntax.CallExpr) error {
	id, ok := call.Fn.(*syntax.Ident)
	if !ok {
		return nil
	}
	if id.Name == "boom" && v.err != nil {
		return v.err
	}
	if v.names[id.Name] {
		v.pass.Reportf(call, "call to %s", id.Name)
	}
	return nil
}

func callRule(id, name string, names ...string) lint.RuleDef {
	return lint.RuleDef{
		ID:       id,
		Name:     name,
		Group:    "test",
		Severity: lint.SeverityWarning,
		New: func(pass *lint.Pass) (lint.Visitor, error) {
			set := make(map[string]bool)
			for _, n := range names {
				set[n] = true
			}
			return &callVisitor{pass: pass, names: set, err: errors.New("boom")}, nil
		},
	}
}

func newRegistry(t *testing.T, defs ...lint.RuleDef) *lint.Registry {
	t.Helper()
	reg, err := lint.NewRegistry(defs...)
	require.NoError(t, err)
	return reg
}

func TestAnalyzer_AnalyzeSource(t *testing.T) {
	reg := newRegistry(t, callRule("T002", "calls-g", "g"), callRule("T001", "calls-f", "f"))

	src := "a = f(1)\ng(f(2))\n"
	diags, err := lint.NewAnalyzer(reg, nil, nil).AnalyzeSource(context.Background(), "t.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, diags, 3)

	assert.Equal(t, "T001", diags[0].RuleID)
	assert.Equal(t, "calls-f", diags[0].Symbol)
	assert.Equal(t, lint.Position{Line: 1, Column: 5}, diags[0].Pos)
	assert.Equal(t, "t.py", diags[0].File)
	assert.Equal(t, lint.SeverityWarning, diags[0].Severity)
	assert.Equal(t, "https://dslint.dev/docs/rules/t001", diags[0].DocumentationURL)

	assert.Equal(t, "T002", diags[1].RuleID)
	assert.Equal(t, lint.Position{Line: 2, Column: 1}, diags[1].Pos)
	assert.Equal(t, "T001", diags[2].RuleID)
	assert.Equal(t, lint.Position{Line: 2, Column: 3}, diags[2].Pos)
}

func TestAnalyzer_Config(t *testing.T) {
	reg := newRegistry(t, callRule("T001", "calls-f", "f"), callRule("T002", "calls-g", "g"))
	cfg := lint.NewConfig().Disable("T002").SetSeverity("T001", lint.SeverityError)
	analyzer := lint.NewAnalyzer(reg, cfg, nil)

	require.Len(t, analyzer.Rules(), 1)

	diags, err := analyzer.AnalyzeSource(context.Background(), "t.py", []byte("f()\ng()\n"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "T001", diags[0].RuleID)
	assert.Equal(t, lint.SeverityError, diags[0].Severity)
}

func TestAnalyzer_VisitorError(t *testing.T) {
	reg := newRegistry(t, callRule("T001", "calls-f", "f"))
	_, err := lint.NewAnalyzer(reg, nil, nil).AnalyzeSource(context.Background(), "t.py", []byte("f()\nboom()\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t.py")
	assert.Contains(t, err.Error(), "T001")
}

func TestAnalyzer_ConstructorError(t *testing.T) {
	bad := lint.RuleDef{
		ID:   "T009",
		Name: "bad",
		New: func(*lint.Pass) (lint.Visitor, error) {
			return nil, errors.New("invalid options")
		},
	}
	_, err := lint.NewAnalyzer(newRegistry(t, bad), nil, nil).AnalyzeSource(context.Background(), "t.py", []byte("x = 1\n"))
	assert.ErrorContains(t, err, "invalid options")
}

func TestAnalyzer_ParseError(t *testing.T) {
	_, err := lint.NewAnalyzer(newRegistry(t), nil, nil).AnalyzeSource(context.Background(), "t.py", []byte("def (:\n"))
	var perr *pyast.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestUnit_Incremental(t *testing.T) {
	var assigns []string
	rule := lint.RuleDef{
		ID:   "T001",
		Name: "record",
		New: func(pass *lint.Pass) (lint.Visitor, error) {
			return &callVisitor{pass: pass, names: map[string]bool{"f": true}, assigns: &assigns}, nil
		},
	}
	file, err := pyast.Parse("<stdin>", nil)
	require.NoError(t, err)
	unit, err := lint.NewAnalyzer(newRegistry(t, rule), nil, nil).NewUnit(file)
	require.NoError(t, err)

	for i, line := range []string{"a = 1\n", "b = f()\n", "f()\n"} {
		stmts, err := file.Append([]byte(line))
		require.NoError(t, err)
		diags, err := unit.Run(context.Background(), stmts)
		require.NoError(t, err)
		if i == 0 {
			assert.Empty(t, diags)
		} else {
			assert.Len(t, diags, 1, "only the new statement is reported")
		}
	}
	assert.Equal(t, []string{"a", "b"}, assigns)
}

func TestRegistry(t *testing.T) {
	reg := newRegistry(t, callRule("T002", "calls-g", "g"), callRule("T001", "calls-f", "f"))
	assert.Equal(t, 2, reg.Count())

	all := reg.All()
	assert.Equal(t, "T001", all[0].ID)

	rule, ok := reg.ByID("calls-g")
	require.True(t, ok)
	assert.Equal(t, "T002", rule.ID)
	_, ok = reg.ByID("T404")
	assert.False(t, ok)
	assert.Len(t, reg.ByGroup("test"), 2)

	_, err := lint.NewRegistry(callRule("T001", "a"), callRule("T001", "b"))
	assert.ErrorContains(t, err, "duplicate rule id")
	_, err = lint.NewRegistry(callRule("T001", "a"), callRule("T002", "a"))
	assert.ErrorContains(t, err, "duplicate rule name")
	_, err = lint.NewRegistry(lint.RuleDef{ID: "T001"})
	assert.Error(t, err)
}

func TestSeverity(t *testing.T) {
	for _, s := range []lint.Severity{lint.SeverityError, lint.SeverityWarning, lint.SeverityInfo, lint.SeverityHint} {
		parsed, ok := lint.ParseSeverity(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	_, ok := lint.ParseSeverity("fatal")
	assert.False(t, ok)

	var s lint.Severity
	require.NoError(t, s.UnmarshalText([]byte("ERROR")))
	assert.Equal(t, lint.SeverityError, s)
	assert.Error(t, s.UnmarshalText([]byte("loud")))

	assert.True(t, lint.SeverityError.AtLeast(lint.SeverityWarning))
	assert.False(t, lint.SeverityInfo.AtLeast(lint.SeverityWarning))
}

func TestOptions(t *testing.T) {
	var out struct {
		Threshold float64 `mapstructure:"threshold"`
	}
	require.NoError(t, lint.DecodeOptions(map[string]any{"threshold": "12.5"}, &out))
	assert.InDelta(t, 12.5, out.Threshold, 1e-9)
	assert.Error(t, lint.DecodeOptions(map[string]any{"unknown": 1}, &out))

	var names struct {
		Names []string `mapstructure:"names"`
	}
	require.NoError(t, lint.DecodeOptions(map[string]any{"names": []any{"a", "b"}}, &names))
	assert.Equal(t, []string{"a", "b"}, names.Names)
	require.NoError(t, lint.DecodeOptions(nil, &names), "no options keep the defaults")
}
