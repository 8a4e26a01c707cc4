package contract

import (
	"context"
	"math"
	"testing"

	"github.com/leapstack-labs/dslint/internal/testutil"
	"github.com/leapstack-labs/dslint/pkg/dataset"
	"github.com/leapstack-labs/dslint/pkg/identity"
	"github.com/leapstack-labs/dslint/pkg/loader"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"github.com/leapstack-labs/dslint/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/syntax"
)

func props(t *testing.T, cols map[string][]float64, order ...string) *dataset.Properties {
	t.Helper()
	var columns []dataset.Column
	for _, name := range order {
		columns = append(columns, dataset.Column{Name: name, Values: cols[name], Numeric: true})
	}
	d, err := dataset.New(columns...)
	require.NoError(t, err)
	return dataset.NewProperties(d, nil)
}

func TestRangeIsEqual(t *testing.T) {
	check, ok := Lookup(RangeIsEqual)
	require.True(t, ok)

	tests := []struct {
		name string
		cols map[string][]float64
		want bool
	}{
		{"different ranges", map[string][]float64{"a": {1, 2, 3}, "b": {100, 200, 300}}, false},
		{"identical ranges", map[string][]float64{"a": {0, 1, 2}, "b": {0, 1, 2}}, true},
		{"same min different max", map[string][]float64{"a": {0, 1, 2}, "b": {0, 5, 9}}, false},
		{"same range different values", map[string][]float64{"a": {0, 1, 2}, "b": {2, 2, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := check(props(t, tt.cols, "a", "b"), DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := check(props(t, nil), DefaultParams())
	require.NoError(t, err)
	assert.True(t, got, "no columns")
}

func TestScaleIsEqual(t *testing.T) {
	check, ok := Lookup(ScaleIsEqual)
	require.True(t, ok)

	tests := []struct {
		name   string
		cols   map[string][]float64
		params Params
		want   bool
	}{
		// L2 norms 1 and 50.
		{"ratio 50", map[string][]float64{"a": {0.6, 0.8}, "b": {30, 40}}, DefaultParams(), false},
		// L2 norms 5 and 6.
		{"ratio 1.2", map[string][]float64{"a": {3, 4}, "b": {0, 6}}, DefaultParams(), true},
		{"ratio at threshold", map[string][]float64{"a": {3, 4}, "b": {30, 40}}, DefaultParams(), false},
		{"custom threshold", map[string][]float64{"a": {0.6, 0.8}, "b": {30, 40}}, Params{ScaleThreshold: 100}, true},
		{"zero norm", map[string][]float64{"a": {0, 0}, "b": {3, 4}}, DefaultParams(), false},
		{"missing values skipped", map[string][]float64{"a": {3, math.NaN(), 4}, "b": {3, 4, math.NaN()}}, DefaultParams(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := check(props(t, tt.cols, "a", "b"), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreconditions_UnknownStatistic(t *testing.T) {
	d, err := dataset.New(dataset.Column{Name: "a", Values: []float64{1}, Numeric: true})
	require.NoError(t, err)
	p := dataset.NewProperties(d, dataset.DefaultStatistics(dataset.WithoutStatistic(dataset.StatL2Norms)))

	check, _ := Lookup(ScaleIsEqual)
	_, err = check(p, DefaultParams())
	assert.ErrorIs(t, err, dataset.ErrUnknownStatistic)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{RangeIsEqual, ScaleIsEqual}, Names())
	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(DefaultRules())
	require.NoError(t, err)
	assert.True(t, reg.Has("sklearn.svm.SVC.fit"))
	assert.True(t, reg.Has("sklearn.svm.NuSVR.fit"))
	assert.False(t, reg.Has("sklearn.linear_model.LogisticRegression.fit"))
	assert.Len(t, reg.Rules(), 6)

	_, err = NewRegistry([]Rule{{Identity: "m.fit", Params: []string{"X"}, Datasets: []string{"X"}, Preconditions: []string{"bogus"}}})
	assert.ErrorContains(t, err, "unknown precondition")

	_, err = NewRegistry([]Rule{{Identity: "m.fit", Params: []string{"X"}, Datasets: []string{"Z"}}})
	assert.ErrorContains(t, err, "not a parameter")

	_, err = NewRegistry([]Rule{{Params: []string{"X"}}})
	assert.Error(t, err)
}

// unit is one analysis unit over src with "fixtures.load" yielding table.
type unit struct {
	file    *pyast.File
	tracker *tracker.Tracker
	calls   []*syntax.CallExpr
}

func newUnit(t *testing.T, src string, table *dataset.Dataset) *unit {
	t.Helper()
	f, err := pyast.Parse("model.py", []byte(src))
	require.NoError(t, err)

	loaders := loader.NewRegistry(nil, map[string]loader.Func{"fixtures.load": loader.Static(table)})
	u := &unit{
		file: f,
		tracker: tracker.New(identity.New(f, identity.Options{}), loaders, tracker.Options{
			Logger: testutil.NewTestLogger(t),
		}),
	}
	ctx := context.Background()
	err = f.Walk(func(n syntax.Node, _ *pyast.Scope) error {
		switch n := n.(type) {
		case *syntax.AssignStmt:
			if id, ok := n.LHS.(*syntax.Ident); ok && n.Op == syntax.EQ {
				_, err := u.tracker.BindFromAssignment(ctx, id, n.RHS)
				return err
			}
		case *syntax.CallExpr:
			u.calls = append(u.calls, n)
		}
		return nil
	})
	require.NoError(t, err)
	return u
}

// last returns the final call in the unit.
func (u *unit) last() *syntax.CallExpr { return u.calls[len(u.calls)-1] }

func xTable(t *testing.T, x1, x2 []float64) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		dataset.Column{Name: "x1", Values: x1, Numeric: true},
		dataset.Column{Name: "x2", Values: x2, Numeric: true},
		dataset.Column{Name: "y", Values: []float64{0, 1, 0}, Numeric: true},
	)
	require.NoError(t, err)
	return d
}

func TestEvaluate(t *testing.T) {
	reg, err := NewRegistry(DefaultRules(), WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	skewed := []float64{0, 10, 20}
	even := []float64{0, 1, 2}

	tests := []struct {
		name string
		src  string
		x1   []float64
		want bool
	}{
		{
			name: "different ranges violate",
			src: `
import fixtures
from sklearn.svm import SVC
df = fixtures.load('data.csv')
X = df[["x1", "x2"]]
y = df[["y"]]
clf = SVC()
clf.fit(X, y)
`,
			x1:   skewed,
			want: false,
		},
		{
			name: "identical ranges hold",
			src: `
import fixtures
from sklearn.svm import SVC
df = fixtures.load('data.csv')
X = df[["x1", "x2"]]
clf = SVC()
clf.fit(X, df)
`,
			x1:   even,
			want: true,
		},
		{
			name: "keyword argument",
			src: `
import fixtures
import sklearn.svm as svm
df = fixtures.load('data.csv')
X = df[["x1", "x2"]]
clf = svm.LinearSVR(C=1.0)
clf.fit(y=None, X=X)
`,
			x1:   skewed,
			want: false,
		},
		{
			name: "unresolved lineage is inapplicable",
			src: `
import fixtures
import other
from sklearn.svm import SVC
X = other.load('data.csv')
clf = SVC()
clf.fit(X, y)
`,
			x1:   skewed,
			want: true,
		},
		{
			name: "argument that is not a name is inapplicable",
			src: `
import fixtures
from sklearn.svm import SVC
df = fixtures.load('data.csv')
clf = SVC()
clf.fit(df[["x1", "x2"]], None)
`,
			x1:   skewed,
			want: true,
		},
		{
			name: "missing dataset argument is inapplicable",
			src: `
from sklearn.svm import SVC
clf = SVC()
clf.fit()
`,
			x1:   skewed,
			want: true,
		},
		{
			name: "unregistered identity",
			src: `
import fixtures
from sklearn.linear_model import LogisticRegression
df = fixtures.load('data.csv')
X = df[["x1", "x2"]]
clf = LogisticRegression()
clf.fit(X, None)
`,
			x1:   skewed,
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUnit(t, tt.src, xTable(t, tt.x1, even))
			got, err := reg.Evaluate(context.Background(), u.last(), u.tracker)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_Violations(t *testing.T) {
	reg, err := NewRegistry(DefaultRules())
	require.NoError(t, err)

	src := `
import fixtures
from sklearn.svm import SVC
df = fixtures.load('data.csv')
X = df[["x1", "x2"]]
clf = SVC()
clf.fit(X, None)
`
	u := newUnit(t, src, xTable(t, []float64{0, 100, 200}, []float64{0, 1, 2}))
	ok, violations, err := reg.Check(context.Background(), u.last(), u.tracker)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []Violation{
		{Identity: "sklearn.svm.SVC.fit", Argument: "X", Dataset: "X", Precondition: RangeIsEqual},
		{Identity: "sklearn.svm.SVC.fit", Argument: "X", Dataset: "X", Precondition: ScaleIsEqual},
	}, violations)
}

func TestEvaluate_ShapeErrors(t *testing.T) {
	reg, err := NewRegistry(DefaultRules())
	require.NoError(t, err)

	tests := []string{
		"from sklearn.svm import SVC\nclf = SVC()\nclf.fit(X, X=X)\n",
		"from sklearn.svm import SVC\nclf = SVC()\nclf.fit(X=a, X=b)\n",
		"from sklearn.svm import SVC\nclf = SVC()\nclf.fit(*args)\n",
		"from sklearn.svm import SVC\nclf = SVC()\nclf.fit(X, **kw)\n",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			u := newUnit(t, src, xTable(t, []float64{0, 1, 2}, []float64{0, 1, 2}))
			_, err := reg.Evaluate(context.Background(), u.last(), u.tracker)
			var serr *ShapeError
			assert.ErrorAs(t, err, &serr)
		})
	}
}

func TestEvaluate_UnknownStatistic(t *testing.T) {
	reg, err := NewRegistry(DefaultRules())
	require.NoError(t, err)

	src := `
import fixtures
from sklearn.svm import SVC
df = fixtures.load('data.csv')
clf = SVC()
clf.fit(df)
`
	f, err := pyast.Parse("model.py", []byte(src))
	require.NoError(t, err)
	table := xTable(t, []float64{0, 1, 2}, []float64{0, 1, 2})
	loaders := loader.NewRegistry(nil, map[string]loader.Func{"fixtures.load": loader.Static(table)})
	// Without max, range_is_equal cannot be evaluated.
	stats := dataset.DefaultStatistics(dataset.WithoutStatistic(dataset.StatMax))
	tr := tracker.New(identity.New(f, identity.Options{}), loaders, tracker.Options{Statistics: stats})

	var calls []*syntax.CallExpr
	err = f.Walk(func(n syntax.Node, _ *pyast.Scope) error {
		switch n := n.(type) {
		case *syntax.AssignStmt:
			_, err := tr.BindFromAssignment(context.Background(), n.LHS.(*syntax.Ident), n.RHS)
			return err
		case *syntax.CallExpr:
			calls = append(calls, n)
		}
		return nil
	})
	require.NoError(t, err)

	_, err = reg.Evaluate(context.Background(), calls[len(calls)-1], tr)
	assert.ErrorIs(t, err, dataset.ErrUnknownStatistic)
	assert.True(t, tracker.IsInvariantViolation(err))
}
