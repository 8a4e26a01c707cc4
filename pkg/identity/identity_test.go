package identity

import (
	"testing"

	"github.com/leapstack-labs/dslint/internal/testutil"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/syntax"
)

// calls parses src and returns its call expressions keyed by their rendering.
// The first call with a given rendering wins.
func calls(t *testing.T, src string) (*pyast.File, map[string]*syntax.CallExpr) {
	t.Helper()
	f, err := pyast.Parse("test.py", []byte(src))
	require.NoError(t, err)

	out := make(map[string]*syntax.CallExpr)
	err = f.Walk(func(n syntax.Node, _ *pyast.Scope) error {
		if call, ok := n.(*syntax.CallExpr); ok {
			key := pyast.Describe(call.Fn)
			if _, seen := out[key]; !seen {
				out[key] = call
			}
		}
		return nil
	})
	require.NoError(t, err)
	return f, out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		src  string
		call string
		want string
	}{
		{
			name: "plain name",
			src:  "print(1)\n",
			call: "print",
			want: "print",
		},
		{
			name: "attribute chain",
			src:  "sklearn.svm.SVC()\n",
			call: "sklearn.svm.SVC",
			want: "sklearn.svm.SVC",
		},
		{
			name: "method through local alias",
			src:  "svc = sklearn.svm.SVC(kernel='linear')\nsvc.fit(X, y)\n",
			call: "svc.fit",
			want: "sklearn.svm.SVC.fit",
		},
		{
			name: "alias chain",
			src:  "a = lib.make()\nb = a.child()\nb.run()\n",
			call: "b.run",
			want: "lib.make.child.run",
		},
		{
			name: "import alias",
			src:  "import pandas as pd\ndf = pd.read_csv('a.csv')\n",
			call: "pd.read_csv",
			want: "pandas.read_csv",
		},
		{
			name: "from import",
			src:  "from sklearn.svm import SVC\nmodel = SVC()\nmodel.fit(X, y)\n",
			call: "model.fit",
			want: "sklearn.svm.SVC.fit",
		},
		{
			name: "local binding shadows import",
			src:  "import pandas as pd\npd = other.lib()\npd.read_csv('a.csv')\n",
			call: "pd.read_csv",
			want: "other.lib.read_csv",
		},
		{
			name: "non-call binding leaves root",
			src:  "svc = models[0]\nsvc.fit(X)\n",
			call: "svc.fit",
			want: "svc.fit",
		},
		{
			name: "function scope sees module alias",
			src:  "svc = sklearn.svm.SVC()\ndef train(X, y):\n    svc.fit(X, y)\n",
			call: "svc.fit",
			want: "sklearn.svm.SVC.fit",
		},
		{
			name: "function scope alias is innermost",
			src:  "svc = a.A()\ndef train():\n    svc = b.B()\n    svc.fit()\n",
			call: "svc.fit",
			want: "b.B.fit",
		},
		{
			name: "parenthesized target",
			src:  "(sklearn.svm).SVC()\n",
			call: "(sklearn.svm).SVC",
			want: "sklearn.svm.SVC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cs := calls(t, tt.src)
			call, ok := cs[tt.call]
			require.True(t, ok, "call %q not found", tt.call)

			r := New(f, Options{Logger: testutil.NewTestLogger(t)})
			got, err := r.Resolve(call)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	f, cs := calls(t, "svc = sklearn.svm.SVC()\nsvc.fit(X, y)\n")
	r := New(f, Options{})

	first, err := r.Resolve(cs["svc.fit"])
	require.NoError(t, err)
	before := r.Stats()
	assert.Equal(t, 2, before.Resolved, "the alias call is resolved on the way")

	second, err := r.Resolve(cs["svc.fit"])
	require.NoError(t, err)
	assert.Equal(t, first, second)

	after := r.Stats()
	assert.Equal(t, before.Resolved, after.Resolved, "no recomputation")
	assert.Equal(t, before.CacheHits+1, after.CacheHits)

	_, err = r.Resolve(cs["sklearn.svm.SVC"])
	require.NoError(t, err)
	assert.Equal(t, before.CacheHits+2, r.Stats().CacheHits)
}

func TestResolve_DisableImports(t *testing.T) {
	f, cs := calls(t, "import pandas as pd\npd.read_csv('a.csv')\n")
	r := New(f, Options{DisableImports: true})

	got, err := r.Resolve(cs["pd.read_csv"])
	require.NoError(t, err)
	assert.Equal(t, "pd.read_csv", got)
}

func TestResolve_Cycle(t *testing.T) {
	tests := []struct {
		name string
		src  string
		call string
	}{
		{name: "self reference", src: "a = a.f()\n", call: "a.f"},
		{name: "mutual reference", src: "a = b.f()\nb = a.g()\n", call: "a.g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cs := calls(t, tt.src)
			r := New(f, Options{})
			_, err := r.Resolve(cs[tt.call])
			assert.ErrorIs(t, err, ErrAliasCycle)
		})
	}
}

func TestResolve_DepthBound(t *testing.T) {
	src := "a0 = root()\na1 = a0.f()\na2 = a1.f()\na3 = a2.f()\na3.f()\n"
	f, cs := calls(t, src)

	_, err := New(f, Options{MaxDepth: 2}).Resolve(cs["a3.f"])
	assert.ErrorIs(t, err, ErrAliasCycle)

	got, err := New(f, Options{}).Resolve(cs["a3.f"])
	require.NoError(t, err)
	assert.Equal(t, "root.f.f.f.f", got)
}

func TestResolve_Shape(t *testing.T) {
	tests := []struct {
		name string
		src  string
		call string
	}{
		{name: "call result", src: "f()()\n", call: "f(...)"},
		{name: "subscript", src: "handlers[0]()\n", call: "handlers[0]"},
		{name: "attribute of call", src: "make().run()\n", call: "make(...).run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cs := calls(t, tt.src)
			call, ok := cs[tt.call]
			require.True(t, ok, "call %q not found", tt.call)

			_, err := New(f, Options{}).Resolve(call)
			var serr *ShapeError
			assert.ErrorAs(t, err, &serr)
		})
	}
}
