package loader

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/dslint/internal/testutil"
	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/leapstack-labs/dslint/pkg/adapters"
	"github.com/leapstack-labs/dslint/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/syntax"

	_ "modernc.org/sqlite" // seeds the read_sql fixture
)

func parseCall(t *testing.T, src string) *syntax.CallExpr {
	t.Helper()
	expr, err := syntax.ParseExpr("test.py", src, 0)
	require.NoError(t, err)
	call, ok := expr.(*syntax.CallExpr)
	require.True(t, ok)
	return call
}

func newEnv(t *testing.T) *Env {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o750))
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o600))
	}
	write("data/my_data.csv", "x1,x2,x3\n0,0,a\n10,1,b\n20,2,c\n")
	write("data/semi.csv", "x1;x2\n1;2\n3;4\n")
	write("data/rows.json", `[{"a": 1, "b": 2}, {"a": 3, "b": 4}]`)

	db, err := sql.Open("sqlite", filepath.Join(root, "data", "points.db"))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE points (x1 INTEGER, x2 REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO points VALUES (0, 0.5), (10, 1.5)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	return &Env{
		DataRoot: root,
		Adapters: adapters.Default(),
		Logger:   testutil.NewTestLogger(t),
	}
}

func TestEvalArgs(t *testing.T) {
	args, err := EvalArgs(parseCall(t, `f('a.csv', 1, sep=';', usecols=['x'])`))
	require.NoError(t, err)
	assert.Equal(t, []any{"a.csv", int64(1)}, args.Positional)
	assert.Equal(t, map[string]any{"sep": ";", "usecols": []any{"x"}}, args.Keywords)

	tests := []string{
		`f(path)`,
		`f('a.csv', sep=delim)`,
		`f(*paths)`,
		`f(**opts)`,
		`f(os.path.join('a', 'b'))`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := EvalArgs(parseCall(t, src))
			var aerr *ArgError
			assert.ErrorAs(t, err, &aerr)
		})
	}
}

func TestCallArgs_Bind(t *testing.T) {
	args := CallArgs{Positional: []any{"a", "b"}, Keywords: map[string]any{"z": 1}}
	bound, err := args.Bind("x", "y")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "a", "y": "b", "z": 1}, bound)

	_, err = args.Bind("x")
	assert.Error(t, err, "too many positionals")

	args = CallArgs{Positional: []any{"a"}, Keywords: map[string]any{"x": "b"}}
	_, err = args.Bind("x")
	assert.ErrorContains(t, err, "given both")
}

func TestPandasLoaders(t *testing.T) {
	env := newEnv(t)
	reg := NewRegistry(env, Pandas())

	tests := []struct {
		name     string
		identity string
		src      string
		wantCols []string
		wantRows int
		wantErr  bool
	}{
		{
			name:     "read_csv relative path",
			identity: "pandas.read_csv",
			src:      `pd.read_csv(r'./data/my_data.csv')`,
			wantCols: []string{"x1", "x2", "x3"},
			wantRows: 3,
		},
		{
			name:     "read_csv usecols nrows",
			identity: "pandas.read_csv",
			src:      `pd.read_csv('data/my_data.csv', usecols=['x1', 'x2'], nrows=2)`,
			wantCols: []string{"x1", "x2"},
			wantRows: 2,
		},
		{
			name:     "read_csv positional sep",
			identity: "pandas.read_csv",
			src:      `pd.read_csv('data/semi.csv', ';')`,
			wantCols: []string{"x1", "x2"},
			wantRows: 2,
		},
		{
			name:     "read_csv header None",
			identity: "pandas.read_csv",
			src:      `pd.read_csv('data/semi.csv', delimiter=';', header=None)`,
			wantRows: 3,
		},
		{
			name:     "read_csv ignores unsupported keywords",
			identity: "pandas.read_csv",
			src:      `pd.read_csv('data/my_data.csv', low_memory=False)`,
			wantRows: 3,
		},
		{
			name:     "read_csv missing path",
			identity: "pandas.read_csv",
			src:      `pd.read_csv(sep=',')`,
			wantErr:  true,
		},
		{
			name:     "read_csv bad header",
			identity: "pandas.read_csv",
			src:      `pd.read_csv('data/my_data.csv', header=2)`,
			wantErr:  true,
		},
		{
			name:     "read_csv missing file",
			identity: "pandas.read_csv",
			src:      `pd.read_csv('data/nope.csv')`,
			wantErr:  true,
		},
		{
			name:     "read_json",
			identity: "pandas.read_json",
			src:      `pd.read_json('data/rows.json', orient='records')`,
			wantCols: []string{"a", "b"},
			wantRows: 2,
		},
		{
			name:     "read_sql query",
			identity: "pandas.read_sql",
			src:      `pd.read_sql('SELECT x1, x2 FROM points', 'sqlite:///data/points.db')`,
			wantCols: []string{"x1", "x2"},
			wantRows: 2,
		},
		{
			name:     "read_sql table name",
			identity: "pandas.read_sql",
			src:      `pd.read_sql('points', con='sqlite:///data/points.db')`,
			wantCols: []string{"x1", "x2"},
			wantRows: 2,
		},
		{
			name:     "read_sql_table columns",
			identity: "pandas.read_sql_table",
			src:      `pd.read_sql_table('points', 'sqlite:///data/points.db', columns=['x2'])`,
			wantCols: []string{"x2"},
			wantRows: 2,
		},
		{
			name:     "read_sql_query unsupported scheme",
			identity: "pandas.read_sql_query",
			src:      `pd.read_sql_query('SELECT 1', 'mysql://db/x')`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok, err := reg.Load(context.Background(), tt.identity, parseCall(t, tt.src))
			assert.True(t, ok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, d.NumRows())
			if tt.wantCols != nil {
				assert.Equal(t, tt.wantCols, d.Columns())
			}
		})
	}
}

func TestPandasLoaders_SamplesWhileReading(t *testing.T) {
	env := newEnv(t)
	var b strings.Builder
	b.WriteString("x1,x2\n")
	for i := range 5000 {
		fmt.Fprintf(&b, "%d,%d\n", i, i%7)
	}
	require.NoError(t, os.WriteFile(filepath.Join(env.DataRoot, "big.csv"), []byte(b.String()), 0o600))

	env.Sampling = adapter.Sampling{Size: 40, Seed: 11}
	reg := NewRegistry(env, Pandas())
	d, ok, err := reg.Load(context.Background(), "pandas.read_csv", parseCall(t, `pd.read_csv('big.csv')`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40, d.NumRows())

	again, _, err := reg.Load(context.Background(), "pandas.read_csv", parseCall(t, `pd.read_csv('big.csv')`))
	require.NoError(t, err)
	assert.Equal(t, d.Columns(), again.Columns())
	x1, _ := d.Column("x1")
	x1Again, _ := again.Column("x1")
	assert.Equal(t, x1.Values, x1Again.Values, "sampling is seeded")

	d, _, err = reg.Load(context.Background(), "pandas.read_sql_table", parseCall(t, `pd.read_sql_table('points', 'sqlite:///data/points.db')`))
	require.NoError(t, err)
	assert.Equal(t, 2, d.NumRows(), "sources under the cap are read whole")
}

func TestRegistry_Unregistered(t *testing.T) {
	reg := NewRegistry(nil, Pandas())
	d, ok, err := reg.Load(context.Background(), "numpy.loadtxt", parseCall(t, `np.loadtxt('a')`))
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestRegistry_WithAliases(t *testing.T) {
	fixture, err := dataset.New(dataset.Column{Name: "a", Values: []float64{1}, Numeric: true})
	require.NoError(t, err)

	base := NewRegistry(nil, map[string]Func{"fixtures.load": Static(fixture)})
	reg, err := base.WithAliases(map[string]string{"mylib.read_table": "fixtures.load"})
	require.NoError(t, err)

	assert.Equal(t, []string{"fixtures.load", "mylib.read_table"}, reg.Identities())
	assert.Equal(t, []string{"fixtures.load"}, base.Identities(), "aliases do not change the base registry")

	d, ok, err := reg.Load(context.Background(), "mylib.read_table", parseCall(t, `read_table()`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, fixture, d)

	_, err = base.WithAliases(map[string]string{"x": "missing"})
	assert.Error(t, err)
}

func TestEnv_Resolve(t *testing.T) {
	env := &Env{DataRoot: "/data"}
	assert.Equal(t, filepath.Join("/data", "a.csv"), env.Resolve("a.csv"))
	assert.Equal(t, "/abs/a.csv", env.Resolve("/abs/a.csv"))
	assert.Equal(t, "s3://b/a.csv", env.Resolve("s3://b/a.csv"))
}
