package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dslint/internal/testutil"
	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`CREATE TABLE points (x1 INTEGER, x2 REAL, label TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO points VALUES (0, 0.5, 'a'), (10, NULL, 'b'), (20, 2.5, 'c')`)
	require.NoError(t, err)
	return path
}

func TestAdapter_ReadTable(t *testing.T) {
	ctx := context.Background()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, adapter.Config{Path: seed(t)}))
	defer func() { _ = adp.Close() }()

	assert.Equal(t, "sqlite", adp.Cfg.Type)

	ds, err := adp.ReadTable(ctx, "points", []string{"x1", "x2"}, -1)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumRows())

	x1, _ := ds.Column("x1")
	assert.Equal(t, []float64{0, 10, 20}, x1.Values)

	ds, err = adp.QueryDataset(ctx, "SELECT label FROM points", -1)
	require.NoError(t, err)
	label, _ := ds.Column("label")
	assert.False(t, label.Numeric)
}

func TestAdapter_ReadOnly(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{Path: seed(t)}))
	defer func() { _ = adp.Close() }()

	assert.Error(t, adp.Exec(ctx, `DELETE FROM points`))
}

func TestAdapter_InMemory(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE t (a INTEGER)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO t VALUES (?), (?)`, 1, 2))

	ds, err := adp.ReadTable(ctx, "t", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.NumRows())
}
