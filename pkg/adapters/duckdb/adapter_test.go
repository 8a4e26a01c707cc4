package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, adapter.Config{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			assert.Equal(t, "duckdb", adp.Cfg.Type)
			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_ConnectSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{
		Params: map[string]any{"settings": map[string]any{"threads": 1}},
	}))
	defer func() { _ = adp.Close() }()

	ds, err := adp.QueryDataset(ctx, "SELECT current_setting('threads') AS threads", -1)
	require.NoError(t, err)
	col, _ := ds.Column("threads")
	assert.Equal(t, []float64{1}, col.Values)

	err = New(nil).Connect(ctx, adapter.Config{Params: map[string]any{"bogus": true}})
	assert.Error(t, err)
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorIs(t, adp.Exec(ctx, "SELECT 1"), adapter.ErrNotConnected)
	_, err := adp.QueryDataset(ctx, "SELECT 1", -1)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	assert.NoError(t, adp.Close())
}

func TestAdapter_ReadTable(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE points (x1 INTEGER, x2 DOUBLE, label VARCHAR)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO points VALUES (0, 0.5, 'a'), (10, 1.5, 'b'), (20, 2.5, 'c')`))

	ds, err := adp.ReadTable(ctx, "points", []string{"x1", "x2"}, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2"}, ds.Columns())
	x1, _ := ds.Column("x1")
	assert.Equal(t, []float64{0, 10, 20}, x1.Values)

	ds, err = adp.ReadTable(ctx, "main.points", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.NumRows())
	assert.Equal(t, 3, ds.NumColumns())
}

func TestAdapter_ReadFile(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	csvPath := writeFile(t, "data.csv", "x1,x2,x3\n0,0,a\n10,1,b\n20,2,c\n")
	semiPath := writeFile(t, "semi.csv", "x1;x2\n1;2\n3;4\n")
	jsonPath := writeFile(t, "data.json", `[{"a": 1, "b": 2}, {"a": 3, "b": 4}]`)

	noHeader := false

	tests := []struct {
		name     string
		format   Format
		path     string
		opts     FileOptions
		limit    int
		wantCols []string
		wantRows int
		wantErr  bool
	}{
		{
			name:     "csv",
			format:   FormatCSV,
			path:     csvPath,
			limit:    -1,
			wantCols: []string{"x1", "x2", "x3"},
			wantRows: 3,
		},
		{
			name:     "csv selected columns and limit",
			format:   FormatCSV,
			path:     csvPath,
			opts:     FileOptions{Columns: []string{"x2"}},
			limit:    2,
			wantCols: []string{"x2"},
			wantRows: 2,
		},
		{
			name:     "csv delimiter",
			format:   FormatCSV,
			path:     semiPath,
			opts:     FileOptions{Delimiter: ";"},
			limit:    -1,
			wantCols: []string{"x1", "x2"},
			wantRows: 2,
		},
		{
			name:     "csv without header",
			format:   FormatCSV,
			path:     semiPath,
			opts:     FileOptions{Delimiter: ";", Header: &noHeader},
			limit:    -1,
			wantRows: 3,
		},
		{
			name:     "json",
			format:   FormatJSON,
			path:     jsonPath,
			limit:    -1,
			wantCols: []string{"a", "b"},
			wantRows: 2,
		},
		{
			name:    "missing file",
			format:  FormatCSV,
			path:    filepath.Join(t.TempDir(), "missing.csv"),
			limit:   -1,
			wantErr: true,
		},
		{
			name:    "unknown format",
			format:  Format("xlsx"),
			path:    csvPath,
			limit:   -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := adp.ReadFile(ctx, tt.format, tt.path, tt.opts, tt.limit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, ds.NumRows())
			if tt.wantCols != nil {
				assert.Equal(t, tt.wantCols, ds.Columns())
			}
		})
	}
}

func TestFileQuery(t *testing.T) {
	header := true
	q, err := fileQuery(FormatCSV, "/data/it's.csv", FileOptions{Delimiter: ",", Header: &header, Columns: []string{"a"}}, 5)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "a" FROM read_csv_auto('/data/it''s.csv', delim=',', header=true) LIMIT 5`, q)

	q, err = fileQuery(FormatParquet, "s3://bucket/x.parquet", FileOptions{}, -1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM read_parquet('s3://bucket/x.parquet')`, q)
}
