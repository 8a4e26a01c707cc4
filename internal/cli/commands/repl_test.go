package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dslint/internal/cli/config"
	"github.com/leapstack-labs/dslint/internal/cli/output"
	"github.com/leapstack-labs/dslint/internal/testutil"
)

func newTestSession(t *testing.T) (*replSession, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"skewed.csv": testutil.SkewedCSV})

	cfg := config.Defaults()
	cfg.DataRoot = dir
	buf := new(bytes.Buffer)
	session, err := newREPLSession(&CommandContext{
		Cfg:      cfg,
		Logger:   testutil.NewTestLogger(t),
		Renderer: output.NewRenderer(buf, buf, output.ModeMarkdown),
	})
	require.NoError(t, err)
	return session, buf
}

func feed(t *testing.T, s *replSession, lines ...string) {
	t.Helper()
	for _, line := range lines {
		quit, err := s.handle(context.Background(), line)
		require.NoError(t, err)
		require.False(t, quit)
	}
}

func TestREPL_ReportsAcrossStatements(t *testing.T) {
	s, buf := newTestSession(t)

	feed(t, s,
		"import pandas as pd",
		"from sklearn.svm import SVC",
		`df = pd.read_csv("skewed.csv")`,
		`X = df[["x1", "x2"]]`,
	)
	assert.NotContains(t, buf.String(), "W5200")

	feed(t, s, "model = SVC(random_state=1)", "model.fit(X, None)")
	assert.Contains(t, buf.String(), "W5200")
	assert.Contains(t, buf.String(), "range_is_equal")

	buf.Reset()
	feed(t, s, ":bindings")
	out := buf.String()
	assert.Contains(t, out, "| df ")
	assert.Contains(t, out, "| X ")
	assert.Contains(t, out, "x1, x2")
}

func TestREPL_Commands(t *testing.T) {
	s, buf := newTestSession(t)

	feed(t, s, ":bindings")
	assert.Contains(t, buf.String(), "no datasets bound")

	buf.Reset()
	feed(t, s, ":rules")
	assert.Contains(t, buf.String(), "W5200")
	assert.Contains(t, buf.String(), "W5506")

	buf.Reset()
	feed(t, s, ":frobnicate")
	assert.Contains(t, buf.String(), "unknown command :frobnicate")

	buf.Reset()
	feed(t, s, "import pandas as pd", `df = pd.read_csv("skewed.csv")`, ":reset")
	assert.Contains(t, buf.String(), "session cleared")
	buf.Reset()
	feed(t, s, ":bindings")
	assert.Contains(t, buf.String(), "no datasets bound")

	quit, err := s.handle(context.Background(), ":quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestREPL_Continuation(t *testing.T) {
	s, buf := newTestSession(t)

	feed(t, s, "def load(path):")
	assert.True(t, s.pending())
	feed(t, s, "    return path")
	assert.True(t, s.pending())
	feed(t, s, "")
	assert.False(t, s.pending())

	feed(t, s, "x = [")
	assert.True(t, s.pending())
	feed(t, s, "    1,", "]")
	assert.False(t, s.pending())
	assert.Empty(t, buf.String())
}

func TestREPL_SyntaxErrorKeepsSession(t *testing.T) {
	s, buf := newTestSession(t)

	feed(t, s, "x = = 1")
	assert.NotEmpty(t, buf.String())
	assert.False(t, s.pending())

	buf.Reset()
	feed(t, s, "y = 2")
	assert.Empty(t, buf.String())
}

func TestNeedsMore(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		lastLine string
		want     bool
	}{
		{"simple statement", "x = 1\n", "x = 1", false},
		{"open paren", "f(\n", "f(", true},
		{"closed paren", "f(\n1)\n", "1)", false},
		{"bracket in string", "s = \"(\"\n", `s = "("`, false},
		{"block header", "for i in x:\n", "for i in x:", true},
		{"block body", "for i in x:\n    pass\n", "pass", true},
		{"block closed", "for i in x:\n    pass\n\n", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsMore(tt.src, tt.lastLine))
		})
	}
}
