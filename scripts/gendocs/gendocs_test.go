package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readDoc(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestGenerateLintDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateLintDocs(dir))

	index := readDoc(t, filepath.Join(dir, "index.md"))
	assert.Contains(t, index, "dslint includes 2 lint rules.")
	assert.Contains(t, index, "## Data")
	assert.Contains(t, index, "## Reproducibility")
	assert.Contains(t, index, "[`W5200`](w5200)")

	page := readDoc(t, filepath.Join(dir, "w5200.md"))
	assert.Contains(t, page, "# W5200 - data-api-conflict")
	assert.Contains(t, page, "```python")
	assert.Contains(t, page, "`scale_threshold`")
	assert.FileExists(t, filepath.Join(dir, "w5506.md"))
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateConfigDocs(dir))

	page := readDoc(t, filepath.Join(dir, "configuration.md"))
	assert.Contains(t, page, "DO NOT EDIT")
	assert.Contains(t, page, "`sample_size`")
	assert.Contains(t, page, "`DSLINT_`")
	assert.Contains(t, page, "`range_is_equal`")
	assert.Contains(t, page, "`pandas.read_csv`")
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index := readDoc(t, filepath.Join(dir, "index.md"))
	assert.Contains(t, index, "`lint`")
	assert.Contains(t, index, "DSLINT_")

	assert.Contains(t, index, "`DSLINT_SAMPLE_SIZE`")
	assert.NotContains(t, index, "DSLINT_LINT", "nested keys are file-only")
	assert.Contains(t, index, "(../rules/index.md)")

	page := readDoc(t, filepath.Join(dir, "lint.md"))
	assert.Contains(t, page, "--severity")
	assert.Contains(t, page, "## See Also")
	assert.Contains(t, page, "[Lint rules](../rules/index.md)")

	root := readDoc(t, filepath.Join(dir, "index.md"))
	assert.Contains(t, root, "[`sample_size`](../configuration.md#keys)", "flags link to the key they override")
}

func TestCleanExample(t *testing.T) {
	assert.Equal(t, "# lint\ndslint lint\n\n  nested", cleanExample("\n  # lint\n  dslint lint\n\n    nested\n"))
	assert.Equal(t, "", cleanExample("\n\n"))
}

func TestMarkdownWriterTable(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"Key", "Value"}, [][]string{{"a", "x|y"}})
	out := string(w.Bytes())
	assert.Contains(t, out, "Key")
	assert.Contains(t, out, "x&#124;y")
	assert.NotContains(t, out, "x|y")
}
