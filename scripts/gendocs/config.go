package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dslint/internal/cli/config"
	"github.com/leapstack-labs/dslint/internal/cli/output"
	"github.com/leapstack-labs/dslint/pkg/contract"
	"github.com/leapstack-labs/dslint/pkg/loader"
)

// ConfigField describes one configuration key.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
}

// configFields lists the keys of dslint.yaml with their defaults.
func configFields() []ConfigField {
	d := config.Defaults()
	modes := make([]string, len(output.Modes))
	for i, m := range output.Modes {
		modes[i] = string(m)
	}
	return []ConfigField{
		{"output", "string", d.OutputFormat, "Output format: " + strings.Join(modes, ", ")},
		{"verbose", "bool", strconv.FormatBool(d.Verbose), "Log at debug level"},
		{"jobs", "int", strconv.Itoa(d.Jobs), "Files analyzed in parallel"},
		{"data_root", "string", d.DataRoot, "Directory relative data paths are read from, relative to the config file"},
		{"sample_size", "int", strconv.Itoa(d.SampleSize), "Rows sampled from each loaded dataset"},
		{"sample_seed", "int", strconv.FormatUint(d.SampleSeed, 10), "Seed for row sampling"},
		{"max_alias_depth", "int", strconv.Itoa(d.MaxAliasDepth), "Maximum alias substitutions when resolving a call"},
		{"mean_as_median", "bool", strconv.FormatBool(d.MeanAsMedian), "Compute the mean statistic as the median"},
		{"lint.disabled", "[]string", "", "Rule IDs to disable"},
		{"lint.severity", "map[string]string", "", "Severity override per rule ID"},
		{"lint.rules", "map[string]map", "", "Options per rule ID"},
		{"contracts", "[]contract", "", "Extra contracts. One with the identity of a built-in contract replaces it"},
		{"loaders", "[]loader", "", "Extra identities served by a built-in loader"},
	}
}

func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "configuration.md"), configPage(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}

func configPage() []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "dslint configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("dslint reads `dslint.yaml` (or `dslint.yml`) from the working directory or the nearest parent directory. " +
		"Environment variables with the `" + config.EnvPrefix + "` prefix override the file, and command-line flags override both.")

	w.Header(2, "Keys")
	var rows [][]string
	for _, f := range configFields() {
		def := ""
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, def, f.Description})
	}
	w.Table([]string{"Key", "Type", "Default", "Description"}, rows)

	w.Header(2, "Contracts")
	w.Paragraph("A contract names a call, its parameters in positional order, the parameters that must be datasets, " +
		"and the preconditions those datasets must meet.")
	w.Paragraph("Preconditions: " + codeList(contract.Names()))
	w.CodeBlock("yaml", `contracts:
  - identity: mylib.Model.fit
    params: [X, y]
    datasets: [X]
    preconditions: [range_is_equal]`)

	w.Header(2, "Loaders")
	w.Paragraph("Built-in loaders: " + codeList(loader.NewRegistry(nil, loader.Pandas()).Identities()))
	w.CodeBlock("yaml", `loaders:
  - identity: mylib.read_table
    target: pandas.read_csv`)

	return w.Bytes()
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = InlineCode(item)
	}
	return strings.Join(quoted, ", ")
}
