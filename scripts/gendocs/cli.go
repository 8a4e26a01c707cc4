package main

import (
	"cmp"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/dslint/internal/cli"
	"github.com/leapstack-labs/dslint/internal/cli/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Pages the CLI reference links to, relative to docs/cli.
const (
	configDocLink = "../configuration.md"
	rulesDocLink  = "../rules/index.md"
)

// seeAlso lists extra reading per command.
var seeAlso = map[string][]string{
	"lint":  {"[Lint rules](" + rulesDocLink + ")", "[Configuration](" + configDocLink + ")"},
	"rules": {"[Lint rules](" + rulesDocLink + ")"},
	"repl":  {"[lint](lint.md) for the diagnostics the session prints"},
	"lsp":   {"[Configuration](" + configDocLink + ") for the settings the server reads"},
}

// generateCLIDocs writes docs/cli: an overview and one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	keys := configKeys()
	pages := map[string][]byte{"index.md": cliIndex(root, keys)}
	for _, cmd := range visibleCommands(root) {
		pages[cmd.Name()+".md"] = commandPage(cmd, keys)
	}
	for name, page := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), page, 0600); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// configKeys maps the configuration keys a flag or variable can set to their
// description.
func configKeys() map[string]ConfigField {
	keys := make(map[string]ConfigField)
	for _, f := range configFields() {
		keys[f.Name] = f
	}
	return keys
}

// envVar returns the variable that sets a top-level key. Nested keys and
// collections are file-only.
func envVar(f ConfigField) (string, bool) {
	if strings.Contains(f.Name, ".") || strings.HasPrefix(f.Type, "[]") || strings.HasPrefix(f.Type, "map") {
		return "", false
	}
	return config.EnvPrefix + strings.ToUpper(f.Name), true
}

func cliIndex(root *cobra.Command, keys map[string]ConfigField) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for dslint")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("dslint lints Python data-science scripts against the data they load. " +
		"Run it once over a project with `dslint lint`, type statements into `dslint repl`, " +
		"or attach an editor to `dslint lsp`.")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/dslint/cmd/dslint@latest\ndslint <command> [options]")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s.md)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags(), keys)

	w.Header(2, "Environment Variables")
	w.Paragraph("Top-level configuration keys can also be set from the environment. " +
		"Flags override variables, which override " + InlineCode("dslint.yaml") +
		". See [Configuration](" + configDocLink + ") for the file-only keys.")
	var vars [][]string
	for _, f := range configFields() {
		if name, ok := envVar(f); ok {
			vars = append(vars, []string{InlineCode(name), f.Type, f.Description})
		}
	}
	w.Table([]string{"Variable", "Type", "Description"}, vars)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "No diagnostic at or above the " + InlineCode("--severity") + " threshold"},
		{InlineCode("1"), "Diagnostics were reported, a script failed to parse, or the run failed"},
	})
	w.Paragraph("Each diagnostic names a rule; the [rule reference](" + rulesDocLink + ") explains how to fix it.")

	return w.Bytes()
}

func visibleCommands(root *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, cmd := range root.Commands() {
		if !cmd.Hidden && cmd.IsAvailableCommand() && cmd.Name() != "help" {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func commandPage(cmd *cobra.Command, keys map[string]ConfigField) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, "dslint "+cmd.Name())
	w.Paragraph(cmp.Or(cmd.Long, cmd.Short))

	w.Header(2, "Usage")
	use := cmd.UseLine()
	if !strings.HasPrefix(use, "dslint") {
		use = "dslint " + use
	}
	w.CodeBlock("bash", use)

	if len(cmd.Aliases) > 0 {
		w.Paragraph("Aliases: " + codeList(cmd.Aliases))
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags(), keys)
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags(), keys)
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}

	if links := seeAlso[cmd.Name()]; len(links) > 0 {
		w.Header(2, "See Also")
		w.BulletList(links)
	}
	return w.Bytes()
}

// writeFlagsTable lists flags. Flags that override a configuration key link
// to it.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet, keys map[string]ConfigField) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		flag := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			flag = InlineCode("-"+f.Shorthand) + ", " + flag
		}

		def := ""
		if f.DefValue != "" && f.DefValue != "[]" && f.DefValue != "false" {
			def = InlineCode(f.DefValue)
		}

		key := ""
		if field, ok := keys[strings.ReplaceAll(f.Name, "-", "_")]; ok {
			key = fmt.Sprintf("[%s](%s#keys)", InlineCode(field.Name), configDocLink)
		}
		rows = append(rows, []string{flag, def, key, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Default", "Config key", "Description"}, rows)
}

// cleanExample strips the indentation cobra examples share.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if n := len(line) - len(strings.TrimLeft(line, " \t")); indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		lines[i] = line[min(indent, len(line)-len(strings.TrimLeft(line, " \t"))):]
	}
	return strings.Join(lines, "\n")
}
