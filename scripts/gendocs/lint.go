package main

import (
	"cmp"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/lint/rules"
	"github.com/leapstack-labs/dslint/pkg/lint/rules/data"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// groupDescriptions provides human-readable descriptions for rule groups.
var groupDescriptions = map[string]string{
	"data":            "Rules that check the data reaching a call against the call's preconditions.",
	"reproducibility": "Rules about controlling randomness so that results can be reproduced.",
}

var titleCase = cases.Title(language.English)

// generateLintDocs writes an index of every rule plus one page per rule,
// at the path lint.BuildDocURL links to.
func generateLintDocs(outDir string) error {
	log.Printf("Generating lint docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	infos := ruleInfos()
	if err := generateLintIndex(outDir, infos); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	for _, info := range infos {
		name := strings.ToLower(info.ID) + ".md"
		if err := os.WriteFile(filepath.Join(outDir, name), rulePage(info), 0600); err != nil {
			return err
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// ruleInfos lists every rule sorted by group, then ID. Rule metadata does
// not depend on the data environment.
func ruleInfos() []lint.RuleInfo {
	var infos []lint.RuleInfo
	for _, rule := range rules.All(data.Env{}) {
		infos = append(infos, rule.Info())
	}
	slices.SortFunc(infos, func(a, b lint.RuleInfo) int {
		return cmp.Or(cmp.Compare(a.Group, b.Group), cmp.Compare(a.ID, b.ID))
	})
	return infos
}

func generateLintIndex(outDir string, infos []lint.RuleInfo) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Lint Rules", "Lint rules for dslint")
	w.GeneratedMarker()

	w.Header(1, "Lint Rules")
	w.Paragraph(fmt.Sprintf("dslint includes %d lint rules.", len(infos)))

	w.Header(2, "Severity Levels")
	w.Table(
		[]string{"Severity", "Description"},
		[][]string{
			{InlineCode("error"), "Critical issue that should be fixed"},
			{InlineCode("warning"), "Potential issue that should be reviewed"},
			{InlineCode("info"), "Informational feedback"},
			{InlineCode("hint"), "Suggestion for improvement"},
		},
	)

	w.Header(2, "Configuration")
	w.Paragraph("Rules can be configured in `dslint.yaml`:")
	w.CodeBlock("yaml", `lint:
  disabled: [W5506]          # disable a rule by ID
  severity:
    W5200: error             # override severity
  rules:
    W5200:
      scale_threshold: 20    # rule-specific option`)

	var group string
	for _, info := range infos {
		if info.Group != group {
			group = info.Group
			w.Header(2, titleCase.String(group))
			if desc, ok := groupDescriptions[group]; ok {
				w.Paragraph(desc)
			}
		}
		w.Line(fmt.Sprintf("- [%s](%s) %s: %s", InlineCode(info.ID), strings.ToLower(info.ID), info.Name, cleanDescription(info.Description)))
	}
	w.Newline()

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// rulePage renders the documentation of a single rule.
func rulePage(info lint.RuleInfo) []byte {
	w := NewMarkdownWriter()

	w.Frontmatter(fmt.Sprintf("%s %s", info.ID, info.Name), cleanDescription(info.Description))
	w.GeneratedMarker()

	w.Header(1, fmt.Sprintf("%s - %s", info.ID, info.Name))
	w.Line(fmt.Sprintf("**Group:** %s | **Severity:** %s", info.Group, InlineCode(info.DefaultSeverity.String())))
	w.Newline()
	w.Paragraph(info.Description)

	if info.Rationale != "" {
		w.Header(2, "Why This Matters")
		w.Paragraph(info.Rationale)
	}
	if info.BadExample != "" {
		w.Header(2, "Bad")
		w.CodeBlock("python", info.BadExample)
	}
	if info.GoodExample != "" {
		w.Header(2, "Good")
		w.CodeBlock("python", info.GoodExample)
	}
	if info.Fix != "" {
		w.Header(2, "How to Fix")
		w.Paragraph(info.Fix)
	}
	if len(info.ConfigKeys) > 0 {
		keys := make([]string, len(info.ConfigKeys))
		for i, k := range info.ConfigKeys {
			keys[i] = InlineCode(k)
		}
		w.Header(2, "Configuration")
		w.Paragraph(fmt.Sprintf("Options under `lint.rules.%s`: %s", info.ID, strings.Join(keys, ", ")))
	}
	return w.Bytes()
}
