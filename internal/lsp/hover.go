package lsp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/tracker"
)

// getHover explains the diagnostic under the cursor or, failing that,
// describes the dataset bound to the name under it.
func (s *Server) getHover(params HoverParams) *Hover {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	for _, d := range doc.Diagnostics {
		pd := toProtocol(doc, d)
		if pd.Range.Contains(params.Position) {
			return &Hover{
				Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: s.diagnosticMarkdown(d)},
				Range:    &pd.Range,
			}
		}
	}

	word, rng := doc.GetWordAtPosition(params.Position)
	if word == "" {
		return nil
	}
	for _, b := range doc.Bindings {
		if b.Name == word {
			return &Hover{
				Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: bindingMarkdown(b)},
				Range:    &rng,
			}
		}
	}
	return nil
}

func (s *Server) diagnosticMarkdown(d lint.Diagnostic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** `%s`\n\n%s\n", d.RuleID, d.Symbol, d.Message)

	if s.registry != nil {
		if rule, ok := s.registry.ByID(d.RuleID); ok {
			fmt.Fprintf(&sb, "\n%s\n", rule.Description)
			if rule.Fix != "" {
				fmt.Fprintf(&sb, "\n**Fix:** %s\n", rule.Fix)
			}
		}
	}
	if d.DocumentationURL != "" {
		fmt.Fprintf(&sb, "\n[Documentation](%s)\n", d.DocumentationURL)
	}
	return sb.String()
}

// bindingMarkdown lists the columns of a bound dataset with every statistic
// computed so far. Nothing is computed for the hover.
func bindingMarkdown(b *tracker.Binding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** dataset from `%s`, %d sampled rows\n\n", b.Name, b.Source, b.Dataset.NumRows())

	var stats []string
	if b.Properties != nil {
		stats = b.Properties.ComputedNames()
	}

	t := table.NewWriter()
	header := table.Row{"column"}
	for _, stat := range stats {
		header = append(header, stat)
	}
	t.AppendHeader(header)

	for _, col := range b.Dataset.Columns() {
		row := table.Row{col}
		for _, stat := range stats {
			series, err := b.Properties.Get(stat)
			if err != nil {
				row = append(row, "")
				continue
			}
			v, ok := series.At(col)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'g', 6, 64))
		}
		t.AppendRow(row)
	}
	sb.WriteString(t.RenderMarkdown())
	sb.WriteString("\n")
	return sb.String()
}
