package commands

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/dslint/internal/cli/output"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Group   string
	Verbose bool
	Format  string
}

var titleCase = cases.Title(language.English)

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List available lint rules",
		Long: `List all available lint rules with their documentation.

Rules are organized by group (e.g., data, reproducibility). A rule can be
looked up by ID or by symbolic name. Use --full to see full
documentation including examples and fix guidance.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON/YAML: Machine-readable format`,
		Example: `  # List all rules
  dslint rules

  # Show details for a specific rule
  dslint rules W5200
  dslint rules data-api-conflict

  # List rules in the data group
  dslint rules --group data

  # Output as YAML
  dslint rules --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Filter by group")
	cmd.Flags().BoolVarP(&opts.Verbose, "full", "V", false, "Show full documentation")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json, yaml")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "markdown", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func ruleInfos(cmdCtx *CommandContext) ([]lint.RuleInfo, error) {
	reg, err := cmdCtx.NewRegistry()
	if err != nil {
		return nil, err
	}
	var infos []lint.RuleInfo
	for _, rule := range reg.All() {
		infos = append(infos, rule.Info())
	}
	return infos, nil
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	cmdCtx, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	rules, err := ruleInfos(cmdCtx)
	if err != nil {
		return err
	}
	if opts.Group != "" {
		rules = slices.DeleteFunc(rules, func(ri lint.RuleInfo) bool { return ri.Group != opts.Group })
	}
	slices.SortFunc(rules, func(a, b lint.RuleInfo) int {
		return cmp.Or(cmp.Compare(a.Group, b.Group), cmp.Compare(a.ID, b.ID))
	})

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(RulesJSONOutput{Rules: rules, Count: len(rules)})
	case output.ModeYAML:
		return r.YAML(RulesJSONOutput{Rules: rules, Count: len(rules)})
	case output.ModeMarkdown:
		listRulesMarkdown(r, rules, opts.Verbose)
	default:
		listRulesText(r, rules, opts.Verbose)
	}
	return nil
}

// RulesJSONOutput is the JSON output structure for rules listing.
type RulesJSONOutput struct {
	Rules []lint.RuleInfo `json:"rules" yaml:"rules"`
	Count int             `json:"count" yaml:"count"`
}

// groupRules splits sorted rules into runs of one group.
func groupRules(rules []lint.RuleInfo) [][]lint.RuleInfo {
	var groups [][]lint.RuleInfo
	for i, rule := range rules {
		if i == 0 || rule.Group != rules[i-1].Group {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], rule)
	}
	return groups
}

func listRulesText(r *output.Renderer, rules []lint.RuleInfo, verbose bool) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Lint Rules (%d)", len(rules))))
	r.Println("")

	for _, group := range groupRules(rules) {
		r.Println(styles.Header2.Render(titleCase.String(group[0].Group)))
		rows := make([][]string, 0, len(group))
		for _, rule := range group {
			rows = append(rows, []string{rule.ID, rule.Name, severityStyle(styles, rule.DefaultSeverity).Render(rule.DefaultSeverity.String())})
		}
		r.Table([]string{"ID", "Name", "Severity"}, rows)

		if verbose {
			for _, rule := range group {
				r.Println(styles.Bold.Render("  " + rule.ID))
				r.Println(styles.Muted.Render("    " + rule.Description))
				if rule.Rationale != "" {
					r.Println(styles.Muted.Render("    Why: " + truncateOneLine(rule.Rationale, 80)))
				}
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render("Use 'dslint rules <rule-id>' for detailed documentation"))
	r.Println("")
}

func listRulesMarkdown(r *output.Renderer, rules []lint.RuleInfo, verbose bool) {
	r.Println("# Lint Rules")
	r.Println("")

	for _, group := range groupRules(rules) {
		r.Println("## " + titleCase.String(group[0].Group))
		r.Println("")
		for _, rule := range group {
			r.Printf("- **%s** - %s (`%s`)\n", rule.ID, rule.Name, rule.DefaultSeverity.String())
			if verbose {
				r.Println("  " + rule.Description)
				if rule.Rationale != "" {
					r.Println("  > " + truncateOneLine(rule.Rationale, 200))
				}
			}
		}
		r.Println("")
	}
}

func showRule(cmd *cobra.Command, ruleID string, opts *RulesOptions) error {
	cmdCtx, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	reg, err := cmdCtx.NewRegistry()
	if err != nil {
		return err
	}
	def, ok := reg.ByID(ruleID)
	if !ok {
		return fmt.Errorf("rule %q not found", ruleID)
	}
	rule := def.Info()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(rule)
	case output.ModeYAML:
		return r.YAML(rule)
	case output.ModeMarkdown:
		showRuleMarkdown(r, &rule)
	default:
		showRuleText(r, &rule)
	}
	return nil
}

func showRuleText(r *output.Renderer, rule *lint.RuleInfo) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("%s - %s", rule.ID, rule.Name)))
	r.Println("")

	r.Println("  " + r.FormatKeyValue("Group", rule.Group))
	r.Println("  " + r.FormatKeyValue("Severity", rule.DefaultSeverity.String()))
	r.Println("  " + r.FormatKeyValue("Docs", lint.BuildDocURL(rule.ID)))
	r.Println("")

	r.Println(styles.Bold.Render("Description"))
	r.Println("  " + rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println(styles.Bold.Render("Why This Matters"))
		for _, line := range strings.Split(rule.Rationale, "\n") {
			r.Println("  " + line)
		}
		r.Println("")
	}

	if rule.BadExample != "" {
		r.Println(styles.Bold.Render("Bad Example"))
		for _, line := range strings.Split(rule.BadExample, "\n") {
			r.Println(styles.Muted.Render("  " + line))
		}
		r.Println("")
	}

	if rule.GoodExample != "" {
		r.Println(styles.Bold.Render("Good Example"))
		for _, line := range strings.Split(rule.GoodExample, "\n") {
			r.Println(styles.Success.Render("  " + line))
		}
		r.Println("")
	}

	if rule.Fix != "" {
		r.Println(styles.Bold.Render("How to Fix"))
		r.Println("  " + rule.Fix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println(styles.Bold.Render("Configuration"))
		r.Printf("  Options: %s\n", strings.Join(rule.ConfigKeys, ", "))
		r.Println("")
	}
}

func showRuleMarkdown(r *output.Renderer, rule *lint.RuleInfo) {
	r.Printf("# %s - %s\n\n", rule.ID, rule.Name)
	r.Printf("**Group:** %s | **Severity:** `%s`\n\n", rule.Group, rule.DefaultSeverity.String())
	r.Println(rule.Description)
	r.Println("")

	section := func(title, body, lang string) {
		if body == "" {
			return
		}
		r.Println("## " + title)
		r.Println("")
		if lang != "" {
			r.Println("```" + lang)
		}
		r.Println(body)
		if lang != "" {
			r.Println("```")
		}
		r.Println("")
	}
	section("Why This Matters", rule.Rationale, "")
	section("Bad Example", rule.BadExample, "python")
	section("Good Example", rule.GoodExample, "python")
	section("How to Fix", rule.Fix, "")

	if len(rule.ConfigKeys) > 0 {
		r.Println("## Configuration")
		r.Println("")
		r.Printf("Options: `%s`\n", strings.Join(rule.ConfigKeys, "`, `"))
		r.Println("")
	}
}

func severityStyle(styles *output.Styles, sev lint.Severity) lipgloss.Style {
	switch sev {
	case lint.SeverityError:
		return styles.Error
	case lint.SeverityWarning:
		return styles.Warning
	case lint.SeverityInfo:
		return styles.Info
	default:
		return styles.Muted
	}
}

func truncateOneLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
