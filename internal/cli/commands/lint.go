package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/dslint/internal/cli/config"
	"github.com/leapstack-labs/dslint/internal/cli/output"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// LintOptions holds options for the lint command.
type LintOptions struct {
	Paths    []string
	Format   string
	Disable  []string
	Severity string
	Rules    []string
	Jobs     int
	Watch    bool
}

// ErrLintIssues is returned when diagnostics at or above the severity
// threshold were reported.
var ErrLintIssues = errors.New("lint issues found")

// Syntax errors are reported as diagnostics under this rule.
const (
	syntaxErrorID     = "E0001"
	syntaxErrorSymbol = "syntax-error"
)

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Lint Python data-science scripts",
		Long: `Analyze Python scripts for data-related API misuse.

dslint reads the data each script loads, follows it through assignments
and column selections, and checks it against the preconditions of the
library calls it reaches. Directories are searched recursively for .py
files; hidden directories and virtual environments are skipped.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Lint the current directory
  dslint lint

  # Lint specific files and directories
  dslint lint train.py notebooks/

  # Output as JSON
  dslint lint --format json

  # Disable a rule
  dslint lint --disable W5506

  # Only report errors
  dslint lint --severity error

  # Re-lint files as they change
  dslint lint --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Paths = args
			return runLint(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule IDs or names to disable")
	cmd.Flags().StringVar(&opts.Severity, "severity", "warning", "Minimum severity: error, warning, info, hint")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", config.DefaultJobs, "Files analyzed in parallel")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-lint files when they change")

	_ = cmd.RegisterFlagCompletionFunc("severity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info", "hint"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runLint(cmd *cobra.Command, opts *LintOptions) error {
	cmdCtx, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}
	threshold, ok := lint.ParseSeverity(opts.Severity)
	if !ok {
		return fmt.Errorf("unknown severity %q", opts.Severity)
	}

	reg, err := cmdCtx.NewRegistry()
	if err != nil {
		return err
	}
	lintCfg, err := buildLintConfig(cmdCtx.Cfg, reg, opts)
	if err != nil {
		return err
	}
	analyzer := lint.NewAnalyzer(reg, lintCfg, cmdCtx.Logger)

	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files, err := collectFiles(paths)
	if err != nil {
		return err
	}

	// The config already carries --jobs when it was set.
	jobs := cmdCtx.Cfg.Jobs

	run := func(ctx context.Context, files []string) error {
		started := time.Now()
		results, err := analyzeFiles(ctx, analyzer, files, jobs)
		if err != nil {
			return err
		}
		return report(cmdCtx.Renderer, results, threshold, started)
	}

	if !opts.Watch {
		return run(cmd.Context(), files)
	}
	if err := run(cmd.Context(), files); err != nil && !errors.Is(err, ErrLintIssues) {
		return err
	}
	return watch(cmd.Context(), cmdCtx, paths, run)
}

func buildLintConfig(cfg *config.Config, reg *lint.Registry, opts *LintOptions) (*lint.Config, error) {
	lintCfg := lint.NewConfig()
	if cfg != nil {
		lintCfg = cfg.LintRuleConfig()
	}

	ruleID := func(name string) (string, error) {
		rule, ok := reg.ByID(strings.TrimSpace(name))
		if !ok {
			return "", fmt.Errorf("unknown rule %q", name)
		}
		return rule.ID, nil
	}

	for _, name := range opts.Disable {
		id, err := ruleID(name)
		if err != nil {
			return nil, err
		}
		lintCfg.Disable(id)
	}

	// --rule disables every other rule
	if len(opts.Rules) > 0 {
		enabled := make(map[string]bool)
		for _, name := range opts.Rules {
			id, err := ruleID(name)
			if err != nil {
				return nil, err
			}
			enabled[id] = true
		}
		for _, rule := range reg.All() {
			if !enabled[rule.ID] {
				lintCfg.Disable(rule.ID)
			}
		}
	}
	return lintCfg, nil
}

// skipDir reports whether a directory is never searched for scripts.
func skipDir(name string) bool {
	if name != "." && name != ".." && strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "venv", "env", "__pycache__", "node_modules", "site-packages":
		return true
	}
	return false
}

// collectFiles expands paths into a sorted, de-duplicated list of scripts.
// Files named explicitly are kept whatever their extension.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ".py") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// lintFileResult holds lint results for a single file.
type lintFileResult struct {
	Path        string
	Diagnostics []lint.Diagnostic
	Err         error
}

// analyzeFiles lints files with at most jobs running at once. A file that
// fails to analyze does not stop the others; its error is kept in its result.
func analyzeFiles(ctx context.Context, analyzer *lint.Analyzer, files []string, jobs int) ([]lintFileResult, error) {
	results := make([]lintFileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, path := range files {
		g.Go(func() error {
			results[i] = analyzeFile(ctx, analyzer, path)
			if errors.Is(results[i].Err, context.Canceled) {
				return results[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func analyzeFile(ctx context.Context, analyzer *lint.Analyzer, path string) lintFileResult {
	res := lintFileResult{Path: path}
	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	diags, err := analyzer.AnalyzeSource(ctx, path, src)
	var perr *pyast.ParseError
	if errors.As(err, &perr) {
		res.Diagnostics = []lint.Diagnostic{syntaxError(path, perr)}
		return res
	}
	res.Diagnostics, res.Err = diags, err
	return res
}

func syntaxError(path string, perr *pyast.ParseError) lint.Diagnostic {
	return lint.Diagnostic{
		RuleID:   syntaxErrorID,
		Symbol:   syntaxErrorSymbol,
		Severity: lint.SeverityError,
		Message:  perr.Message,
		File:     path,
		Pos:      lint.Position{Line: perr.Line, Column: perr.Col},
	}
}

// filterBySeverity keeps diagnostics at or above threshold.
func filterBySeverity(diags []lint.Diagnostic, threshold lint.Severity) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, d := range diags {
		if d.Severity.AtLeast(threshold) {
			out = append(out, d)
		}
	}
	return out
}

// report renders results and returns ErrLintIssues when anything was
// reported, or the joined per-file errors.
func report(r *output.Renderer, results []lintFileResult, threshold lint.Severity, started time.Time) error {
	var errs []error
	for i := range results {
		results[i].Diagnostics = filterBySeverity(results[i].Diagnostics, threshold)
		if results[i].Err != nil {
			errs = append(errs, results[i].Err)
		}
	}

	hasIssues := renderLintResults(r, results, started)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if hasIssues {
		return ErrLintIssues
	}
	return nil
}

func summarize(results []lintFileResult) output.LintSummary {
	summary := output.LintSummary{FilesAnalyzed: len(results)}
	for _, res := range results {
		summary.TotalIssues += len(res.Diagnostics)
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case lint.SeverityError:
				summary.Errors++
			case lint.SeverityWarning:
				summary.Warnings++
			case lint.SeverityInfo:
				summary.Info++
			case lint.SeverityHint:
				summary.Hints++
			}
		}
	}
	return summary
}

// renderLintResults renders lint results and reports whether any
// diagnostic was found.
func renderLintResults(r *output.Renderer, results []lintFileResult, started time.Time) bool {
	summary := summarize(results)

	if r.EffectiveMode() == output.ModeJSON {
		doc := output.NewLintOutput(started)
		doc.Summary = summary
		for _, res := range results {
			if len(res.Diagnostics) == 0 {
				continue
			}
			fileResult := output.LintFileResult{Path: res.Path}
			for _, d := range res.Diagnostics {
				fileResult.Diagnostics = append(fileResult.Diagnostics, output.LintDiagnostic{
					RuleID:           d.RuleID,
					Symbol:           d.Symbol,
					Severity:         d.Severity.String(),
					Message:          d.Message,
					Line:             d.Pos.Line,
					Column:           d.Pos.Column,
					DocumentationURL: d.DocumentationURL,
				})
			}
			doc.Files = append(doc.Files, fileResult)
		}
		_ = r.JSON(doc)
		return summary.TotalIssues > 0
	}

	styles := r.Styles()
	for _, res := range results {
		if len(res.Diagnostics) == 0 {
			continue
		}
		r.Println(styles.FilePath.Render(res.Path))
		for _, d := range res.Diagnostics {
			loc := "-"
			if d.Pos.IsValid() {
				loc = d.Pos.String()
			}
			r.Printf("  %s  %s  %s  %s\n",
				styles.Muted.Render(fmt.Sprintf("%-7s", loc)),
				severityLabel(r, d.Severity),
				styles.Bold.Render(d.RuleID),
				d.Message,
			)
		}
		r.Println("")
	}

	parts := []string{fmt.Sprintf("%d issues", summary.TotalIssues)}
	if summary.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", summary.Errors))
	}
	if summary.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", summary.Warnings))
	}
	if summary.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", summary.Info))
	}
	if summary.Hints > 0 {
		parts = append(parts, fmt.Sprintf("%d hints", summary.Hints))
	}
	r.Printf("Summary: %s in %d files\n", strings.Join(parts, ", "), summary.FilesAnalyzed)

	return summary.TotalIssues > 0
}

func severityLabel(r *output.Renderer, sev lint.Severity) string {
	switch sev {
	case lint.SeverityError:
		return r.Styles().Error.Render("error  ")
	case lint.SeverityWarning:
		return r.Styles().Warning.Render("warning")
	case lint.SeverityInfo:
		return r.Styles().Info.Render("info   ")
	case lint.SeverityHint:
		return r.Styles().Muted.Render("hint   ")
	default:
		return r.Styles().Muted.Render("unknown")
	}
}

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 200 * time.Millisecond

// watch re-lints scripts under paths as they change, until ctx is done.
func watch(ctx context.Context, cmdCtx *CommandContext, paths []string, run func(context.Context, []string) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range paths {
		if err := watchPath(watcher, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}
	cmdCtx.Renderer.Println(cmdCtx.Renderer.Styles().Muted.Render("Watching for changes. Press Ctrl+C to stop."))

	changed := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
					_ = watchPath(watcher, event.Name)
					continue
				}
			}
			if !strings.HasSuffix(event.Name, ".py") || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			changed[filepath.Clean(event.Name)] = true
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watch error", slog.Any("error", err))
		case <-timer.C:
			files := make([]string, 0, len(changed))
			for f := range changed {
				files = append(files, f)
			}
			clear(changed)
			slices.Sort(files)
			if err := run(ctx, files); err != nil && !errors.Is(err, ErrLintIssues) {
				cmdCtx.Renderer.Error(err.Error())
			}
		}
	}
}

// watchPath adds p, or every searched directory below it, to watcher.
func watchPath(watcher *fsnotify.Watcher, p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(p)
	}
	return filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != p && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
