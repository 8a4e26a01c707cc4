package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/lint/rules/data"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "dslint> "
	replContPrompt = "   ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Lint Python statements interactively",
		Long: `Start an interactive session that lints statements as they are typed.

Every statement joins one growing script, so names bound earlier stay
visible: load a dataset, select columns, then call an estimator to see
whether the data meets its preconditions.`,
		Example: `  dslint repl
  dslint> import pandas as pd
  dslint> df = pd.read_csv("train.csv")
  dslint> :bindings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, markdown")
	return cmd
}

func runREPL(cmd *cobra.Command, format string) error {
	cmdCtx, err := NewCommandContext(cmd, format)
	if err != nil {
		return err
	}
	session, err := newREPLSession(cmdCtx)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     replHistoryFile(),
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Println("dslint interactive session")
	r.Println("Type :help for commands, :quit to exit")
	r.Println("")

	ctx := cmd.Context()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := session.handle(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		if session.pending() {
			rl.SetPrompt(replContPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

func replHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "dslint")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

func newREPLCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(":help"),
		readline.PcItem(":bindings"),
		readline.PcItem(":rules"),
		readline.PcItem(":reset"),
		readline.PcItem(":quit"),
		readline.PcItem(":exit"),
	)
}

// replSession feeds statements to one analysis unit.
type replSession struct {
	cmdCtx   *CommandContext
	analyzer *lint.Analyzer
	file     *pyast.File
	unit     *lint.Unit
	buf      strings.Builder
}

func newREPLSession(cmdCtx *CommandContext) (*replSession, error) {
	reg, err := cmdCtx.NewRegistry()
	if err != nil {
		return nil, err
	}
	s := &replSession{
		cmdCtx:   cmdCtx,
		analyzer: lint.NewAnalyzer(reg, cmdCtx.Cfg.LintRuleConfig(), cmdCtx.Logger),
	}
	return s, s.restart()
}

// restart discards every statement and binding.
func (s *replSession) restart() error {
	file, err := pyast.Parse("<stdin>", nil)
	if err != nil {
		return err
	}
	unit, err := s.analyzer.NewUnit(file)
	if err != nil {
		return err
	}
	s.file, s.unit = file, unit
	s.buf.Reset()
	return nil
}

// reset drops a partially typed statement.
func (s *replSession) reset() { s.buf.Reset() }

func (s *replSession) pending() bool { return s.buf.Len() > 0 }

// handle processes one input line. It returns an error only for failures
// that end the session.
func (s *replSession) handle(ctx context.Context, line string) (bool, error) {
	r := s.cmdCtx.Renderer
	trimmed := strings.TrimSpace(line)

	if !s.pending() {
		if trimmed == "" {
			return false, nil
		}
		if strings.HasPrefix(trimmed, ":") {
			return s.command(trimmed)
		}
	}

	s.buf.WriteString(line)
	s.buf.WriteString("\n")
	src := s.buf.String()
	if needsMore(src, trimmed) {
		return false, nil
	}
	s.buf.Reset()

	stmts, err := s.file.Append([]byte(src))
	var perr *pyast.ParseError
	if errors.As(err, &perr) {
		r.Error(perr.Error())
		return false, nil
	}
	if err != nil {
		return false, err
	}

	diags, err := s.unit.Run(ctx, stmts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return true, nil
		}
		r.Error(err.Error())
		return false, nil
	}
	for _, d := range diags {
		r.Printf("%s  %s  %s\n", severityLabel(r, d.Severity), r.Styles().Bold.Render(d.RuleID), d.Message)
	}
	return false, nil
}

// needsMore reports whether src is an unfinished statement: an open
// bracket, or a block that has not been closed by an empty line.
func needsMore(src, lastLine string) bool {
	depth := 0
	var quote rune
	for _, c := range src {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		}
	}
	if depth > 0 {
		return true
	}
	first, _, _ := strings.Cut(src, "\n")
	inBlock := strings.HasSuffix(strings.TrimSpace(first), ":")
	return inBlock && lastLine != ""
}

func (s *replSession) command(line string) (bool, error) {
	r := s.cmdCtx.Renderer
	switch strings.Fields(line)[0] {
	case ":quit", ":exit":
		return true, nil
	case ":help":
		printREPLHelp(r.Writer())
	case ":bindings":
		s.printBindings()
	case ":rules":
		for _, rule := range s.analyzer.Rules() {
			r.Printf("%s  %s\n", r.Styles().Bold.Render(rule.ID), rule.Name)
		}
	case ":reset":
		if err := s.restart(); err != nil {
			return false, err
		}
		r.Success("session cleared")
	default:
		r.Error(fmt.Sprintf("unknown command %s (type :help for commands)", line))
	}
	return false, nil
}

func (s *replSession) printBindings() {
	r := s.cmdCtx.Renderer
	var rows [][]string
	for _, v := range s.unit.Visitors() {
		lister, ok := v.(data.BindingLister)
		if !ok {
			continue
		}
		for _, b := range lister.Bindings() {
			rows = append(rows, []string{
				b.Name,
				b.Source,
				strconv.Itoa(b.Dataset.NumRows()),
				strings.Join(b.Dataset.Columns(), ", "),
				strconv.Itoa(int(b.Pos.Line)),
			})
		}
	}
	if len(rows) == 0 {
		r.Println(r.Styles().Muted.Render("no datasets bound"))
		return
	}
	r.Table([]string{"Name", "Source", "Rows", "Columns", "Line"}, rows)
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  :help       Show this help message
  :bindings   List the names bound to datasets
  :rules      List the enabled rules
  :reset      Forget every statement and binding
  :quit       Exit the session

Tips:
  - Blocks (def, if, for) end with an empty line
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}
