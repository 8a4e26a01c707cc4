package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dslint/internal/cli/config"
	"github.com/leapstack-labs/dslint/internal/cli/output"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/lint/rules"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext reads the config and logger the root command stored in
// the context. format, when set, overrides the configured output mode.
func NewCommandContext(cmd *cobra.Command, format string) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	modeName := cfg.OutputFormat
	if format != "" {
		modeName = format
	}
	mode, err := output.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// NewRegistry builds the rule registry wired to the configured data
// environment.
func (c *CommandContext) NewRegistry() (*lint.Registry, error) {
	env, err := c.Cfg.DataEnv(c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure loaders: %w", err)
	}
	return rules.NewRegistry(env)
}
