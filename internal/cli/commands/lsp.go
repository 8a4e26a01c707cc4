package commands

import (
	"github.com/leapstack-labs/dslint/internal/lsp"
	"github.com/spf13/cobra"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for IDE integration.

The server communicates over stdin/stdout using JSON-RPC. Open Python
documents are linted on open, change and save; hovering a diagnostic shows
the rule's documentation, and hovering a name bound to a dataset shows its
columns and the statistics computed for it.

Relative data paths are resolved against data_root from the configuration
found in the directory the server starts in.`,
		Example: `  # Start LSP server (usually called by an IDE)
  dslint lsp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd, version)
		},
	}
	return cmd
}

func runLSP(cmd *cobra.Command, version string) error {
	cmdCtx, err := NewCommandContext(cmd, "")
	if err != nil {
		return err
	}
	reg, err := cmdCtx.NewRegistry()
	if err != nil {
		return err
	}

	server := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), lsp.Options{
		Registry: reg,
		Config:   cmdCtx.Cfg.LintRuleConfig(),
		Logger:   cmdCtx.Logger,
		Version:  version,
	})
	return server.Run(cmd.Context())
}
