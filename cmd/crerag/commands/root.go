// Package commands implements the crerag command line.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	outputJSON bool
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crerag",
		Short: "Commercial real-estate knowledge base and assistant",
		Long: `crerag keeps a TF-IDF knowledge base of property documents and answers
questions over it.

Documents are ingested from text, markdown, CSV, JSON, DOCX and PDF files.
Queries that mention size or rent (for example "above 15,000 SF") are
filtered on the figures found in each chunk. The knowledge base is served
over HTTP, as MCP tools for LLM agents, and through a terminal UI.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default ./config.yaml or ~/.config/crerag/config.yaml)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print machine-readable JSON")

	cmd.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAddCmd(),
		NewQueryCmd(),
		NewDocsCmd(),
		NewStatsCmd(),
		NewAnalyzeCmd(),
		NewPortfolioCmd(),
		NewChatCmd(),
		NewTUICmd(),
		NewMCPCmd(),
		NewWatchCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
