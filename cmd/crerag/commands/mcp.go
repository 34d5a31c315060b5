package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crerag/internal/mcp"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Run the knowledge base as an MCP (Model Context Protocol) server on stdio,
so LLM agents can query, add and delete documents as tools. When the listings
dataset is configured, portfolio analysis and statistics are offered too.

Logs go to stderr; stdout carries protocol traffic only.`,
		Example: `  crerag mcp

  # claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "crerag": {"command": "crerag", "args": ["mcp"]}
  #   }
  # }`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{stderrLogs: true, withListings: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var analyzer mcp.Analyzer
	if a.analyzer != nil {
		analyzer = a.analyzer
	}
	server := mcp.NewServer(versionInfo.Version, a.kb, analyzer, a.logger)
	a.logger.Info("mcp server starting on stdio", zap.Int("chunks", a.kb.Stats().TotalChunks))

	if err := mcpserver.NewStdioServer(server).Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
