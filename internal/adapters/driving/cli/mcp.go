package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/mcp"
	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so assistants can retrieve
knowledge-base context through the "retrieve" tool.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead, and --watch to rebuild and reload the index
whenever the knowledge directory changes.

Examples:
  # Stdio mode (default)
  kbindex mcp serve

  # HTTP mode with live rebuilds
  kbindex mcp serve --port 8080 --watch

Assistant configuration:
  {
    "mcpServers": {
      "kbindex": {
        "command": "/path/to/kbindex",
        "args": ["mcp", "serve", "--kb", "/path/to/kb"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("watch", false, "rebuild and reload the index when documents change")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	engine, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	// A missing index is not fatal: with --watch the first build loads it,
	// and without it the tool reports the index as not loaded.
	if err := engine.Retriever.Reload(cmd.Context()); err != nil {
		logger.Warn("%v", indexLoadError(err))
	}

	ports := &mcp.Ports{
		Retriever: engine.Retriever,
		History:   historyService,
		DefaultK:  resolveTopK(0),
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	// The watcher stops when the server returns.
	serveCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(serveCtx)
	if watch && engine.Watcher != nil {
		g.Go(func() error {
			return engine.Watcher.Run(ctx, logWatchBuild)
		})
	}
	g.Go(func() error {
		defer cancel()
		if port > 0 {
			addr := fmt.Sprintf(":%d", port)
			fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})
	return g.Wait()
}

// logWatchBuild reports background builds on the log, keeping stdout free
// for the stdio transport.
func logWatchBuild(report *domain.BuildReport, err error) {
	if err != nil {
		logger.Warn("rebuild failed: %v", err)
		return
	}
	logger.Info("rebuilt index: %d documents, %d chunks", report.Documents, report.Chunks)
}
