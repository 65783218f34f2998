package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC.

Use --port to start an HTTP server instead. HTTP mode also serves
Prometheus metrics on /metrics.

Examples:
  # Stdio mode (default)
  bpa mcp serve

  # HTTP mode
  bpa mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "bpa": {
        "command": "/path/to/bpa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	if answerService == nil {
		return notConfigured("answer")
	}

	ports := &mcp.Ports{
		Answer:   answerService,
		Ingest:   ingestService,
		Document: documentService,
		Metrics:  metricsHandler,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
