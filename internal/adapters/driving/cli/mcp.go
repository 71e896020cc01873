package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the ingest, search and
answer tools and the raggy://documents resources.

By default the server speaks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.

Tool calls are rate limited using server.rate_limit_rps and
server.rate_limit_burst; --rps and --burst override them.

Examples:
  # Stdio mode
  raggy mcp serve

  # HTTP mode
  raggy mcp serve --port 8080`,
	RunE: runMCPServe,
}

var (
	mcpPort     int
	mcpRPS      float64
	mcpBurst    int
	mcpReadOnly bool
)

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Float64Var(&mcpRPS, "rps", -1, "tool calls per second (0 disables, default from settings)")
	mcpServeCmd.Flags().IntVar(&mcpBurst, "burst", -1, "rate limit burst (default from settings)")
	mcpServeCmd.Flags().BoolVar(&mcpReadOnly, "read-only", false, "do not expose the ingest tool")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	rps, burst := settings.Server.RateLimitRPS, settings.Server.RateLimitBurst
	if mcpRPS >= 0 {
		rps = mcpRPS
	}
	if mcpBurst >= 0 {
		burst = mcpBurst
	}

	ports := &mcp.Ports{
		Search:   searchService,
		Answer:   answerService,
		Document: documentService,
	}
	if !mcpReadOnly {
		ports.Ingest = ingestService
	}

	server, err := mcp.NewServer(ports, mcp.WithRateLimit(rps, burst))
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := fmt.Sprintf(":%d", mcpPort)
		cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
