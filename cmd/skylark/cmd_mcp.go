package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	skylarkmcp "github.com/vidhaanviswas/skylark-drone-coordinator/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  query_pilots, get_pilot_details, update_pilot_status
  query_drones, get_drone_details, update_drone_status
  get_available_missions, get_mission_details
  assign_pilot_to_mission, assign_drone_to_mission
  check_conflicts, detect_all_conflicts
  find_replacement_pilot, reassign_mission

If the store cannot be opened the server still starts; every tool call
returns an MCP error result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			var srv *skylarkmcp.Server
			st, storeErr := newStore(logger)
			if storeErr != nil {
				logger.Error("mcp: failed to open store; tool calls will fail", "error", storeErr)
				srv = skylarkmcp.NewServer(nil, logger)
			} else {
				defer func() { _ = st.Close() }()
				srv = skylarkmcp.NewServer(newCoordinator(st, logger), logger)
			}

			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: skylark MCP server starting", "transport", "stdio", "backend", cfg.Store.Backend)

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
