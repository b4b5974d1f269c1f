package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/loadkit/internal/cli"
	"github.com/aretw0/loadkit/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the load controller as an MCP Server over Standard Input/Output.
This allows AI agents to start, wait for and abort loads as tools, and to read the
load journal as a resource.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		logger := cli.NewLogger(cfg, false)

		// stdin carries the protocol, so no cancel keys
		rt, err := cli.NewRuntime(cmd.Context(), cfg, logger, cli.RuntimeOptions{})
		if err != nil {
			return fmt.Errorf("error initializing loadkit: %w", err)
		}
		defer rt.Close()

		if cfg.FileRoot == "" {
			logger.Warn("file loads are disabled, set file_root to enable them")
		}
		srv := mcp.NewServer(rt.Controller, mcp.WithLogger(logger))
		logger.Info("Starting loadkit MCP Server (Stdio)...")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server execution failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
