package main

import (
	"github.com/spf13/cobra"

	"github.com/arguewith/arena/internal/mcptools"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve leaderboard and conversation tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcptools.ServeStdio(newClient(cmd), version)
		},
	}
}
