package main

import (
	"context"

	"github.com/spf13/cobra"

	"docexport/internal/config"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve export tools over MCP on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; logs must stay off it.
		a, _, _, err := setup(cmd, func(c *config.Config) { c.Log.Output = "stderr" })
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())
		return a.ServeMCP(Version)
	},
}
