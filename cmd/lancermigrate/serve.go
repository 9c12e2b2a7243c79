package main

import (
	"context"

	"github.com/spf13/cobra"

	"lancermigrate/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	// stdout carries the protocol, so notifications go to the log
	m, err := a.migrator(nil)
	if err != nil {
		return err
	}

	server := mcp.NewServer(a.db, m, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
