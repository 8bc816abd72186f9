package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"crmbridge/internal/mcp"
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

	// stdout carries the MCP transport; diagnostics go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	svc, err := openServices(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	server := mcp.NewServer(svc.shorthand, svc.nl, svc.assistant, svc.cache, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
