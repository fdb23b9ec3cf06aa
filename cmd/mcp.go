package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hakulabs/haku/internal/app"
	"github.com/hakulabs/haku/internal/mcp"
)

// runMCP initializes and starts the MCP server on stdio transport.
// stdout carries the protocol, so all logging stays on stderr.
func runMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting mcp server", "version", Version)

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Name:      "haku",
		Version:   Version,
		Assistant: a.Assistant,
		Logger:    slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("creating mcp server: %w", err)
	}

	slog.Info("mcp server ready", "name", "haku", "version", Version, "transport", "stdio")

	if err := mcpServer.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	slog.Info("mcp server shut down")
	return nil
}
