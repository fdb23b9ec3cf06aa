// Package cmd implements the haku command line interface.
//
// Commands:
//   - chat: interactive terminal chat with Bubble Tea TUI
//   - ask: one-shot question, streamed answer on stdout
//   - ingest: load files, directories, URLs or raw text into the knowledge base
//   - search: similarity search without generation
//   - sessions: list and manage stored conversations
//   - serve: HTTP API server with SSE streaming
//   - mcp: Model Context Protocol server for editor integration
//   - setup: prepare the database schema, optionally with sample documents
//
// Signal handling and graceful shutdown are implemented for all commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hakulabs/haku/internal/config"
	"github.com/hakulabs/haku/internal/i18n"
	"github.com/hakulabs/haku/internal/log"
)

// Execute is the main entry point for the haku CLI application.
func Execute() error {
	// Initialize logger once at entry point. Logs go to stderr so stdout
	// stays clean for command output and the MCP stdio transport.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "chat":
		return runChat()
	case "ask":
		return runAsk()
	case "ingest":
		return runIngest()
	case "search":
		return runSearch()
	case "sessions":
		return runSessions()
	case "serve":
		return runServe()
	case "mcp":
		return runMCP()
	case "setup":
		return runSetup()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// loadConfig loads configuration and switches user-facing strings to the
// configured language.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	i18n.Init(cfg.Lang)
	return cfg, nil
}

// argsAfterCommand returns the arguments following the subcommand name,
// or nil when there are none.
func argsAfterCommand() []string {
	if len(os.Args) > 2 {
		return os.Args[2:]
	}
	return nil
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println(i18n.T("help.text"))
}
