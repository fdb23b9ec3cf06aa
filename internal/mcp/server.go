// Package mcp exposes the assistant over the Model Context Protocol so
// agent hosts (Claude Desktop, IDE agents, the genkit CLI) can use the
// knowledge base as tools.
//
// Two tools are registered:
//
//   - search_documents: semantic similarity search over stored chunks,
//     returned as JSON for the calling model to parse.
//   - ask: one retrieval-augmented answer in plain text. Every call is
//     an independent turn; the MCP client carries its own conversation.
//
// Mistakes the calling model can correct, such as an empty query, come
// back as tool results with IsError set. Backend failures (database
// down, model unreachable) surface as protocol errors instead.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/knowledge"
)

// Tool names as exposed over the protocol.
const (
	ToolSearchDocuments = "search_documents"
	ToolAsk             = "ask"
)

// maxSearchResults caps the per-call result count regardless of what the
// client asks for.
const maxSearchResults = 20

// Assistant is the slice of the chat assistant the MCP tools need.
// *chat.Assistant satisfies it.
type Assistant interface {
	Turn(ctx context.Context, state *chat.State, query string, opts ...knowledge.SearchOption) (*chat.Answer, error)
	SearchWithScores(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Config holds MCP server configuration.
type Config struct {
	Name      string
	Version   string
	Assistant Assistant

	// TopK overrides the assistant's retrieval depth for both tools.
	// Zero keeps the assistant's default. A search_documents call with
	// an explicit k overrides this in turn.
	TopK int

	// Logger for per-call diagnostics. Nil means slog.Default(). With a
	// stdio transport the protocol owns stdout, so the logger must write
	// elsewhere (stderr, a file).
	Logger *slog.Logger
}

// Server wraps the MCP SDK server around the assistant.
type Server struct {
	mcpServer *mcp.Server
	assistant Assistant
	topK      int
	logger    *slog.Logger
}

// NewServer creates an MCP server with both tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		assistant: cfg.Assistant,
		topK:      cfg.TopK,
		logger:    cfg.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves the MCP protocol on the given transport until the context is
// cancelled or the client disconnects. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}
