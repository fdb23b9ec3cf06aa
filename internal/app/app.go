// Package app assembles the application from its parts.
//
// Setup wires configuration into concrete components in dependency order:
// tracing first, then the PostgreSQL pool (migrated, tuned, pgvector-aware),
// then the Genkit instance for the configured provider, and finally the
// document, embedding, ingestion, session and chat services on top. Every
// entry point starts with Setup and ends with Close; the CLI commands, the
// HTTP server and the MCP server all share this one wiring path.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/config"
	"github.com/hakulabs/haku/internal/embedding"
	"github.com/hakulabs/haku/internal/ingest"
	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/session"
)

// App holds every initialized component. Fields are set by Setup and stay
// valid until Close.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Knowledge *knowledge.Store
	Embedding *embedding.Service
	Ingestor  *ingest.Ingestor
	Sessions  *session.Store
	Assistant *chat.Assistant
	Flow      *chat.Flow

	logger *slog.Logger

	// cleanups run in reverse registration order on Close.
	cleanups []func()
}

// Close releases everything Setup acquired, in reverse acquisition order.
// Safe to call on a partially initialized App and after a previous Close.
func (a *App) Close() error {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
	return nil
}

