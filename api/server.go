// Package api provides the JSON REST API server for haku.
//
// # Architecture
//
// Routing uses Go 1.22+ method patterns on a plain ServeMux behind a small
// middleware stack:
//
//	Recovery → Logging → RateLimit → Routes
//
// Health probes skip the rate limiter inside the middleware so orchestrator
// checks are never throttled.
//
// # Endpoints
//
// Health probes:
//   - GET /healthz: liveness, returns "ok"
//   - GET /readyz: readiness, pings the database
//
// Ask:
//   - POST /api/ask: run the ask flow, JSON in/out (genkit.Handler)
//   - POST /api/ask/stream: same flow over Server-Sent Events
//
// Documents:
//   - POST /api/documents: ingest raw text or a URL
//   - POST /api/documents/file: ingest a local file by path
//   - DELETE /api/documents/{id}: remove a stored chunk
//   - GET /api/search: raw similarity search
//
// Sessions:
//   - POST /api/sessions: create
//   - GET /api/sessions: list
//   - GET /api/sessions/{id}: get one
//   - GET /api/sessions/{id}/messages: page through messages
//   - PATCH /api/sessions/{id}: rename
//   - DELETE /api/sessions/{id}: delete with messages
//
// # Errors
//
// Error responses are {"error": "<code>", "message": "..."} with lower_snake
// codes. During SSE streaming errors arrive as "event: error" payloads since
// the response status is already committed.
//
// Handlers whose dependencies are nil stay unregistered; the probe routes
// are always present. That lets a degraded deployment (say, no files root
// configured) serve the rest of the API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/ingest"
	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/security"
	"github.com/hakulabs/haku/internal/session"
)

const (
	// DefaultAddr is the default listen address. Loopback only: exposing
	// the API beyond localhost is an explicit configuration decision.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to shut out slowloris clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. SSE
	// streams live within this bound too.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the keep-alive limit between requests.
	IdleTimeout = 120 * time.Second
)

// Searcher runs raw similarity search for the search endpoint.
// chat.Assistant is the production implementation.
type Searcher interface {
	SearchWithScores(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Ingestor feeds new content into the knowledge base.
// ingest.Ingestor is the production implementation.
type Ingestor interface {
	LoadText(ctx context.Context, text string, metadata map[string]any) (*ingest.Result, error)
	LoadFile(ctx context.Context, path string) (*ingest.Result, error)
	LoadURL(ctx context.Context, rawURL string) (*ingest.Result, error)
}

// DocumentStore covers the direct document operations the API exposes.
// knowledge.Store is the production implementation.
type DocumentStore interface {
	Delete(ctx context.Context, id int64) error
}

// SessionStore covers the session CRUD the API exposes.
// session.Store is the production implementation.
type SessionStore interface {
	CreateSession(ctx context.Context, title string) (*session.Session, error)
	Session(ctx context.Context, sessionID uuid.UUID) (*session.Session, error)
	Sessions(ctx context.Context, limit, offset int32) ([]*session.Session, error)
	Rename(ctx context.Context, sessionID uuid.UUID, title string) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*session.Message, error)
}

// Config carries the server's dependencies and limits. Logger is required;
// every other dependency is optional and gates its routes.
type Config struct {
	Pool      *pgxpool.Pool
	Flow      *chat.Flow
	Searcher  Searcher
	Ingestor  Ingestor
	Documents DocumentStore
	Sessions  SessionStore

	// Files validates paths for file ingestion. Nil disables
	// POST /api/documents/file.
	Files *security.Path

	Logger *slog.Logger

	// RateLimitRPS and RateLimitBurst shape the per-IP token bucket.
	// Zero values select 10 req/s with a burst of 20.
	RateLimitRPS   float64
	RateLimitBurst int

	// TrustProxy enables client IP extraction from X-Real-IP and
	// X-Forwarded-For. Leave false unless a reverse proxy sets them.
	TrustProxy bool
}

// Server is the haku REST API server.
type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	limiter *rateLimiter

	trustProxy bool
}

// NewServer builds a server and registers every route its config supports.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:        mux,
		logger:     logger,
		limiter:    newRateLimiter(rps, burst),
		trustProxy: cfg.TrustProxy,
	}

	newHealthHandler(cfg.Pool, logger).register(mux)
	newAskHandler(cfg.Flow, logger).register(mux)
	newDocumentsHandler(cfg.Ingestor, cfg.Documents, cfg.Searcher, cfg.Files, logger).register(mux)
	newSessionsHandler(cfg.Sessions, logger).register(mux)

	return s
}

// Handler returns the mux wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		rateLimitMiddleware(s.limiter, s.trustProxy, s.logger),
	)
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails. Cancellation triggers graceful shutdown bounded by
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
