package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/hakulabs/haku/db"
	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/config"
	"github.com/hakulabs/haku/internal/embedding"
	"github.com/hakulabs/haku/internal/ingest"
	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/observability"
	"github.com/hakulabs/haku/internal/session"
)

// Setup creates and initializes the application. A nil logger falls back to
// slog.Default. On failure everything already acquired is released before
// the error returns.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup after failed setup", "error", err)
			}
		}
	}()

	// Tracing goes first so Genkit's TracerProvider picks up the exporter
	// and resource identity before any instrumented component exists.
	a.cleanups = append(a.cleanups, provideTracing(ctx, cfg, logger))

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.cleanups = append(a.cleanups, func() {
		pool.Close()
		logger.Debug("database pool closed")
	})

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(knowledge.NewQueries(pool), logger.With("component", "knowledge"))
	a.Embedding = embedding.NewService(embedder, logger.With("component", "embedding"))
	a.Sessions = session.New(session.NewQueries(pool), pool, logger.With("component", "session"))

	splitter, err := embedding.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("building splitter: %w", err)
	}

	ingestOpts := []ingest.Option{
		ingest.WithSplitter(splitter),
		ingest.WithLogger(logger.With("component", "ingest")),
	}
	if cfg.Web.TimeoutMs > 0 {
		ingestOpts = append(ingestOpts,
			ingest.WithFetchTimeout(time.Duration(cfg.Web.TimeoutMs)*time.Millisecond))
	}
	ingestor, err := ingest.New(a.Embedding, a.Knowledge, ingestOpts...)
	if err != nil {
		return nil, fmt.Errorf("building ingestor: %w", err)
	}
	a.Ingestor = ingestor

	assistant, err := chat.New(chat.Config{
		Genkit:       g,
		Embedder:     a.Embedding,
		Store:        a.Knowledge,
		Sessions:     a.Sessions,
		Logger:       logger.With("component", "chat"),
		ModelName:    cfg.FullModelName(),
		Temperature:  float64(cfg.Temperature),
		SystemPrompt: cfg.SystemPrompt,
		TopK:         cfg.TopK,
		MaxHistory:   cfg.MaxHistory,
	})
	if err != nil {
		return nil, fmt.Errorf("building assistant: %w", err)
	}
	a.Assistant = assistant
	a.Flow = chat.NewFlow(g, assistant)

	return a, nil
}

// provideTracing configures trace export and returns its cleanup. Tracing
// failures degrade to a no-op; a broken collector must not block startup.
func provideTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		logger.Warn("tracing setup failed, continuing without export", "error", err)
		return func() {}
	}
	return func() {
		// The shutdown func bounds itself, no extra timeout needed here.
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	// Every connection needs the pgvector codecs registered; the document
	// store binds and scans vector columns on all of them.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Fail fast when the database is unreachable.
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// OpenAI is the default; googleai and ollama are selectable.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no model auto-discovery, register explicitly.
		plugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		plugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("genkit initialized",
			"provider", config.ProviderOllama, "model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		logger.Info("genkit initialized",
			"provider", config.ProviderGoogleAI, "model", cfg.ModelName)

	default:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("genkit initialized",
			"provider", config.ProviderOpenAI, "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Each provider keys embedders differently:
//   - ollama: by server address, registered in provideGenkit
//   - googleai: defined on demand by model name
//   - openai: auto-registered during Init, looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderGoogleAI:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}
