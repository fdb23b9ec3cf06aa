package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/hakulabs/haku/api"
	"github.com/hakulabs/haku/internal/app"
	"github.com/hakulabs/haku/internal/i18n"
	"github.com/hakulabs/haku/internal/security"
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	addr, err := parseServeAddr()
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting http api server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	// File ingestion over HTTP only reaches the server's working
	// directory. Anything else needs the CLI on the host itself.
	files, err := security.NewPath(nil)
	if err != nil {
		return fmt.Errorf("building path validator: %w", err)
	}

	server := api.NewServer(api.Config{
		Pool:           a.Pool,
		Flow:           a.Flow,
		Searcher:       a.Assistant,
		Ingestor:       a.Ingestor,
		Documents:      a.Knowledge,
		Sessions:       a.Sessions,
		Files:          files,
		Logger:         logger,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustProxy:     cfg.TrustProxy,
	})

	fmt.Println(i18n.Sprintf("serve.listening", addr))

	if err := server.Run(ctx, addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
