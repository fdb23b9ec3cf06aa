package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hakulabs/haku/internal/app"
	"github.com/hakulabs/haku/internal/i18n"
)

// runSetup prepares the database schema. Migrations run during application
// setup; -sample-data additionally loads the bundled Finnish sample
// documents so a fresh install has something to answer from.
func runSetup() error {
	setupFlags := flag.NewFlagSet("setup", flag.ContinueOnError)
	setupFlags.SetOutput(os.Stderr)

	sampleData := setupFlags.Bool("sample-data", false, "load the bundled sample documents after migrating")

	if err := setupFlags.Parse(argsAfterCommand()); err != nil {
		return fmt.Errorf("parsing setup flags: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	fmt.Println(i18n.T("setup.done"))

	if *sampleData {
		results, err := a.Ingestor.SeedSamples(ctx)
		if err != nil {
			return fmt.Errorf("seeding samples: %w", err)
		}
		for _, res := range results {
			reportResult(res)
		}
		fmt.Println(i18n.T("setup.sample"))
	}
	return nil
}
