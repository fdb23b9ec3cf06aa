package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hakulabs/haku/internal/app"
	"github.com/hakulabs/haku/internal/i18n"
	"github.com/hakulabs/haku/internal/knowledge"
)

// previewLimit bounds the content excerpt printed per search hit.
const previewLimit = 120

// runSearch runs a similarity search and prints the ranked matches without
// calling the model.
func runSearch() error {
	searchFlags := flag.NewFlagSet("search", flag.ContinueOnError)
	searchFlags.SetOutput(os.Stderr)

	topK := searchFlags.Int("k", 0, "number of results (0 = configured default)")

	if err := searchFlags.Parse(argsAfterCommand()); err != nil {
		return fmt.Errorf("parsing search flags: %w", err)
	}

	query := strings.TrimSpace(strings.Join(searchFlags.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: haku search [-k N] <query>")
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

	var opts []knowledge.SearchOption
	if *topK > 0 {
		opts = append(opts, knowledge.WithTopK(*topK))
	}

	results, err := a.Assistant.SearchWithScores(ctx, query, opts...)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Println(i18n.T("search.empty"))
		return nil
	}
	printResults(results)
	return nil
}

// printResults prints search hits ranked by similarity, one source line and
// one content excerpt per hit.
func printResults(results []knowledge.Result) {
	for i, r := range results {
		fmt.Printf("%d. [%.2f] %s\n", i+1, r.Similarity, resultSource(r))
		fmt.Printf("   %s\n", excerpt(r.Document.Content, previewLimit))
	}
}

// resultSource labels a hit with its source metadata, falling back to the
// document id.
func resultSource(r knowledge.Result) string {
	if src, ok := r.Document.Metadata["source"].(string); ok && src != "" {
		return src
	}
	return fmt.Sprintf("document %d", r.Document.ID)
}

// excerpt collapses whitespace and truncates s to at most limit runes.
func excerpt(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
