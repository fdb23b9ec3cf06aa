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

	"github.com/firebase/genkit/go/ai"

	"github.com/hakulabs/haku/internal/app"
	"github.com/hakulabs/haku/internal/i18n"
	"github.com/hakulabs/haku/internal/knowledge"
)

// runAsk answers a single question and exits. The answer streams to stdout
// as it is generated.
func runAsk() error {
	askFlags := flag.NewFlagSet("ask", flag.ContinueOnError)
	askFlags.SetOutput(os.Stderr)

	topK := askFlags.Int("k", 0, "number of documents to retrieve (0 = configured default)")
	showSources := askFlags.Bool("sources", false, "list the retrieved sources after the answer")

	if err := askFlags.Parse(argsAfterCommand()); err != nil {
		return fmt.Errorf("parsing ask flags: %w", err)
	}

	question := strings.TrimSpace(strings.Join(askFlags.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: haku ask [-k N] [-sources] <question>")
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

	answer, err := a.Assistant.AskStream(ctx, question, printChunk, opts...)
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}
	fmt.Println()

	if *showSources {
		fmt.Println()
		fmt.Println(i18n.T("chat.sources.title"))
		printResults(answer.Sources)
	}
	return nil
}

// printChunk writes each streamed text part to stdout as it arrives.
func printChunk(_ context.Context, chunk *ai.ModelResponseChunk) error {
	for _, part := range chunk.Content {
		if part != nil && part.Text != "" {
			fmt.Print(part.Text)
		}
	}
	return nil
}
