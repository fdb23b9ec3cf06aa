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
	"github.com/hakulabs/haku/internal/ingest"
)

// runIngest loads documents into the knowledge base. The target is a file,
// a directory, an http(s) URL, or raw text given with -text.
func runIngest() error {
	ingestFlags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestFlags.SetOutput(os.Stderr)

	text := ingestFlags.String("text", "", "ingest the given text instead of a path or URL")
	recursive := ingestFlags.Bool("r", false, "recurse into subdirectories")
	extList := ingestFlags.String("ext", "", "comma-separated file extensions to ingest (default: built-in text types)")
	site := ingestFlags.Bool("site", false, "crawl the whole site instead of the single page")
	depth := ingestFlags.Int("depth", 0, "maximum crawl depth with -site (0 = default)")
	pages := ingestFlags.Int("pages", 0, "maximum page count with -site (0 = default)")

	if err := ingestFlags.Parse(argsAfterCommand()); err != nil {
		return fmt.Errorf("parsing ingest flags: %w", err)
	}

	target := strings.TrimSpace(strings.Join(ingestFlags.Args(), " "))
	if *text == "" && target == "" {
		return fmt.Errorf("usage: haku ingest [flags] <path|url>  or  haku ingest -text <content>")
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

	switch {
	case *text != "":
		res, err := a.Ingestor.LoadText(ctx, *text, nil)
		if err != nil {
			return fmt.Errorf("ingesting text: %w", err)
		}
		reportResult(res)

	case strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://"):
		if *site {
			var opts []ingest.CrawlOption
			if *depth > 0 {
				opts = append(opts, ingest.WithMaxDepth(*depth))
			}
			if *pages > 0 {
				opts = append(opts, ingest.WithMaxPages(*pages))
			}
			sr, err := a.Ingestor.LoadSite(ctx, target, opts...)
			if err != nil {
				return fmt.Errorf("crawling %s: %w", target, err)
			}
			for _, res := range sr.Pages {
				reportResult(res)
			}
			for _, skip := range sr.Skipped {
				fmt.Fprintln(os.Stderr, i18n.Sprintf("ingest.skipped", skip.Source, skip.Err))
			}
		} else {
			res, err := a.Ingestor.LoadURL(ctx, target)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", target, err)
			}
			reportResult(res)
		}

	default:
		info, err := os.Stat(target)
		if err != nil {
			return fmt.Errorf("reading %s: %w", target, err)
		}
		if info.IsDir() {
			var opts []ingest.DirOption
			if *recursive {
				opts = append(opts, ingest.WithRecursive())
			}
			if *extList != "" {
				opts = append(opts, ingest.WithExtensions(strings.Split(*extList, ",")...))
			}
			dr, err := a.Ingestor.LoadDirectory(ctx, target, opts...)
			if err != nil {
				return fmt.Errorf("ingesting directory %s: %w", target, err)
			}
			for _, res := range dr.Results {
				reportResult(res)
			}
			for _, skip := range dr.Skipped {
				fmt.Fprintln(os.Stderr, i18n.Sprintf("ingest.skipped", skip.Source, skip.Err))
			}
		} else {
			res, err := a.Ingestor.LoadFile(ctx, target)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", target, err)
			}
			reportResult(res)
		}
	}
	return nil
}

// reportResult prints one ingestion outcome, with partial chunk failures
// going to stderr.
func reportResult(res *ingest.Result) {
	fmt.Println(i18n.Sprintf("ingest.done", res.Chunks, res.Tokens, res.Source))
	if err := res.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
