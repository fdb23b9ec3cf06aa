// Package log provides the logging infrastructure shared by all haku
// components.
//
// Loggers are injected, never global: each component receives a Logger via
// its constructor and scopes it with With("component", ...). Tests use
// NewNop or capture output with NewWithWriter.
//
// Usage:
//
//	logger := log.New(log.Config{Level: slog.LevelDebug})
//	store := knowledge.NewStore(queries, logger.With("component", "knowledge"))
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger. Using the standard library type
// directly keeps full slog compatibility (With, WithGroup, handlers) without
// an interface layer in between.
type Logger = *slog.Logger

// Config defines logger construction options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo.
	Level slog.Level

	// JSON switches output to JSON format. Default: false (text).
	JSON bool

	// AddSource includes source file and line in each record.
	AddSource bool
}

// New creates a logger writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Used by tests to capture
// output in a buffer.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards everything. Test use only; production
// code should always construct a real logger so failures stay observable.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
