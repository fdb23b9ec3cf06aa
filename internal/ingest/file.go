package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFileSize caps a single ingested file. Anything larger is almost
// certainly not prose worth embedding.
const maxFileSize = 10 * 1024 * 1024

// File ingestion failures callers may want to match on.
var (
	ErrFileTooLarge = errors.New("file exceeds size limit")
	ErrNotUTF8      = errors.New("file is not valid UTF-8 text")
)

// defaultExtensions are the file types LoadDirectory picks up unless
// WithExtensions overrides them.
var defaultExtensions = []string{".txt", ".md"}

// LoadFile reads one text file and ingests it through the text pipeline.
// The stored chunks carry source (the path as given), file_name, and
// file_type (extension without the dot) metadata.
func (i *Ingestor) LoadFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", path, ErrFileTooLarge, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotUTF8)
	}

	metadata := map[string]any{
		"source":    path,
		"file_name": filepath.Base(path),
		"file_type": strings.TrimPrefix(filepath.Ext(path), "."),
	}
	return i.LoadText(ctx, string(data), metadata)
}

// DirectoryResult reports the outcome of a directory ingestion.
type DirectoryResult struct {
	Results []*Result     // one per ingested file
	Skipped []SourceError // files that could not be read or ingested
}

// dirConfig holds directory traversal configuration.
type dirConfig struct {
	recursive  bool
	extensions map[string]struct{}
}

// DirOption configures LoadDirectory.
type DirOption func(*dirConfig)

// WithRecursive descends into subdirectories. The default is to ingest only
// the directory's immediate files.
func WithRecursive() DirOption {
	return func(c *dirConfig) { c.recursive = true }
}

// WithExtensions replaces the default extension filter (.txt, .md).
// Extensions are matched case-insensitively, with or without a leading dot.
func WithExtensions(exts ...string) DirOption {
	return func(c *dirConfig) { c.extensions = extensionSet(exts) }
}

// LoadDirectory ingests every matching file in dir. A file that fails to
// read or ingest is skipped and recorded; it does not abort the rest of the
// batch. Only context cancellation and directory-level errors abort.
func (i *Ingestor) LoadDirectory(ctx context.Context, dir string, opts ...DirOption) (*DirectoryResult, error) {
	cfg := dirConfig{extensions: extensionSet(defaultExtensions)}
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	out := &DirectoryResult{}

	if cfg.recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				out.Skipped = append(out.Skipped, SourceError{Source: path, Err: err})
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				return nil
			}
			i.ingestDirectoryFile(ctx, path, &cfg, out)
			return nil
		})
		if err != nil {
			return out, err
		}
		return out, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if entry.IsDir() {
			continue
		}
		i.ingestDirectoryFile(ctx, filepath.Join(dir, entry.Name()), &cfg, out)
	}
	return out, nil
}

func (i *Ingestor) ingestDirectoryFile(ctx context.Context, path string, cfg *dirConfig, out *DirectoryResult) {
	if _, ok := cfg.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return
	}

	res, err := i.LoadFile(ctx, path)
	if err != nil {
		i.logger.Warn("skipping file", "path", path, "error", err)
		out.Skipped = append(out.Skipped, SourceError{Source: path, Err: err})
		return
	}
	out.Results = append(out.Results, res)
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
