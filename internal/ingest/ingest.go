// Package ingest turns raw sources into stored, searchable document chunks.
//
// Every source follows the same pipeline: read content, split it with the
// recursive character splitter, embed the chunks in order, then insert them
// into the vector store with bookkeeping metadata (chunk_index, total_chunks,
// token_count, plus source information). Embedding failures abort before
// anything is written; per-chunk insert failures are recorded in the Result
// and do not roll back chunks that were already stored.
//
// Sources: raw text (LoadText, AddDocuments), files and directories
// (LoadFile, LoadDirectory), and web pages (LoadURL, LoadSite). Web fetching
// goes through a URLPolicy so requests to private networks never leave the
// process.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/hakulabs/haku/internal/embedding"
	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/security"
)

const defaultFetchTimeout = 30 * time.Second

// Embedder turns chunk texts into vectors, one vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentStore persists embedded chunks.
type DocumentStore interface {
	Insert(ctx context.Context, doc knowledge.Document) (knowledge.Document, error)
}

// Ingestor drives the chunk-embed-store pipeline for all document sources.
type Ingestor struct {
	splitter     *embedding.Splitter
	embedder     Embedder
	store        DocumentStore
	policy       URLPolicy
	client       *http.Client
	logger       *slog.Logger
	fetchTimeout time.Duration
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithSplitter replaces the default splitter (chunk size 1000, overlap 200).
func WithSplitter(s *embedding.Splitter) Option {
	return func(i *Ingestor) { i.splitter = s }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) { i.logger = logger }
}

// WithURLPolicy replaces the default SSRF-protecting fetch policy.
func WithURLPolicy(p URLPolicy) Option {
	return func(i *Ingestor) { i.policy = p }
}

// WithFetchTimeout bounds a single page fetch. Defaults to 30s.
func WithFetchTimeout(d time.Duration) Option {
	return func(i *Ingestor) { i.fetchTimeout = d }
}

// New creates an Ingestor backed by the given embedder and store.
func New(embedder Embedder, store DocumentStore, opts ...Option) (*Ingestor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("ingest: store is required")
	}

	ing := &Ingestor{
		embedder:     embedder,
		store:        store,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(ing)
	}

	if ing.splitter == nil {
		sp, err := embedding.NewSplitter(0, 0)
		if err != nil {
			return nil, err
		}
		ing.splitter = sp
	}
	if ing.logger == nil {
		ing.logger = slog.Default()
	}
	if ing.policy == nil {
		ing.policy = security.NewURL()
	}
	ing.client = ing.policy.SafeClient(ing.fetchTimeout)

	return ing, nil
}

// ChunkError records one chunk that could not be stored.
type ChunkError struct {
	Index int // chunk position within the source text
	Err   error
}

// SourceError records one source (file path or URL) that could not be
// ingested at all.
type SourceError struct {
	Source string
	Err    error
}

// ItemError records one item of a batch that could not be ingested, keyed by
// its position in the input slice.
type ItemError struct {
	Index int
	Err   error
}

// Result reports the outcome of ingesting one source.
type Result struct {
	Source string       // where the content came from
	IDs    []int64      // ids of stored chunks, in chunk order
	Chunks int          // chunks successfully stored, == len(IDs)
	Tokens int          // estimated tokens across stored chunks
	Failed []ChunkError // chunks whose insert failed; stored chunks stay
}

// Err returns nil when every chunk was stored, otherwise a summary of the
// partial failure.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	total := r.Chunks + len(r.Failed)
	return fmt.Errorf("ingest %s: %d of %d chunks failed: %w",
		r.Source, len(r.Failed), total, r.Failed[0].Err)
}

// LoadText splits text into chunks, embeds them, and stores them in chunk
// order. Caller metadata is copied onto every chunk; a "source" key is added
// when the caller did not provide one. Split and embed failures abort before
// any write; insert failures are per-chunk and recorded in the Result.
func (i *Ingestor) LoadText(ctx context.Context, text string, metadata map[string]any) (*Result, error) {
	source := sourceOf(metadata)

	chunks, err := i.splitter.Split(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	res := &Result{Source: source}
	if len(chunks) == 0 {
		return res, nil
	}

	vectors, err := i.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%s: embedder returned %d vectors for %d chunks", source, len(vectors), len(chunks))
	}

	for idx, chunk := range chunks {
		tokens := embedding.CountTokens(chunk)

		md := make(map[string]any, len(metadata)+4)
		maps.Copy(md, metadata)
		if _, ok := md["source"]; !ok {
			md["source"] = source
		}
		md["chunk_index"] = idx
		md["total_chunks"] = len(chunks)
		md["token_count"] = tokens

		doc, err := i.store.Insert(ctx, knowledge.Document{
			Content:   chunk,
			Embedding: vectors[idx],
			Metadata:  md,
		})
		if err != nil {
			i.logger.Warn("chunk insert failed",
				"source", source, "chunk", idx, "error", err)
			res.Failed = append(res.Failed, ChunkError{Index: idx, Err: err})
			continue
		}

		res.IDs = append(res.IDs, doc.ID)
		res.Chunks++
		res.Tokens += tokens
	}

	i.logger.Info("document ingested",
		"source", source, "chunks", res.Chunks, "failed", len(res.Failed), "tokens", res.Tokens)
	return res, nil
}

// BatchResult reports the outcome of a multi-text ingestion.
type BatchResult struct {
	Results []*Result   // one per text that reached the store
	Skipped []ItemError // texts whose split or embed failed entirely
}

// AddDocuments ingests several texts in one call. metadatas may be nil, or
// must have one entry per text. A text whose pipeline fails is skipped and
// recorded; the remaining texts still go through.
func (i *Ingestor) AddDocuments(ctx context.Context, texts []string, metadatas []map[string]any) (*BatchResult, error) {
	if len(metadatas) != 0 && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("ingest: %d metadata entries for %d texts", len(metadatas), len(texts))
	}

	batch := &BatchResult{}
	for idx, text := range texts {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		var md map[string]any
		if len(metadatas) != 0 {
			md = metadatas[idx]
		}

		res, err := i.LoadText(ctx, text, md)
		if err != nil {
			i.logger.Warn("skipping document", "index", idx, "error", err)
			batch.Skipped = append(batch.Skipped, ItemError{Index: idx, Err: err})
			continue
		}
		batch.Results = append(batch.Results, res)
	}
	return batch, nil
}

// sourceOf picks the source label for a text: the caller's metadata entry
// when present, a plain "text" marker otherwise.
func sourceOf(metadata map[string]any) string {
	if s, ok := metadata["source"].(string); ok && s != "" {
		return s
	}
	return "text"
}
