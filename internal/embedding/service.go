// Package embedding turns text into fixed-width vectors through a Genkit
// embedder, and provides the text chunking the ingestion pipeline uses.
//
// The service guarantees one vector per input text in input order. Inputs
// over the model token limit are split before the remote call and their
// piece vectors merged back into a single token-weighted mean, so callers
// never need to care about provider input limits. Retrieval uses EmbedQuery,
// which refuses oversized input outright because a query that long is a
// caller bug, not a document.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/firebase/genkit/go/ai"
)

// MaxInputTokens is the per-input token limit of text-embedding-3-small
// class models.
const MaxInputTokens = 8191

// embedBatchSize caps how many texts go into a single embed request.
const embedBatchSize = 100

// Service embeds texts through a Genkit embedder.
// It is safe for concurrent use.
type Service struct {
	embedder ai.Embedder
	logger   *slog.Logger

	// maxTokens is the per-input budget; safety re-splits inputs that
	// exceed it. Both are fixed at construction.
	maxTokens int
	safety    *Splitter
}

// NewService creates an embedding service around a Genkit embedder.
func NewService(embedder ai.Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	// The safety splitter only exists for inputs that bypassed the normal
	// ingestion chunker, so it cuts at the token limit with no overlap.
	safety, err := NewSplitter(MaxInputTokens*4, 0)
	if err != nil {
		// Unreachable: constant arguments are always valid.
		panic(err)
	}
	return &Service{
		embedder:  embedder,
		logger:    logger,
		maxTokens: MaxInputTokens,
		safety:    safety,
	}
}

// EmbedTexts embeds a batch of texts and returns exactly one vector per
// input, in input order. Inputs over the token limit are split first and
// their piece vectors merged into a token-weighted mean of unit length.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Segment every input. segmentCounts[i] tells how many consecutive
	// entries of segments belong to input i.
	var segments []string
	segmentCounts := make([]int, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, embeddingErr("embed", fmt.Errorf("text %d: %w", i, ErrEmptyText))
		}
		if CountTokens(text) <= s.maxTokens {
			segments = append(segments, text)
			segmentCounts[i] = 1
			continue
		}

		pieces, err := s.safety.Split(text)
		if err != nil {
			return nil, embeddingErr("embed", fmt.Errorf("splitting text %d: %w", i, err))
		}
		s.logger.Debug("splitting oversized input before embedding",
			"index", i, "tokens", CountTokens(text), "pieces", len(pieces))
		segments = append(segments, pieces...)
		segmentCounts[i] = len(pieces)
	}

	vectors, err := s.embedSegments(ctx, segments)
	if err != nil {
		return nil, err
	}

	// Reassemble one vector per input.
	results := make([][]float32, len(texts))
	pos := 0
	for i, count := range segmentCounts {
		if count == 1 {
			results[i] = vectors[pos]
		} else {
			merged, err := mergeVectors(segments[pos:pos+count], vectors[pos:pos+count])
			if err != nil {
				return nil, embeddingErr("embed", fmt.Errorf("merging pieces of text %d: %w", i, err))
			}
			results[i] = merged
		}
		pos += count
	}

	s.logger.Debug("embedded texts", "inputs", len(texts), "segments", len(segments))
	return results, nil
}

// EmbedQuery embeds a single query string. Unlike EmbedTexts it refuses
// input over the token limit instead of splitting it.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embeddingErr("embed_query", ErrEmptyText)
	}
	if tokens := CountTokens(text); tokens > s.maxTokens {
		return nil, embeddingErr("embed_query",
			fmt.Errorf("%w: %d tokens, limit %d", ErrTextTooLong, tokens, s.maxTokens))
	}

	vectors, err := s.embedSegments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedSegments calls the embedder in batches and returns one vector per
// segment, verifying the provider honored the request size.
func (s *Service) embedSegments(ctx context.Context, segments []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(segments))

	for start := 0; start < len(segments); start += embedBatchSize {
		end := min(start+embedBatchSize, len(segments))
		batch := segments[start:end]

		docs := make([]*ai.Document, len(batch))
		for i, segment := range batch {
			docs[i] = ai.DocumentFromText(segment, nil)
		}

		resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
		if err != nil {
			return nil, embeddingErr("embed", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, embeddingErr("embed",
				fmt.Errorf("embedder returned %d vectors for %d inputs", len(resp.Embeddings), len(batch)))
		}
		for _, e := range resp.Embeddings {
			vectors = append(vectors, e.Embedding)
		}
	}

	return vectors, nil
}

// mergeVectors combines the piece vectors of one split input into a single
// vector: a mean weighted by piece token count, normalized to unit length.
// This keeps the vector comparable to unsplit document vectors under cosine
// similarity.
func mergeVectors(pieces []string, vectors [][]float32) ([]float32, error) {
	dim := len(vectors[0])
	merged := make([]float64, dim)
	totalWeight := 0.0

	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("inconsistent vector widths %d and %d", dim, len(vec))
		}
		// Weight at least 1 so microscopic trailing pieces still count.
		weight := float64(max(CountTokens(pieces[i]), 1))
		totalWeight += weight
		for j, v := range vec {
			merged[j] += weight * float64(v)
		}
	}

	var norm float64
	for j := range merged {
		merged[j] /= totalWeight
		norm += merged[j] * merged[j]
	}
	norm = math.Sqrt(norm)

	result := make([]float32, dim)
	for j, v := range merged {
		if norm > 0 {
			v /= norm
		}
		result[j] = float32(v)
	}
	return result, nil
}
