package embedding

import (
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunking defaults. One chunk of DefaultChunkSize characters is roughly 250
// tokens, comfortably below any embedding model's input limit.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// defaultSeparators is the split preference order: paragraph breaks first,
// then lines, then words, then anywhere.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// CountTokens approximates the token count of text as one token per four
// characters. It intentionally stays a cheap heuristic; the embedding
// provider does the exact tokenization server-side.
func CountTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// Splitter chunks text recursively by paragraph, line and word boundaries so
// that each chunk stays under a character budget while keeping some overlap
// between neighbors for context continuity.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	inner        textsplitter.RecursiveCharacter
}

// NewSplitter creates a splitter with the given chunk size and overlap in
// characters. Non-positive values fall back to the defaults; the overlap
// must stay below the chunk size.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}

	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(defaultSeparators),
		),
	}, nil
}

// ChunkSize returns the chunk budget in characters.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the overlap between neighboring chunks in characters.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split chunks text. Empty input produces no chunks.
func (s *Splitter) Split(text string) ([]string, error) {
	chunks, err := s.inner.SplitText(text)
	if err != nil {
		return nil, embeddingErr("split", err)
	}
	return chunks, nil
}
