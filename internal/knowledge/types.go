package knowledge

const (
	// VectorDim is the embedding dimension the documents schema is fixed to.
	// It matches text-embedding-3-small; changing it requires a migration of
	// the documents table, the match_documents function and the HNSW index.
	VectorDim = 1536

	// DefaultTopK is the number of results Search returns when WithTopK is
	// not given.
	DefaultTopK = 4
)

// Document is one stored chunk of text with its embedding.
// Metadata is an open JSONB object; ingestion writes source bookkeeping
// (source, file_name, chunk_index, ...) into it and search filters match
// against it by containment.
type Document struct {
	ID        int64          // Database-assigned identifier (BIGSERIAL)
	Content   string         // Chunk text
	Metadata  map[string]any // Open metadata object, never nil after load
	Embedding []float32      // len == VectorDim
}

// Result is a single search hit. Similarity is 1 - cosine distance as
// computed by match_documents: 1.0 is an identical direction, 0 orthogonal.
type Result struct {
	Document   Document
	Similarity float64
}

// SearchOption configures Search using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK   int
	filter map[string]any
}

// WithTopK sets the maximum number of results to return.
// Values <= 0 mean no limit (the match_count parameter is sent as NULL).
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter adds one metadata key/value pair to the search filter.
// Multiple calls accumulate; a document matches when its metadata contains
// every filter pair (JSONB @> containment).
func WithFilter(key string, value any) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]any)
		}
		c.filter[key] = value
	}
}

// WithMetadataFilter merges a whole filter object into the search filter.
// Useful when the filter arrives as JSON from an API request.
func WithMetadataFilter(filter map[string]any) SearchOption {
	return func(c *searchConfig) {
		if len(filter) == 0 {
			return
		}
		if c.filter == nil {
			c.filter = make(map[string]any, len(filter))
		}
		for k, v := range filter {
			c.filter[k] = v
		}
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:   DefaultTopK,
		filter: nil,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
