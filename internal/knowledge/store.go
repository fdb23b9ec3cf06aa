package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/hakulabs/haku/db"
)

// searchTimeout bounds a single similarity query so a slow vector scan
// cannot block a chat turn indefinitely.
const searchTimeout = 10 * time.Second

// maxListLimit caps List page sizes.
const maxListLimit = 1000

// Querier defines the database operations the Store needs. The interface
// lives with the consumer, not the provider (like io.Reader or
// http.RoundTripper), so tests can substitute a mock without a database.
// *Queries is the production implementation.
type Querier interface {
	// InsertDocument inserts one chunk and returns its assigned ID
	InsertDocument(ctx context.Context, arg InsertDocumentParams) (int64, error)

	// MatchDocuments performs similarity search via the match_documents function
	MatchDocuments(ctx context.Context, arg MatchDocumentsParams) ([]MatchDocumentsRow, error)

	// CountDocuments counts documents matching a metadata filter
	CountDocuments(ctx context.Context, filter []byte) (int64, error)

	// CountDocumentsAll counts all documents
	CountDocumentsAll(ctx context.Context) (int64, error)

	// ListDocuments pages through documents without embeddings
	ListDocuments(ctx context.Context, arg ListDocumentsParams) ([]ListDocumentsRow, error)

	// DeleteDocuments deletes documents matching a metadata filter
	DeleteDocuments(ctx context.Context, filter []byte) (int64, error)

	// DeleteDocumentByID deletes one document and reports whether it existed
	DeleteDocumentByID(ctx context.Context, id int64) (bool, error)
}

// Store manages document chunks with vector search capabilities.
// It deals purely in vectors; turning text into vectors is the embedding
// package's job, which keeps this package free of model credentials.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries Querier
	logger  *slog.Logger
}

// New creates a new Store instance.
//
// Example (production):
//
//	store := knowledge.New(knowledge.NewQueries(pool), logger)
//
// Example (testing with mock):
//
//	store := knowledge.New(mockQuerier, slog.Default())
func New(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries: querier,
		logger:  logger,
	}
}

// EnsureSchema brings the database schema up to date. It is idempotent:
// running it against an already-migrated database is a no-op, so callers
// may invoke it on every startup.
func EnsureSchema(databaseURL string) error {
	return db.Migrate(databaseURL)
}

// Insert stores one document chunk and returns it with the database-assigned
// ID filled in. The embedding must have exactly VectorDim dimensions; a nil
// metadata map is stored as an empty JSON object so that containment filters
// behave uniformly.
func (s *Store) Insert(ctx context.Context, doc Document) (Document, error) {
	if doc.Content == "" {
		return Document{}, storageErr("insert", ErrEmptyContent)
	}
	if len(doc.Embedding) != VectorDim {
		return Document{}, storageErr("insert",
			fmt.Errorf("%w: got %d dimensions, want %d", ErrDimensionMismatch, len(doc.Embedding), VectorDim))
	}

	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return Document{}, storageErr("insert", fmt.Errorf("marshaling metadata: %w", err))
	}

	id, err := s.queries.InsertDocument(ctx, InsertDocumentParams{
		Content:   doc.Content,
		Metadata:  metadataJSON,
		Embedding: pgvector.NewVector(doc.Embedding),
	})
	if err != nil {
		return Document{}, storageErr("insert", err)
	}

	doc.ID = id
	s.logger.Debug("inserted document", "id", id, "content_length", len(doc.Content))
	return doc, nil
}

// Search returns the documents most similar to the query embedding, ordered
// by similarity descending. Without options it returns DefaultTopK results
// across all documents; WithTopK(0) or a negative value lifts the limit
// entirely, and WithFilter restricts hits to documents whose metadata
// contains every given pair.
//
// Example:
//
//	results, err := store.Search(ctx, queryVec,
//	    knowledge.WithTopK(10),
//	    knowledge.WithFilter("topic", "tekoäly"))
func (s *Store) Search(ctx context.Context, embedding []float32, opts ...SearchOption) ([]Result, error) {
	if len(embedding) != VectorDim {
		return nil, storageErr("search",
			fmt.Errorf("%w: got %d dimensions, want %d", ErrDimensionMismatch, len(embedding), VectorDim))
	}

	cfg := buildSearchConfig(opts)

	// Bound the vector scan so a cold HNSW index cannot block the caller.
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	// SECURITY NOTE (SQL injection prevention):
	// The filter reaches SQL only as a json.Marshal-produced parameter to the
	// match_documents function; filter keys and values are never interpolated
	// into SQL text. Keep it that way.
	filter := cfg.filter
	if filter == nil {
		filter = map[string]any{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, storageErr("search", fmt.Errorf("marshaling filter: %w", err))
	}

	// A non-positive topK becomes SQL NULL: match_documents treats a NULL
	// match_count as "no limit".
	matchCount := pgtype.Int4{}
	if cfg.topK > 0 {
		if cfg.topK > math.MaxInt32 {
			return nil, storageErr("search", fmt.Errorf("top_k %d out of range", cfg.topK))
		}
		matchCount = pgtype.Int4{Int32: int32(cfg.topK), Valid: true}
	}

	rows, err := s.queries.MatchDocuments(queryCtx, MatchDocumentsParams{
		QueryEmbedding: pgvector.NewVector(embedding),
		MatchCount:     matchCount,
		Filter:         filterJSON,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, storageErr("search", fmt.Errorf("similarity query timeout: %w", err))
		}
		return nil, storageErr("search", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the number of documents whose metadata contains the filter.
// A nil or empty filter counts all documents.
func (s *Store) Count(ctx context.Context, filter map[string]any) (int, error) {
	var count int64
	var err error

	if len(filter) > 0 {
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return 0, storageErr("count", fmt.Errorf("marshaling filter: %w", marshalErr))
		}
		count, err = s.queries.CountDocuments(ctx, filterJSON)
	} else {
		count, err = s.queries.CountDocumentsAll(ctx)
	}
	if err != nil {
		return 0, storageErr("count", err)
	}

	// Overflow protection for 32-bit platforms; on 64-bit systems the
	// comparison is always false and compiles away.
	if count > math.MaxInt {
		return 0, storageErr("count", fmt.Errorf("document count %d exceeds platform int capacity", count))
	}

	return int(count), nil
}

// List returns stored documents without their embeddings, newest first.
// limit must be between 1 and 1000; offset pages further back.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 || limit > maxListLimit {
		return nil, storageErr("list", fmt.Errorf("limit must be between 1 and %d, got %d", maxListLimit, limit))
	}
	if offset < 0 {
		return nil, storageErr("list", fmt.Errorf("offset must not be negative, got %d", offset))
	}

	rows, err := s.queries.ListDocuments(ctx, ListDocumentsParams{
		ResultLimit:  int32(limit),
		ResultOffset: int32(offset),
	})
	if err != nil {
		return nil, storageErr("list", err)
	}

	documents := make([]Document, 0, len(rows))
	for _, row := range rows {
		documents = append(documents, Document{
			ID:       row.ID,
			Content:  row.Content,
			Metadata: s.parseMetadata(row.ID, row.Metadata),
		})
	}
	return documents, nil
}

// DeleteByFilter removes every document whose metadata contains the filter
// and returns the number of rows removed. It refuses an empty filter, which
// would match the entire table; use DeleteAll for that.
func (s *Store) DeleteByFilter(ctx context.Context, filter map[string]any) (int64, error) {
	if len(filter) == 0 {
		return 0, storageErr("delete", fmt.Errorf("refusing empty filter, use DeleteAll to clear the store"))
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return 0, storageErr("delete", fmt.Errorf("marshaling filter: %w", err))
	}

	deleted, err := s.queries.DeleteDocuments(ctx, filterJSON)
	if err != nil {
		return 0, storageErr("delete", err)
	}

	s.logger.Debug("deleted documents", "filter", filter, "count", deleted)
	return deleted, nil
}

// DeleteBySource removes every chunk ingested from the given source, such as
// a file path or URL recorded in the source metadata key.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int64, error) {
	if source == "" {
		return 0, storageErr("delete", fmt.Errorf("source must not be empty"))
	}
	return s.DeleteByFilter(ctx, map[string]any{"source": source})
}

// Delete removes a single document by id. It returns ErrNotFound (wrapped in
// a StorageError) when no document has that id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	existed, err := s.queries.DeleteDocumentByID(ctx, id)
	if err != nil {
		return storageErr("delete", err)
	}
	if !existed {
		return storageErr("delete", fmt.Errorf("id %d: %w", id, ErrNotFound))
	}
	s.logger.Debug("deleted document", "id", id)
	return nil
}

// DeleteAll clears the document store.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	deleted, err := s.queries.DeleteDocuments(ctx, []byte(`{}`))
	if err != nil {
		return 0, storageErr("delete", err)
	}
	s.logger.Info("cleared document store", "count", deleted)
	return deleted, nil
}

// rowsToResults converts match_documents rows to Results.
func (s *Store) rowsToResults(rows []MatchDocumentsRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: s.parseMetadata(row.ID, row.Metadata),
			},
			Similarity: row.Similarity,
		})
	}
	return results
}

// parseMetadata unmarshals a stored metadata object, degrading to an empty
// map on malformed data rather than failing the whole result set.
func (s *Store) parseMetadata(id int64, raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "document_id", id, "error", err)
		return map[string]any{}
	}
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
