// Package knowledge provides vector document storage and similarity search.
//
// The knowledge package manages chunked text documents in PostgreSQL with
// the pgvector extension. It is the retrieval half of the RAG pipeline:
// ingestion writes embedded chunks in, chat reads ranked context out.
//
// # Overview
//
// The package has two layers:
//
//   - Queries: hand-written SQL against the documents table and the
//     match_documents function
//   - Store: validation, metadata handling and error shaping on top of a
//     Querier interface
//
// The Store deals purely in vectors ([]float32). Turning text into vectors
// belongs to the embedding package; keeping the two apart means this package
// needs a database and nothing else.
//
// # Search Semantics
//
// All ranking happens inside the database in the match_documents function
// installed by the schema migrations:
//
//	similarity = 1 - (embedding <=> query_embedding)   -- cosine distance
//	WHERE metadata @> filter                            -- JSONB containment
//	ORDER BY embedding <=> query_embedding
//	LIMIT match_count                                   -- NULL = no limit
//
// Because the function is the single source of ranking truth, any client of
// the database (including non-Go ones) sees identical results. Similarity is
// 1 for an identical direction and 0 for orthogonal vectors.
//
// Filters are superset matches: a document qualifies when its metadata
// contains every filter pair, extra keys do not matter. WithTopK(0) sends a
// NULL match_count, which the function treats as unlimited.
//
// # Document Metadata
//
// Metadata is an open JSONB object. Ingestion records provenance in it:
//
//	source:       file path or URL the chunk came from
//	file_name:    base name for file sources
//	chunk_index:  position of the chunk within its source
//	total_chunks: number of chunks the source produced
//
// Numbers come back as float64 after the JSONB round trip, which callers
// must expect.
//
// # Schema Contract
//
// The store requires PostgreSQL with pgvector and the migrations from the
// db package applied. EnsureSchema runs them idempotently; production
// startup and the test containers both go through it. The embedding column
// is VECTOR(1536) and Insert rejects any other dimension up front.
//
// # Security Considerations
//
//   - Filter objects reach SQL only as json.Marshal output bound to a
//     query parameter; keys and values are never interpolated into SQL text
//   - All statements are parameterized
//   - DeleteByFilter refuses an empty filter so a bug cannot silently clear
//     the table; DeleteAll exists for that explicitly
//
// # Testing
//
// Store accepts the Querier interface, so unit tests run against a mock
// with no database. Integration tests (build tag "integration") run the
// real schema in a pgvector container and use hand-built basis vectors,
// which makes similarity scores exact without calling an embedding model.
package knowledge
