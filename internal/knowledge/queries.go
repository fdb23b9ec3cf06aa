package knowledge

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the interface satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the documents table SQL. Search goes through the
// match_documents function rather than inline SQL so that the ranking
// behavior is identical for every client of the database, including
// non-Go ones.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to a pool or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const insertDocumentSQL = `INSERT INTO documents (content, metadata, embedding)
	VALUES ($1, $2, $3)
	RETURNING id`

// InsertDocumentParams holds one row for InsertDocument.
// Metadata must be a JSON object produced by json.Marshal.
type InsertDocumentParams struct {
	Content   string
	Metadata  []byte
	Embedding pgvector.Vector
}

// InsertDocument inserts one document chunk and returns its assigned ID.
func (q *Queries) InsertDocument(ctx context.Context, arg InsertDocumentParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, insertDocumentSQL, arg.Content, arg.Metadata, arg.Embedding).Scan(&id)
	return id, err
}

const matchDocumentsSQL = `SELECT id, content, metadata, similarity
	FROM match_documents($1, $2, $3)`

// MatchDocumentsParams are the arguments of the match_documents function.
// MatchCount with Valid=false is sent as SQL NULL, which the function
// treats as "no limit". Filter must be a JSON object; filter pairs are
// matched by JSONB containment.
type MatchDocumentsParams struct {
	QueryEmbedding pgvector.Vector
	MatchCount     pgtype.Int4
	Filter         []byte
}

// MatchDocumentsRow is one search hit as returned by match_documents.
type MatchDocumentsRow struct {
	ID         int64
	Content    string
	Metadata   []byte
	Similarity float64
}

// MatchDocuments runs the similarity search function and returns hits in
// descending similarity order.
func (q *Queries) MatchDocuments(ctx context.Context, arg MatchDocumentsParams) ([]MatchDocumentsRow, error) {
	rows, err := q.db.Query(ctx, matchDocumentsSQL, arg.QueryEmbedding, arg.MatchCount, arg.Filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MatchDocumentsRow
	for rows.Next() {
		var r MatchDocumentsRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.Similarity); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

const countDocumentsSQL = `SELECT COUNT(*) FROM documents WHERE metadata @> $1`

// CountDocuments counts documents whose metadata contains the filter object.
func (q *Queries) CountDocuments(ctx context.Context, filter []byte) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countDocumentsSQL, filter).Scan(&count)
	return count, err
}

const countDocumentsAllSQL = `SELECT COUNT(*) FROM documents`

// CountDocumentsAll counts every stored document.
func (q *Queries) CountDocumentsAll(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countDocumentsAllSQL).Scan(&count)
	return count, err
}

const listDocumentsSQL = `SELECT id, content, metadata FROM documents
	ORDER BY id DESC
	LIMIT $1 OFFSET $2`

// ListDocumentsParams pages through stored documents, newest first.
type ListDocumentsParams struct {
	ResultLimit  int32
	ResultOffset int32
}

// ListDocumentsRow is one stored document without its embedding.
type ListDocumentsRow struct {
	ID       int64
	Content  string
	Metadata []byte
}

// ListDocuments returns stored documents without embeddings, newest first.
func (q *Queries) ListDocuments(ctx context.Context, arg ListDocumentsParams) ([]ListDocumentsRow, error) {
	rows, err := q.db.Query(ctx, listDocumentsSQL, arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ListDocumentsRow
	for rows.Next() {
		var r ListDocumentsRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

const deleteDocumentsSQL = `DELETE FROM documents WHERE metadata @> $1`

// DeleteDocuments removes every document whose metadata contains the filter
// object and returns the number of rows deleted. An empty filter object
// matches everything; callers guard against that.
func (q *Queries) DeleteDocuments(ctx context.Context, filter []byte) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDocumentsSQL, filter)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteDocumentByIDSQL = `DELETE FROM documents WHERE id = $1`

// DeleteDocumentByID removes a single document and reports whether a row
// existed with that id.
func (q *Queries) DeleteDocumentByID(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, deleteDocumentByIDSQL, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
