package session

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the sessions and messages table SQL. Bind it to a pool for
// normal use or to a transaction inside Store.AddMessages so that sequence
// assignment and insertion happen under one lock.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to a pool or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const insertSessionSQL = `INSERT INTO sessions (id, owner_id, title)
	VALUES ($1, $2, $3)
	RETURNING id, owner_id, title, created_at, updated_at`

// InsertSessionParams holds one row for InsertSession. The ID is assigned
// by the application so callers can refer to the session before the insert
// round-trip completes.
type InsertSessionParams struct {
	ID      pgtype.UUID
	OwnerID string
	Title   string
}

// SessionRow is one sessions table row. MessageCount is only populated by
// queries that join against messages; InsertSession leaves it zero, which
// is accurate for a brand new session.
type SessionRow struct {
	ID           pgtype.UUID
	OwnerID      string
	Title        string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
	MessageCount int64
}

// InsertSession creates a session row and returns it.
func (q *Queries) InsertSession(ctx context.Context, arg InsertSessionParams) (SessionRow, error) {
	var r SessionRow
	err := q.db.QueryRow(ctx, insertSessionSQL, arg.ID, arg.OwnerID, arg.Title).
		Scan(&r.ID, &r.OwnerID, &r.Title, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const getSessionSQL = `SELECT s.id, s.owner_id, s.title, s.created_at, s.updated_at,
		COUNT(m.id) AS message_count
	FROM sessions s
	LEFT JOIN messages m ON m.session_id = s.id
	WHERE s.id = $1
	GROUP BY s.id`

// GetSession returns one session with its message count. Missing rows
// surface as pgx.ErrNoRows; the store maps that to ErrNotFound.
func (q *Queries) GetSession(ctx context.Context, id pgtype.UUID) (SessionRow, error) {
	var r SessionRow
	err := q.db.QueryRow(ctx, getSessionSQL, id).
		Scan(&r.ID, &r.OwnerID, &r.Title, &r.CreatedAt, &r.UpdatedAt, &r.MessageCount)
	return r, err
}

const listSessionsSQL = `SELECT s.id, s.owner_id, s.title, s.created_at, s.updated_at,
		COUNT(m.id) AS message_count
	FROM sessions s
	LEFT JOIN messages m ON m.session_id = s.id
	GROUP BY s.id
	ORDER BY s.updated_at DESC
	LIMIT $1 OFFSET $2`

// ListSessionsParams pages through sessions, most recently active first.
type ListSessionsParams struct {
	ResultLimit  int32
	ResultOffset int32
}

// ListSessions returns a page of sessions with message counts.
func (q *Queries) ListSessions(ctx context.Context, arg ListSessionsParams) ([]SessionRow, error) {
	rows, err := q.db.Query(ctx, listSessionsSQL, arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Title, &r.CreatedAt, &r.UpdatedAt, &r.MessageCount); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

const renameSessionSQL = `UPDATE sessions SET title = $2, updated_at = now() WHERE id = $1`

// RenameSessionParams sets a new title on an existing session.
type RenameSessionParams struct {
	ID    pgtype.UUID
	Title string
}

// RenameSession updates the title and reports whether the session existed.
func (q *Queries) RenameSession(ctx context.Context, arg RenameSessionParams) (bool, error) {
	tag, err := q.db.Exec(ctx, renameSessionSQL, arg.ID, arg.Title)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const touchSessionSQL = `UPDATE sessions SET updated_at = now() WHERE id = $1`

// TouchSession bumps updated_at so the session sorts to the top of lists.
// Called after message appends.
func (q *Queries) TouchSession(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, touchSessionSQL, id)
	return err
}

const deleteSessionSQL = `DELETE FROM sessions WHERE id = $1`

// DeleteSession removes a session. Messages go with it through the
// ON DELETE CASCADE constraint. Reports whether the session existed.
func (q *Queries) DeleteSession(ctx context.Context, id pgtype.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, deleteSessionSQL, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const lockSessionSQL = `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`

// LockSession takes a row lock on the session for the duration of the
// surrounding transaction. Concurrent appenders serialize here instead of
// racing on sequence numbers. Outside a transaction the lock is released
// immediately, so this is only meaningful on a Queries bound to a pgx.Tx.
func (q *Queries) LockSession(ctx context.Context, id pgtype.UUID) error {
	var locked pgtype.UUID
	return q.db.QueryRow(ctx, lockSessionSQL, id).Scan(&locked)
}

const maxSequenceSQL = `SELECT COALESCE(MAX(sequence_number), 0)
	FROM messages WHERE session_id = $1`

// MaxSequence returns the highest sequence number in the session, or 0 for
// a session with no messages. COALESCE keeps the empty case a value rather
// than an error.
func (q *Queries) MaxSequence(ctx context.Context, sessionID pgtype.UUID) (int32, error) {
	var max int32
	err := q.db.QueryRow(ctx, maxSequenceSQL, sessionID).Scan(&max)
	return max, err
}

const insertMessageSQL = `INSERT INTO messages (session_id, role, content, sequence_number)
	VALUES ($1, $2, $3, $4)
	RETURNING id`

// InsertMessageParams holds one row for InsertMessage. Content must be a
// JSON array of parts produced by json.Marshal.
type InsertMessageParams struct {
	SessionID      pgtype.UUID
	Role           string
	Content        []byte
	SequenceNumber int32
}

// InsertMessage inserts one message and returns its assigned ID.
func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, insertMessageSQL,
		arg.SessionID, arg.Role, arg.Content, arg.SequenceNumber).Scan(&id)
	return id, err
}

const listMessagesSQL = `SELECT id, session_id, role, content, sequence_number, created_at
	FROM messages
	WHERE session_id = $1
	ORDER BY sequence_number ASC
	LIMIT $2 OFFSET $3`

// ListMessagesParams pages through a session's messages in conversation
// order, oldest first.
type ListMessagesParams struct {
	SessionID    pgtype.UUID
	ResultLimit  int32
	ResultOffset int32
}

// MessageRow is one messages table row with its raw JSONB content.
type MessageRow struct {
	ID             int64
	SessionID      pgtype.UUID
	Role           string
	Content        []byte
	SequenceNumber int32
	CreatedAt      pgtype.Timestamptz
}

// ListMessages returns a page of messages in ascending sequence order.
func (q *Queries) ListMessages(ctx context.Context, arg ListMessagesParams) ([]MessageRow, error) {
	rows, err := q.db.Query(ctx, listMessagesSQL, arg.SessionID, arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessageRows(rows)
}

const tailMessagesSQL = `SELECT id, session_id, role, content, sequence_number, created_at
	FROM (
		SELECT id, session_id, role, content, sequence_number, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY sequence_number DESC
		LIMIT $2
	) latest
	ORDER BY sequence_number ASC`

// TailMessagesParams selects the most recent messages of a session.
type TailMessagesParams struct {
	SessionID   pgtype.UUID
	ResultLimit int32
}

// TailMessages returns the last ResultLimit messages of the session in
// ascending sequence order. Long conversations keep their recent turns
// without loading the whole history.
func (q *Queries) TailMessages(ctx context.Context, arg TailMessagesParams) ([]MessageRow, error) {
	rows, err := q.db.Query(ctx, tailMessagesSQL, arg.SessionID, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessageRows(rows)
}

func collectMessageRows(rows pgx.Rows) ([]MessageRow, error) {
	var results []MessageRow
	for rows.Next() {
		var r MessageRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Role, &r.Content, &r.SequenceNumber, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
