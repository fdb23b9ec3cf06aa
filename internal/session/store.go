package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier defines the database operations Store depends on. The interface
// lives with the consumer so tests can substitute a mock without touching
// the SQL layer; *Queries is the production implementation.
type Querier interface {
	InsertSession(ctx context.Context, arg InsertSessionParams) (SessionRow, error)
	GetSession(ctx context.Context, id pgtype.UUID) (SessionRow, error)
	ListSessions(ctx context.Context, arg ListSessionsParams) ([]SessionRow, error)
	RenameSession(ctx context.Context, arg RenameSessionParams) (bool, error)
	TouchSession(ctx context.Context, id pgtype.UUID) error
	DeleteSession(ctx context.Context, id pgtype.UUID) (bool, error)
	LockSession(ctx context.Context, id pgtype.UUID) error
	MaxSequence(ctx context.Context, sessionID pgtype.UUID) (int32, error)
	InsertMessage(ctx context.Context, arg InsertMessageParams) (int64, error)
	ListMessages(ctx context.Context, arg ListMessagesParams) ([]MessageRow, error)
	TailMessages(ctx context.Context, arg TailMessagesParams) ([]MessageRow, error)
}

// Store manages session persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use. All state lives in PostgreSQL; session
// row locking and transaction isolation handle concurrent access.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// New creates a Store. The pool enables transactional message appends and
// may be nil in unit tests with a mock querier; appends then run without a
// transaction, which is fine for single-threaded tests.
//
// Example (production):
//
//	store := session.New(session.NewQueries(pool), pool, logger)
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		querier: querier,
		pool:    pool,
		logger:  logger,
	}
}

// CreateSession creates a new conversation session. The ID is generated
// here rather than by the database so the caller can persist it as the
// current session immediately. Empty titles are allowed.
func (s *Store) CreateSession(ctx context.Context, title string) (*Session, error) {
	row, err := s.querier.InsertSession(ctx, InsertSessionParams{
		ID:    uuidToPgUUID(uuid.New()),
		Title: NormalizeTitle(title),
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	sess := sessionFromRow(row)
	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return sess, nil
}

// Session retrieves a session by ID. Returns ErrNotFound if it does not
// exist.
func (s *Store) Session(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	row, err := s.querier.GetSession(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
	}
	return sessionFromRow(row), nil
}

// Sessions lists sessions ordered by most recent activity. A non-positive
// limit selects DefaultListLimit.
func (s *Store) Sessions(ctx context.Context, limit, offset int32) ([]*Session, error) {
	limit = normalizeLimit(limit, DefaultListLimit, MaxListLimit)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.querier.ListSessions(ctx, ListSessionsParams{
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, sessionFromRow(row))
	}
	return sessions, nil
}

// Rename sets a new title on an existing session. Returns ErrNotFound if
// the session does not exist.
func (s *Store) Rename(ctx context.Context, sessionID uuid.UUID, title string) error {
	found, err := s.querier.RenameSession(ctx, RenameSessionParams{
		ID:    uuidToPgUUID(sessionID),
		Title: NormalizeTitle(title),
	})
	if err != nil {
		return fmt.Errorf("renaming session %s: %w", sessionID, err)
	}
	if !found {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// DeleteSession deletes a session and all its messages through the cascade
// constraint. Returns ErrNotFound if the session does not exist.
func (s *Store) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	found, err := s.querier.DeleteSession(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if !found {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	s.logger.Debug("deleted session", "id", sessionID)
	return nil
}

// AddMessages appends messages to a session with sequential sequence
// numbers, then bumps the session's updated_at.
//
// With a pool the whole append runs in one transaction that first takes a
// row lock on the session, so concurrent appenders line up instead of
// racing on sequence numbers. Without a pool (mock querier in unit tests)
// the same steps run non-transactionally.
func (s *Store) AddMessages(ctx context.Context, sessionID uuid.UUID, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	if s.pool == nil {
		return s.appendMessages(ctx, s.querier, sessionID, messages)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	txQuerier := NewQueries(tx)
	if err := txQuerier.LockSession(ctx, uuidToPgUUID(sessionID)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return fmt.Errorf("locking session %s: %w", sessionID, err)
	}

	if err := s.appendMessages(ctx, txQuerier, sessionID, messages); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("added messages", "session_id", sessionID, "count", len(messages))
	return nil
}

// appendMessages runs the append steps against the given querier, which is
// either the transaction-bound Queries or the store's own querier.
func (s *Store) appendMessages(ctx context.Context, q Querier, sessionID uuid.UUID, messages []*Message) error {
	maxSeq, err := q.MaxSequence(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		return fmt.Errorf("reading max sequence for session %s: %w", sessionID, err)
	}

	for i, msg := range messages {
		if msg == nil {
			return fmt.Errorf("message %d is nil", i)
		}
		contentJSON, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshaling message %d content: %w", i, err)
		}

		if _, err := q.InsertMessage(ctx, InsertMessageParams{
			SessionID:      uuidToPgUUID(sessionID),
			Role:           msg.Role,
			Content:        contentJSON,
			SequenceNumber: maxSeq + int32(i) + 1,
		}); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if err := q.TouchSession(ctx, uuidToPgUUID(sessionID)); err != nil {
		return fmt.Errorf("updating session %s: %w", sessionID, err)
	}
	return nil
}

// Messages retrieves a page of a session's messages in conversation order,
// oldest first. Rows whose content fails to decode are skipped with a
// warning so one bad row does not hide the rest of the conversation.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Message, error) {
	limit = normalizeLimit(limit, DefaultListLimit, MaxListLimit)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.querier.ListMessages(ctx, ListMessagesParams{
		SessionID:    uuidToPgUUID(sessionID),
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing messages for session %s: %w", sessionID, err)
	}
	return s.decodeMessages(rows), nil
}

// History returns the most recent DefaultHistoryLimit messages of a
// session as Genkit messages, oldest first, ready to seed a model request.
// A session with no messages yields an empty history, not an error.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID) ([]*ai.Message, error) {
	rows, err := s.querier.TailMessages(ctx, TailMessagesParams{
		SessionID:   uuidToPgUUID(sessionID),
		ResultLimit: DefaultHistoryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("loading history for session %s: %w", sessionID, err)
	}

	history := make([]*ai.Message, 0, len(rows))
	for _, msg := range s.decodeMessages(rows) {
		history = append(history, &ai.Message{
			Role:    ai.Role(msg.Role),
			Content: msg.Content,
		})
	}
	return history, nil
}

// AppendMessages persists Genkit messages at the end of a session. This is
// the write half of the chat assistant's session integration; History is
// the read half.
func (s *Store) AppendMessages(ctx context.Context, sessionID uuid.UUID, msgs []*ai.Message) error {
	messages := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		messages = append(messages, &Message{
			SessionID: sessionID,
			Role:      string(msg.Role),
			Content:   msg.Content,
		})
	}
	return s.AddMessages(ctx, sessionID, messages)
}

// ResolveCurrentSession returns the session the terminal chat should
// continue: the one recorded in the local state file if it still exists,
// otherwise a fresh session which becomes the new current one. A stale
// state file (the recorded session was deleted) is silently replaced.
func (s *Store) ResolveCurrentSession(ctx context.Context, baseDir string) (*Session, error) {
	currentID, err := LoadCurrentSessionID(baseDir)
	if err != nil {
		return nil, err
	}

	if currentID != nil {
		sess, err := s.Session(ctx, *currentID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.logger.Debug("current session no longer exists, starting a new one",
			"stale_id", *currentID)
	}

	sess, err := s.CreateSession(ctx, "")
	if err != nil {
		return nil, err
	}
	if err := SaveCurrentSessionID(baseDir, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// decodeMessages converts rows to application messages, dropping rows with
// undecodable content.
func (s *Store) decodeMessages(rows []MessageRow) []*Message {
	messages := make([]*Message, 0, len(rows))
	for _, row := range rows {
		var content []*ai.Part
		if err := json.Unmarshal(row.Content, &content); err != nil {
			s.logger.Warn("skipping message with undecodable content",
				"message_id", row.ID, "error", err)
			continue
		}
		messages = append(messages, &Message{
			ID:             row.ID,
			SessionID:      pgUUIDToUUID(row.SessionID),
			Role:           row.Role,
			Content:        content,
			SequenceNumber: row.SequenceNumber,
			CreatedAt:      row.CreatedAt.Time,
		})
	}
	return messages
}

func sessionFromRow(row SessionRow) *Session {
	return &Session{
		ID:           pgUUIDToUUID(row.ID),
		OwnerID:      row.OwnerID,
		Title:        row.Title,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		MessageCount: row.MessageCount,
	}
}

// uuidToPgUUID converts uuid.UUID to pgtype.UUID.
func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// pgUUIDToUUID converts pgtype.UUID to uuid.UUID.
func pgUUIDToUUID(pgUUID pgtype.UUID) uuid.UUID {
	if !pgUUID.Valid {
		return uuid.Nil
	}
	return pgUUID.Bytes
}
