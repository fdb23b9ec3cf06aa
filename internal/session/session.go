package session

import (
	"errors"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// ErrNotFound indicates the requested session does not exist in the database.
var ErrNotFound = errors.New("session not found")

const (
	// TitleMaxLength is the maximum session title length in runes. Longer
	// titles are truncated on write rather than rejected.
	TitleMaxLength = 100

	// DefaultHistoryLimit is the number of most recent messages History
	// loads when rebuilding conversation context.
	DefaultHistoryLimit int32 = 100

	// DefaultListLimit is the page size for Sessions and Messages when the
	// caller passes a non-positive limit.
	DefaultListLimit int32 = 50

	// MaxListLimit caps a single page to keep result sets bounded.
	MaxListLimit int32 = 500
)

// Message roles as stored in the database. These mirror Genkit's role
// strings so persisted messages round-trip through ai.Message unchanged.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Session represents a conversation session (application-level type).
type Session struct {
	ID           uuid.UUID
	OwnerID      string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int64
}

// Message represents a single conversation message (application-level type).
// Content holds Genkit's ai.Part slice, serialized as JSONB in the database.
type Message struct {
	ID             int64
	SessionID      uuid.UUID
	Role           string
	Content        []*ai.Part
	SequenceNumber int32
	CreatedAt      time.Time
}

// Text returns the concatenated text parts of the message content.
// Non-text parts (media, tool requests) are skipped.
func (m *Message) Text() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// NormalizeTitle prepares a title for storage: newlines become spaces,
// surrounding whitespace is trimmed, and anything past TitleMaxLength runes
// is cut off. An empty result is allowed; untitled sessions are valid.
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > TitleMaxLength {
		title = strings.TrimSpace(string(runes[:TitleMaxLength]))
	}
	return title
}

// normalizeLimit clamps a page size to (0, max], substituting def for
// non-positive values.
func normalizeLimit(limit, def, max int32) int32 {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
