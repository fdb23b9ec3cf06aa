package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hakulabs/haku/internal/session"
)

// maxListOffset bounds pagination offsets to keep OFFSET scans sane.
const maxListOffset = 100000

// sessionsHandler serves conversation session CRUD.
type sessionsHandler struct {
	store  SessionStore
	logger *slog.Logger
}

func newSessionsHandler(store SessionStore, logger *slog.Logger) *sessionsHandler {
	return &sessionsHandler{store: store, logger: logger}
}

func (h *sessionsHandler) register(mux *http.ServeMux) {
	if h.store == nil {
		h.logger.Warn("session store not configured, session endpoints not registered")
		return
	}
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions/{id}", h.get)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.messages)
	mux.HandleFunc("PATCH /api/sessions/{id}", h.rename)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
}

// sessionItem is the wire form of a session.
type sessionItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int64     `json:"messageCount"`
}

func toSessionItem(s *session.Session) sessionItem {
	return sessionItem{
		ID:           s.ID.String(),
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: s.MessageCount,
	}
}

// messageItem is the wire form of a message. Content is flattened to text;
// the structured parts stay internal.
type messageItem struct {
	ID             int64     `json:"id"`
	Role           string    `json:"role"`
	Text           string    `json:"text"`
	SequenceNumber int32     `json:"sequenceNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}

// list handles GET /api/sessions with limit and offset pagination.
func (h *sessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", int(session.DefaultListLimit), 1, int(session.MaxListLimit))
	offset := parseIntParam(r, "offset", 0, 0, maxListOffset)

	// #nosec G115 -- bounded by MaxListLimit and maxListOffset above
	sessions, err := h.store.Sessions(r.Context(), int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list sessions", h.logger)
		return
	}

	items := make([]sessionItem, len(sessions))
	for i, s := range sessions {
		items[i] = toSessionItem(s)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": items,
		"count":    len(items),
		"limit":    limit,
		"offset":   offset,
	}, h.logger)
}

// createSessionRequest is the body for POST /api/sessions. An empty title
// gets the store's default; overlong titles are truncated, not rejected.
type createSessionRequest struct {
	Title string `json:"title"`
}

// create handles POST /api/sessions.
func (h *sessionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	sess, err := h.store.CreateSession(r.Context(), req.Title)
	if err != nil {
		h.logger.Error("creating session", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create session", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionItem(sess), h.logger)
}

// get handles GET /api/sessions/{id}.
func (h *sessionsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Session(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session does not exist", h.logger)
			return
		}
		h.logger.Error("loading session", "error", err, "sessionId", id)
		writeError(w, http.StatusInternalServerError, "load_failed", "failed to load session", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, toSessionItem(sess), h.logger)
}

// messages handles GET /api/sessions/{id}/messages with pagination.
func (h *sessionsHandler) messages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	limit := parseIntParam(r, "limit", int(session.DefaultListLimit), 1, int(session.MaxListLimit))
	offset := parseIntParam(r, "offset", 0, 0, maxListOffset)

	// #nosec G115 -- bounded by MaxListLimit and maxListOffset above
	msgs, err := h.store.Messages(r.Context(), id, int32(limit), int32(offset))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session does not exist", h.logger)
			return
		}
		h.logger.Error("listing messages", "error", err, "sessionId", id)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list messages", h.logger)
		return
	}

	items := make([]messageItem, len(msgs))
	for i, m := range msgs {
		items[i] = messageItem{
			ID:             m.ID,
			Role:           m.Role,
			Text:           m.Text(),
			SequenceNumber: m.SequenceNumber,
			CreatedAt:      m.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": items,
		"count":    len(items),
		"limit":    limit,
		"offset":   offset,
	}, h.logger)
}

// renameSessionRequest is the body for PATCH /api/sessions/{id}.
type renameSessionRequest struct {
	Title string `json:"title"`
}

// rename handles PATCH /api/sessions/{id}.
func (h *sessionsHandler) rename(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req renameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "missing_title", "title is required", h.logger)
		return
	}

	if err := h.store.Rename(r.Context(), id, req.Title); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session does not exist", h.logger)
			return
		}
		h.logger.Error("renaming session", "error", err, "sessionId", id)
		writeError(w, http.StatusInternalServerError, "rename_failed", "failed to rename session", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// delete handles DELETE /api/sessions/{id}. Messages go with the session.
func (h *sessionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session does not exist", h.logger)
			return
		}
		h.logger.Error("deleting session", "error", err, "sessionId", id)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete session", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessionID parses the {id} path segment, writing a 400 when it is not a
// UUID.
func (h *sessionsHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// parseIntParam parses an integer query parameter with bounds checking.
// Missing or unparseable values select the default; explicit values clamp
// to [min, max].
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
