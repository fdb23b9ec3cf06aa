package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/log"
	"github.com/hakulabs/haku/internal/testutil"
)

// Validation happens before the flow is touched, so a nil flow is fine for
// these paths.
func TestAskHandler_InvalidInput(t *testing.T) {
	t.Parallel()

	h := newAskHandler(nil, log.NewNop())

	t.Run("missing query", func(t *testing.T) {
		t.Parallel()

		body, _ := json.Marshal(chat.Input{Query: ""})

		req := httptest.NewRequest(http.MethodPost, "/api/ask/stream", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		h.handleStream(w, req)

		// SSE commits 200 before anything can fail
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "missing_query")
		assert.Contains(t, w.Body.String(), "event: error")
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/api/ask/stream", strings.NewReader("not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		h.handleStream(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_request")
		assert.Contains(t, w.Body.String(), "event: error")
	})
}

func TestAskHandler_SSEHeaders(t *testing.T) {
	t.Parallel()

	h := newAskHandler(nil, log.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/ask/stream", strings.NewReader("{}"))
	w := httptest.NewRecorder()

	h.handleStream(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
}

func TestAskHandler_SSEFormat(t *testing.T) {
	t.Parallel()

	h := newAskHandler(nil, log.NewNop())

	body, _ := json.Marshal(chat.Input{Query: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/ask/stream", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.handleStream(w, req)

	events := testutil.ParseSSEEvents(t, w.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)

	var payload sseErrorData
	require.NoError(t, json.Unmarshal([]byte(events[0].Data), &payload))
	assert.Equal(t, "missing_query", payload.Code)
	assert.NotEmpty(t, payload.Message)
}

func TestAskHandler_RegisterRoutes(t *testing.T) {
	t.Parallel()

	t.Run("nil flow does not register routes", func(t *testing.T) {
		t.Parallel()

		h := newAskHandler(nil, log.NewNop())
		mux := http.NewServeMux()
		h.register(mux)

		req := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSSEEventPayloads(t *testing.T) {
	t.Parallel()

	h := newAskHandler(nil, log.NewNop())

	t.Run("chunk", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		h.writeSSEChunk(w, w, "Helsinki on")

		events := testutil.ParseSSEEvents(t, w.Body.String())
		require.Len(t, events, 1)
		assert.Equal(t, "chunk", events[0].Type)
		assert.JSONEq(t, `{"text":"Helsinki on"}`, events[0].Data)
		assert.True(t, w.Flushed)
	})

	t.Run("done carries answer, session and sources", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		h.writeSSEDone(w, w, chat.Output{
			Answer:    "Helsinki on Suomen pääkaupunki.",
			SessionID: "3b241101-e2bb-4255-8caf-4136c566a962",
			Sources: []chat.Source{
				{ID: 7, Content: "Helsinki ...", Similarity: 0.93},
			},
		})

		events := testutil.ParseSSEEvents(t, w.Body.String())
		require.Len(t, events, 1)
		assert.Equal(t, "done", events[0].Type)

		var payload sseDoneData
		require.NoError(t, json.Unmarshal([]byte(events[0].Data), &payload))
		assert.Equal(t, "Helsinki on Suomen pääkaupunki.", payload.Answer)
		assert.Equal(t, "3b241101-e2bb-4255-8caf-4136c566a962", payload.SessionID)
		require.Len(t, payload.Sources, 1)
		assert.Equal(t, int64(7), payload.Sources[0].ID)
	})

	t.Run("done omits empty session and sources", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		h.writeSSEDone(w, w, chat.Output{Answer: "vastaus"})

		events := testutil.ParseSSEEvents(t, w.Body.String())
		require.Len(t, events, 1)
		assert.NotContains(t, events[0].Data, "sessionId")
		assert.NotContains(t, events[0].Data, "sources")
	})
}
