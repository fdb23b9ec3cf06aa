package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/hakulabs/haku/internal/chat"
)

// askHandler exposes the ask flow over HTTP.
//
// The synchronous endpoint delegates to genkit.Handler, which gives the
// flow's JSON schema and the DevUI the exact same surface. Streaming is a
// hand-rolled SSE loop over Flow.Stream because genkit's handler has no
// event framing of its own.
type askHandler struct {
	flow   *chat.Flow
	logger *slog.Logger
}

func newAskHandler(flow *chat.Flow, logger *slog.Logger) *askHandler {
	return &askHandler{flow: flow, logger: logger}
}

func (h *askHandler) register(mux *http.ServeMux) {
	if h.flow == nil {
		h.logger.Warn("ask flow not configured, ask endpoints not registered")
		return
	}
	mux.Handle("POST /api/ask", genkit.Handler(h.flow))
	mux.HandleFunc("POST /api/ask/stream", h.handleStream)
}

// SSE payloads, one type per event.
type sseChunkData struct {
	Text string `json:"text"`
}

type sseDoneData struct {
	Answer    string        `json:"answer"`
	SessionID string        `json:"sessionId,omitempty"`
	Sources   []chat.Source `json:"sources,omitempty"`
}

type sseErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleStream runs the ask flow and forwards its chunks as Server-Sent
// Events.
//
// Request body: {"query": "...", "sessionId": "..."} with sessionId
// optional; without one the turn runs stateless.
//
// Events:
//   - chunk: {"text": "..."} partial answer text
//   - done:  {"answer": "...", "sessionId": "...", "sources": [...]}
//   - error: {"code": "...", "message": "..."}
//
// The status is always 200: SSE commits headers before the flow can fail,
// so errors travel in-band.
func (h *askHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // keep nginx from buffering the stream

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support streaming")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var input chat.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeSSEError(w, flusher, "invalid_request", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if input.Query == "" {
		h.writeSSEError(w, flusher, "missing_query", "query is required")
		return
	}

	ctx := r.Context()
	h.logger.Info("sse stream started", "sessionId", input.SessionID)

	var final chat.Output
	var streamErr error
	chunks := 0

	for streamValue, err := range h.flow.Stream(ctx, input) {
		// A cancelled request context means the client went away; there
		// is nobody left to write events to.
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "sessionId", input.SessionID)
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}
		if streamValue.Done {
			final = streamValue.Output
			break
		}
		if streamValue.Stream.Text != "" {
			chunks++
			h.writeSSEChunk(w, flusher, streamValue.Stream.Text)
		}
	}

	if streamErr != nil {
		code := "stream_error"
		if errors.Is(streamErr, chat.ErrInvalidSession) {
			code = "invalid_session"
		}
		h.logger.Error("stream failed", "error", streamErr, "sessionId", input.SessionID)
		h.writeSSEError(w, flusher, code, streamErr.Error())
		return
	}

	h.writeSSEDone(w, flusher, final)
	h.logger.Info("sse stream completed",
		"sessionId", final.SessionID,
		"chunks", chunks,
		"answerLen", len(final.Answer))
}

func (h *askHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(sseChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *askHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, out chat.Output) {
	data, _ := json.Marshal(sseDoneData{
		Answer:    out.Answer,
		SessionID: out.SessionID,
		Sources:   out.Sources,
	})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *askHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(sseErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
