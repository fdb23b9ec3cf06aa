package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/hakulabs/haku/internal/knowledge"
)

// Input is the ask flow request. SessionID is optional: empty runs a
// one-shot turn with no conversation memory behind the HTTP surface.
type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"`
}

// Source describes one retrieved document in a flow response. Embeddings
// are deliberately left off the wire.
type Source struct {
	ID         int64          `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}

// Output is the ask flow response.
type Output struct {
	Answer    string   `json:"answer"`
	SessionID string   `json:"sessionId,omitempty"`
	Sources   []Source `json:"sources,omitempty"`
}

// StreamChunk is the streaming output type for the ask flow. Each chunk
// carries partial answer text.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the registered name of the ask flow in Genkit.
const FlowName = "haku/ask"

// Flow is the type alias for the ask flow.
// Exported for use in the api package with genkit.Handler().
type Flow = core.Flow[Input, Output, StreamChunk]

// Package-level singleton for Flow to prevent panic on re-registration.
// sync.Once ensures genkit.DefineStreamingFlow is called only once.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the ask flow singleton, initializing it on first call.
// Subsequent calls return the existing flow (parameters are ignored).
// This is safe because genkit.DefineStreamingFlow panics on re-registration.
func NewFlow(g *genkit.Genkit, assistant *Assistant) *Flow {
	flowOnce.Do(func() {
		flow = assistant.DefineFlow(g)
	})
	return flow
}

// ResetFlowForTesting resets the flow singleton so tests can initialize it
// with different configurations. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

// DefineFlow defines the Genkit streaming flow wrapping the assistant.
//
// Use NewFlow() instead of calling DefineFlow() directly: DefineFlow
// registers a global flow and calling it twice panics.
//
// The flow is a thin wrapper over TurnStream/TurnWithSession. It exists for
// observability (DevUI tracing), typed input/output schemas, and HTTP
// exposure via genkit.Handler. Errors wrap the package sentinels so HTTP
// handlers can map them to status codes with errors.Is.
func (a *Assistant) DefineFlow(g *genkit.Genkit) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			// Bridge model chunks to flow chunks when streaming. A nil
			// streamCb (Run instead of Stream) means a non-streaming turn.
			var callback StreamCallback
			if streamCb != nil {
				callback = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					if chunk == nil {
						return nil
					}
					for _, part := range chunk.Content {
						if part.Text != "" {
							if err := streamCb(ctx, StreamChunk{Text: part.Text}); err != nil {
								return err
							}
						}
					}
					return nil
				}
			}

			var ans *Answer
			var err error
			if input.SessionID == "" {
				ans, err = a.TurnStream(ctx, NewState(a.maxHistory), input.Query, callback)
			} else {
				sessionID, parseErr := uuid.Parse(input.SessionID)
				if parseErr != nil {
					return Output{SessionID: input.SessionID}, fmt.Errorf("%w: %w", ErrInvalidSession, parseErr)
				}
				ans, err = a.TurnWithSession(ctx, sessionID, input.Query, callback)
			}
			if err != nil {
				return Output{SessionID: input.SessionID}, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
			}

			return Output{
				Answer:    ans.Text,
				SessionID: input.SessionID,
				Sources:   sourcesFromResults(ans.Sources),
			}, nil
		},
	)
}

// sourcesFromResults converts search results to their wire form.
func sourcesFromResults(results []knowledge.Result) []Source {
	if len(results) == 0 {
		return nil
	}
	out := make([]Source, len(results))
	for i, r := range results {
		out[i] = Source{
			ID:         r.Document.ID,
			Content:    r.Document.Content,
			Metadata:   r.Document.Metadata,
			Similarity: r.Similarity,
		}
	}
	return out
}
