package tui

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/hakulabs/haku/internal/chat"
)

// streamBufferSize absorbs chunk bursts during UI render delays while
// keeping memory bounded (100 strings is roughly 10KB of typical text).
const streamBufferSize = 100

// streamEvent is a discriminated union for all stream events. Exactly one
// field is set per event; a single channel keeps the listener select-free.
type streamEvent struct {
	text   string      // Text chunk (when non-empty)
	output chat.Output // Final output (when done is true)
	err    error       // Error (when non-nil)
	done   bool        // True when the stream completed successfully
}

// Stream message types for Bubble Tea.
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamTextMsg struct {
	text string
}

type streamDoneMsg struct {
	output chat.Output
}

type streamErrorMsg struct {
	err error
}

// startStream creates a command that runs the ask flow for one question.
//
// The spawned goroutine exits when the stream completes, the context is
// canceled, or an error occurs. Channel closure signals completion.
func (m *Model) startStream(query string) tea.Cmd {
	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)

		// Timeout so a stuck model call cannot hang the UI forever.
		ctx, cancel := context.WithTimeout(m.ctx, streamTimeout)

		go func() {
			defer cancel()
			// Channel closure signals goroutine completion.
			defer close(eventCh)

			// A panic in the flow must not lock up the terminal.
			defer func() {
				if r := recover(); r != nil {
					select {
					case eventCh <- streamEvent{err: fmt.Errorf("stream panic: %v", r)}:
					default:
					}
				}
			}()

			var chunkCount int

			for value, err := range m.askFlow.Stream(ctx, chat.Input{
				Query:     query,
				SessionID: m.sessionID.String(),
			}) {
				if err != nil {
					select {
					case eventCh <- streamEvent{err: fmt.Errorf("chunk %d: %w", chunkCount, err)}:
					case <-ctx.Done():
					}
					return
				}

				if value.Done {
					select {
					case eventCh <- streamEvent{done: true, output: value.Output}:
					case <-ctx.Done():
					}
					return
				}

				if value.Stream.Text != "" {
					chunkCount++
					select {
					case eventCh <- streamEvent{text: value.Stream.Text}:
					case <-ctx.Done():
						return
					}
				}
			}

			// The iterator can exit without a Done value when the context is
			// canceled or the flow yields nothing. Always signal so the UI
			// never waits forever.
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("stream ended without completion signal")
			}
			select {
			case eventCh <- streamEvent{err: err}:
			default:
			}
		}()

		return streamStartedMsg{
			eventCh: eventCh,
			cancel:  cancel,
		}
	}
}

// listenForStream creates a command that waits for the next stream event.
// Empty events are skipped with a loop instead of recursion so pathological
// input cannot overflow the stack.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		for {
			event, ok := <-eventCh
			if !ok {
				return streamErrorMsg{err: fmt.Errorf("stream ended without completion signal")}
			}

			switch {
			case event.err != nil:
				return streamErrorMsg{err: event.err}
			case event.done:
				return streamDoneMsg{output: event.output}
			case event.text != "":
				return streamTextMsg{text: event.text}
			default:
				continue
			}
		}
	}
}
