// Package tui implements the interactive chat terminal built on Bubble Tea.
// It streams answers from the ask flow into a scrollable viewport, keeps an
// input history, and exposes slash commands for inspecting retrieval.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/google/uuid"
	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/i18n"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput     State = iota // Awaiting user input
	StateThinking               // Query sent, waiting for the first chunk
	StateStreaming              // Answer text arriving
)

// Memory bounds to prevent unbounded growth.
const (
	maxMessages = 100 // Maximum messages kept in the transcript
	maxHistory  = 100 // Maximum input history entries
)

// streamTimeout bounds a single question and answer round trip.
const streamTimeout = 5 * time.Minute

// Message role constants for consistent display.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Separator lines above and below the input
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height
)

// Message is one transcript entry.
type Message struct {
	Role string // "user", "assistant", "system", "error"
	Text string
}

// Model is the Bubble Tea model for the chat terminal.
type Model struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time

	// Output
	spinner  spinner.Model
	output   strings.Builder
	viewBuf  strings.Builder // Reusable buffer for View() to reduce allocations
	messages []Message

	// Retrieval behind the most recent answer, shown by /sources.
	lastSources []chat.Source

	// Scrollable transcript viewport
	viewport viewport.Model

	// Help bar for keyboard shortcuts
	help help.Model
	keys keyMap

	// Stream management. A single union channel with discriminated events
	// keeps the select logic flat; Bubble Tea's event loop provides the
	// synchronization, so no WaitGroup is needed.
	streamCancel  context.CancelFunc
	streamEventCh <-chan streamEvent

	// Dependencies
	askFlow   *chat.Flow
	sessionID uuid.UUID
	ctx       context.Context
	ctxCancel context.CancelFunc // Cancels all in-flight work on exit

	// Dimensions
	width  int
	height int

	// Styles
	styles Styles

	// Markdown rendering (nil = graceful degradation to plain text)
	markdown *markdownRenderer
}

// addMessage appends a transcript entry and enforces the maxMessages bound.
func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// New creates a Model bound to the ask flow and a conversation session.
//
// ctx must be the same context passed to tea.WithContext so cancellation
// behaves consistently between the program and the streams it spawns.
func New(ctx context.Context, flow *chat.Flow, sessionID uuid.UUID) (*Model, error) {
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}
	if sessionID == uuid.Nil {
		return nil, errors.New("tui.New: session ID is required")
	}
	if flow == nil {
		return nil, errors.New("tui.New: flow is required")
	}

	// Cancellable context so cleanup on exit reaches every goroutine.
	ctx, cancel := context.WithCancel(ctx)

	// Enter submits, Shift+Enter adds a newline (textarea default).
	ta := textarea.New()
	ta.Placeholder = i18n.T("chat.placeholder")
	ta.SetHeight(1)  // Single line until the user asks for more
	ta.SetWidth(120) // Updated on the first WindowSizeMsg
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	// Minimal input styling: no backgrounds, gray placeholder.
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Viewport with built-in keyboard handling disabled; keys are routed
	// explicitly in handleKey so they never fight with the textarea or
	// history navigation.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	h := help.New()

	return &Model{
		askFlow:   flow,
		sessionID: sessionID,
		ctx:       ctx,
		ctxCancel: cancel,
		input:     ta,
		spinner:   sp,
		viewport:  vp,
		help:      h,
		keys:      newKeyMap(),
		styles:    DefaultStyles(),
		history:   make([]string, 0, maxHistory),
		markdown:  newMarkdownRenderer(80),
		width:     80, // Default until the first WindowSizeMsg arrives
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(),
	)
}
