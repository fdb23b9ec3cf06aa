package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/i18n"
)

// View implements tea.Model.
// Uses AltScreen with a viewport for the scrollable transcript.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	// Viewport (scrollable transcript)
	_, _ = m.viewBuf.WriteString(m.viewport.View())
	_, _ = m.viewBuf.WriteString("\n")

	// Separator above the input
	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Input prompt, always visible so the next question can be typed while
	// an answer streams.
	_, _ = m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
	_, _ = m.viewBuf.WriteString(m.input.View())
	_, _ = m.viewBuf.WriteString("\n")

	// Separator below the input
	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Help bar (keyboard shortcuts)
	_, _ = m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport content from the
// transcript and state. Called whenever either changes.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	// Banner and tips stay at the top of the scrollback.
	_, _ = b.WriteString(m.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	// Transcript (already bounded by addMessage)
	for _, msg := range m.messages {
		switch msg.Role {
		case roleUser:
			_, _ = b.WriteString(m.styles.User.Render(i18n.T("chat.prompt")))
			_, _ = b.WriteString(msg.Text)
		case roleAssistant:
			_, _ = b.WriteString(m.styles.Assistant.Render(i18n.T("chat.assistant")))
			_, _ = b.WriteString(m.markdown.Render(msg.Text))
		case roleSystem:
			_, _ = b.WriteString(m.styles.System.Render(msg.Text))
		case roleError:
			_, _ = b.WriteString(m.styles.Error.Render(i18n.T("chat.error") + msg.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	// Partial answer currently streaming
	if m.state == StateStreaming && m.output.Len() > 0 {
		_, _ = b.WriteString(m.styles.Assistant.Render(i18n.T("chat.assistant")))
		_, _ = b.WriteString(m.output.String())
		_, _ = b.WriteString("\n\n")
	}

	// Waiting for the first chunk
	if m.state == StateThinking {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" ")
		_, _ = b.WriteString(m.styles.System.Render(i18n.T("chat.thinking")))
		_, _ = b.WriteString("\n\n")
	}

	m.viewport.SetContent(b.String())
}

// renderSeparator returns a horizontal line separator.
func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (m *Model) renderStatusBar() string {
	var bindings []key.Binding
	switch m.state {
	case StateInput:
		bindings = []key.Binding{
			m.keys.Submit, m.keys.NewLine, m.keys.History,
			m.keys.Cancel, m.keys.Quit, m.keys.ScrollUp,
		}
	case StateThinking, StateStreaming:
		bindings = []key.Binding{
			m.keys.EscCancel, m.keys.Cancel,
			m.keys.ScrollUp, m.keys.ScrollDown,
		}
	}
	return m.help.ShortHelpView(bindings)
}

// renderSources formats the retrieval behind the most recent answer for the
// /sources command.
func (m *Model) renderSources() string {
	if len(m.lastSources) == 0 {
		return i18n.T("chat.sources.none")
	}

	var b strings.Builder
	_, _ = b.WriteString(i18n.T("chat.sources.title"))
	for i, src := range m.lastSources {
		_, _ = b.WriteString("\n")
		_, _ = b.WriteString(fmt.Sprintf("  %d. [%.2f] %s", i+1, src.Similarity, sourceLabel(src)))
	}
	return b.String()
}

// sourceLabel names a retrieved chunk: the ingest "source" metadata when
// present, otherwise a content preview.
func sourceLabel(src chat.Source) string {
	if name, ok := src.Metadata["source"].(string); ok && name != "" {
		return name
	}
	return preview(src.Content, 80)
}

// preview collapses whitespace and truncates to at most limit runes.
func preview(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
