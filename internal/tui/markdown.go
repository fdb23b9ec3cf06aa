package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer converts Markdown answers to styled terminal output.
// The underlying glamour renderer is cached and only rebuilt when the
// terminal width actually changes.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

func newGlamour(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}

// newMarkdownRenderer creates a renderer wrapped at the given width.
// Returns nil when glamour fails to initialize; a nil renderer degrades
// to plain text instead of breaking the chat.
func newMarkdownRenderer(width int) *markdownRenderer {
	if width <= 0 {
		width = 80
	}
	r, err := newGlamour(width)
	if err != nil {
		return nil
	}
	return &markdownRenderer{renderer: r, width: width}
}

// UpdateWidth rebuilds the renderer for a new terminal width.
// Reports whether the renderer changed. Nil receivers, invalid widths and
// unchanged widths are all no-ops.
func (m *markdownRenderer) UpdateWidth(width int) bool {
	if m == nil || width <= 0 || m.width == width {
		return false
	}
	r, err := newGlamour(width)
	if err != nil {
		return false
	}
	m.renderer = r
	m.width = width
	return true
}

// Render converts Markdown to styled terminal output, falling back to the
// original text when rendering fails.
func (m *markdownRenderer) Render(markdown string) string {
	if m == nil || m.renderer == nil {
		return markdown
	}
	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	// Glamour appends a trailing newline; the view adds its own spacing.
	return strings.TrimSuffix(rendered, "\n")
}
