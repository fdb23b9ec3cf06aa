package tui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/hakulabs/haku/internal/i18n"
)

// Finnish flag blue, used for the banner and headers.
const finnishBlue = "#003580"

// HAKU ASCII art (filled block style).
var hakuArt = []string{
	"    ██╗  ██╗ █████╗ ██╗  ██╗██╗   ██╗",
	"    ██║  ██║██╔══██╗██║ ██╔╝██║   ██║",
	"    ███████║███████║█████╔╝ ██║   ██║",
	"    ██╔══██║██╔══██║██╔═██╗ ██║   ██║",
	"    ██║  ██║██║  ██║██║  ██╗╚██████╔╝",
	"    ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝ ",
}

// Arrow ASCII art (large ">" shape), rendered to the left of the name.
var arrowArt = []string{
	"  ██  ",
	"   ██ ",
	"    ██",
	"   ██ ",
	"  ██  ",
	"      ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(finnishBlue)),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(finnishBlue)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the HAKU ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for i := range hakuArt {
		_, _ = b.WriteString(s.Banner.Render(arrowArt[i]))
		_, _ = b.WriteString(s.Banner.Render(hakuArt[i]))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTipKeys lists the translation keys for the tips shown under the
// banner, in display order.
var welcomeTipKeys = []string{
	"tips.title",
	"tips.ask",
	"tips.help",
	"tips.quit",
	"tips.history",
}

// RenderWelcomeTips returns the localized getting-started tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, key := range welcomeTipKeys {
		_, _ = b.WriteString(s.Tips.Render(i18n.T(key)))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
