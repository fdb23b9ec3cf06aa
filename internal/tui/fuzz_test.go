package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hakulabs/haku/internal/chat"
)

// FuzzModel_HandleSlashCommand exercises slash command handling with
// arbitrary input.
func FuzzModel_HandleSlashCommand(f *testing.F) {
	f.Add("/help")
	f.Add("/clear")
	f.Add("/sources")
	f.Add("/exit")
	f.Add("/quit")
	f.Add("/unknown")
	f.Add("/")
	f.Add("//")
	f.Add("/a")
	f.Add("/komento jossa on välilyöntejä")
	f.Add("/komento\tsarkaimilla")
	f.Add("/komento\nrivinvaihdoilla")

	f.Fuzz(func(t *testing.T, cmd string) {
		if !strings.HasPrefix(cmd, "/") {
			return
		}

		m := newTestModel()
		m.messages = []Message{{Role: roleUser, Text: "hei"}}
		m.lastSources = []chat.Source{{ID: 1, Content: "sisältö"}}

		// Must never panic.
		model, resultCmd := m.handleSlashCommand(cmd)
		result := model.(*Model)

		if result == nil {
			t.Fatal("Result should not be nil")
		}

		if cmd == cmdExit || cmd == cmdQuit {
			if resultCmd == nil {
				t.Error("Exit command should return quit command")
			}
		}

		if cmd == cmdClear {
			if len(result.messages) != 0 {
				t.Error("/clear should clear the transcript")
			}
			if result.lastSources != nil {
				t.Error("/clear should drop remembered sources")
			}
		}
	})
}

// FuzzModel_NavigateHistory exercises history navigation with arbitrary
// deltas.
func FuzzModel_NavigateHistory(f *testing.F) {
	f.Add(0)
	f.Add(1)
	f.Add(-1)
	f.Add(100)
	f.Add(-100)
	f.Add(1000000)
	f.Add(-1000000)

	f.Fuzz(func(t *testing.T, delta int) {
		m := newTestModel()
		m.history = []string{"first", "second", "third"}
		m.historyIdx = 1

		model, _ := m.navigateHistory(delta)
		result := model.(*Model)

		if result.historyIdx < 0 {
			t.Errorf("History index should not be negative: %d", result.historyIdx)
		}
		if result.historyIdx > len(result.history) {
			t.Errorf("History index %d exceeds history length %d", result.historyIdx, len(result.history))
		}
	})
}

// FuzzModel_AddMessage exercises transcript growth with arbitrary content.
func FuzzModel_AddMessage(f *testing.F) {
	f.Add(roleUser, "hei")
	f.Add(roleAssistant, "hei vaan")
	f.Add(roleSystem, "viesti")
	f.Add(roleError, "jotain meni pieleen")
	f.Add("", "")
	f.Add("unknown_role", "test")
	f.Add(roleUser, strings.Repeat("a", 10000))
	f.Add(roleUser, "rivi1\nrivi2\nrivi3")
	f.Add(roleUser, "\x00\x01\x02")

	f.Fuzz(func(t *testing.T, role, text string) {
		m := newTestModel()

		m.addMessage(Message{Role: role, Text: text})

		if len(m.messages) > maxMessages {
			t.Errorf("Message count %d exceeds max %d", len(m.messages), maxMessages)
		}
	})
}

// FuzzModel_View exercises rendering across state and size combinations.
func FuzzModel_View(f *testing.F) {
	f.Add(0, 80, 24)
	f.Add(1, 80, 24)
	f.Add(2, 80, 24)
	f.Add(0, 40, 10)
	f.Add(0, 200, 50)
	f.Add(0, 0, 0)
	f.Add(0, -1, -1)
	f.Add(0, 10000, 1)

	f.Fuzz(func(t *testing.T, state, width, height int) {
		m := newTestModel()

		if state >= 0 && state <= 2 {
			m.state = State(state)
		}
		m.width = width
		m.height = height

		m.messages = []Message{
			{Role: roleUser, Text: "Mikä on sauna?"},
			{Role: roleAssistant, Text: "Sauna on suomalainen löylyhuone."},
		}
		if m.state == StateStreaming {
			m.output.WriteString("Vastaus tulossa...")
		}

		// Must never panic.
		m.rebuildViewportContent()
		_ = m.View()

		if !utf8.ValidString(m.viewBuf.String()) {
			t.Error("View should produce valid UTF-8")
		}
	})
}

// FuzzMarkdownRenderer_Render exercises markdown rendering with arbitrary
// input.
func FuzzMarkdownRenderer_Render(f *testing.F) {
	f.Add("Hei maailma")
	f.Add("**lihavoitu**")
	f.Add("*kursiivi*")
	f.Add("`koodi`")
	f.Add("```go\nfunc main() {}\n```")
	f.Add("# Otsikko")
	f.Add("- luettelon kohta")
	f.Add("[linkki](http://example.com)")
	f.Add("")
	f.Add(strings.Repeat("a", 10000))
	f.Add("\x00\x01\x02")
	f.Add("rivi1\nrivi2\nrivi3")
	f.Add("erikoismerkit: <>&\"'")

	f.Fuzz(func(t *testing.T, markdown string) {
		mr := newMarkdownRenderer(80)
		if mr == nil {
			t.Skip("Failed to create markdown renderer")
		}

		// Must never panic. The result may legitimately be empty when the
		// renderer strips everything.
		result := mr.Render(markdown)

		if !utf8.ValidString(result) {
			t.Error("Rendered output should be valid UTF-8")
		}
	})
}
