package session

import (
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty stays empty", "", ""},
		{"plain title unchanged", "Saunan historia", "Saunan historia"},
		{"whitespace trimmed", "  Saunan historia  ", "Saunan historia"},
		{"newlines become spaces", "Sauna\nja\nlöyly", "Sauna ja löyly"},
		{"carriage returns become spaces", "Sauna\r\nja löyly", "Sauna  ja löyly"},
		{"whitespace only becomes empty", "   \n\t  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTitle(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle_TruncatesLongTitles(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ä", TitleMaxLength+50)
	got := NormalizeTitle(long)

	if runes := len([]rune(got)); runes != TitleMaxLength {
		t.Errorf("NormalizeTitle() length = %d runes, want %d", runes, TitleMaxLength)
	}

	// Truncation at exactly the limit must not leave trailing whitespace.
	padded := strings.Repeat("a", TitleMaxLength-1) + " b"
	got = NormalizeTitle(padded)
	if strings.HasSuffix(got, " ") {
		t.Errorf("NormalizeTitle(%q) = %q, has trailing whitespace", padded, got)
	}
}

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input int32
		want  int32
	}{
		{"zero defaults", 0, DefaultListLimit},
		{"negative defaults", -1, DefaultListLimit},
		{"valid passes through", 25, 25},
		{"exactly max", MaxListLimit, MaxListLimit},
		{"above max clamped", MaxListLimit + 1, MaxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLimit(tt.input, DefaultListLimit, MaxListLimit)
			if got != tt.want {
				t.Errorf("normalizeLimit(%d) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMessage_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []*ai.Part
		want    string
	}{
		{"nil content", nil, ""},
		{"single text part", []*ai.Part{ai.NewTextPart("hei")}, "hei"},
		{
			"multiple parts concatenated",
			[]*ai.Part{ai.NewTextPart("hei "), ai.NewTextPart("maailma")},
			"hei maailma",
		},
		{
			"nil parts skipped",
			[]*ai.Part{nil, ai.NewTextPart("hei"), nil},
			"hei",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{Content: tt.content}
			if got := msg.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoleConstants_MatchGenkit(t *testing.T) {
	t.Parallel()

	// Persisted roles must round-trip through ai.Role unchanged.
	if RoleUser != string(ai.RoleUser) {
		t.Errorf("RoleUser = %q, want %q", RoleUser, ai.RoleUser)
	}
	if RoleModel != string(ai.RoleModel) {
		t.Errorf("RoleModel = %q, want %q", RoleModel, ai.RoleModel)
	}
	if RoleSystem != string(ai.RoleSystem) {
		t.Errorf("RoleSystem = %q, want %q", RoleSystem, ai.RoleSystem)
	}
}
