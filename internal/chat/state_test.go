package chat

import (
	"fmt"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestNewState_DefaultBound(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -3} {
		s := NewState(n)
		for i := 0; i < DefaultMaxHistory+2; i++ {
			s.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}
		if got := s.Len(); got != DefaultMaxHistory {
			t.Errorf("NewState(%d) bound = %d, want %d", n, got, DefaultMaxHistory)
		}
	}
}

func TestState_AppendDropsOldest(t *testing.T) {
	t.Parallel()

	s := NewState(3)
	for i := 1; i <= 5; i++ {
		s.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	got := s.Exchanges()
	want := []Exchange{
		{Query: "q3", Answer: "a3"},
		{Query: "q4", Answer: "a4"},
		{Query: "q5", Answer: "a5"},
	}
	if len(got) != len(want) {
		t.Fatalf("Exchanges() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Exchanges()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestState_ExchangesReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewState(5)
	s.Append("kysymys", "vastaus")

	first := s.Exchanges()
	first[0].Query = "MUTATED"

	if got := s.Exchanges()[0].Query; got != "kysymys" {
		t.Errorf("Exchanges() affected by mutation of earlier copy: got %q, want %q", got, "kysymys")
	}
}

func TestState_Clear(t *testing.T) {
	t.Parallel()

	s := NewState(5)
	s.Append("q1", "a1")
	s.Append("q2", "a2")

	s.Clear()

	if got := s.Len(); got != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", got)
	}
	if got := len(s.Messages()); got != 0 {
		t.Errorf("Messages() after Clear() len = %d, want 0", got)
	}
}

func TestState_Messages(t *testing.T) {
	t.Parallel()

	s := NewState(5)
	s.Append("eka kysymys", "eka vastaus")
	s.Append("toka kysymys", "toka vastaus")

	msgs := s.Messages()
	if len(msgs) != 4 {
		t.Fatalf("Messages() len = %d, want 4", len(msgs))
	}

	wantRoles := []ai.Role{ai.RoleUser, ai.RoleModel, ai.RoleUser, ai.RoleModel}
	wantTexts := []string{"eka kysymys", "eka vastaus", "toka kysymys", "toka vastaus"}
	for i, msg := range msgs {
		if msg.Role != wantRoles[i] {
			t.Errorf("Messages()[%d].Role = %q, want %q", i, msg.Role, wantRoles[i])
		}
		if got := msg.Text(); got != wantTexts[i] {
			t.Errorf("Messages()[%d].Text() = %q, want %q", i, got, wantTexts[i])
		}
	}
}

func TestState_MessagesFreshPerCall(t *testing.T) {
	t.Parallel()

	s := NewState(5)
	s.Append("kysymys", "vastaus")

	first := s.Messages()
	first[0].Content[0].Text = "MUTATED"

	second := s.Messages()
	if got := second[0].Text(); got != "kysymys" {
		t.Errorf("Messages() shares parts across calls: got %q, want %q", got, "kysymys")
	}
}

func TestStateFromMessages(t *testing.T) {
	t.Parallel()

	user := func(text string) *ai.Message { return ai.NewUserMessage(ai.NewTextPart(text)) }
	model := func(text string) *ai.Message { return ai.NewModelMessage(ai.NewTextPart(text)) }

	tests := []struct {
		name         string
		maxExchanges int
		msgs         []*ai.Message
		want         []Exchange
	}{
		{
			name: "empty history",
			msgs: nil,
			want: nil,
		},
		{
			name: "single pair",
			msgs: []*ai.Message{user("q1"), model("a1")},
			want: []Exchange{{Query: "q1", Answer: "a1"}},
		},
		{
			name: "two pairs in order",
			msgs: []*ai.Message{user("q1"), model("a1"), user("q2"), model("a2")},
			want: []Exchange{
				{Query: "q1", Answer: "a1"},
				{Query: "q2", Answer: "a2"},
			},
		},
		{
			name: "system messages ignored",
			msgs: []*ai.Message{
				ai.NewSystemMessage(ai.NewTextPart("ohjeet")),
				user("q1"), model("a1"),
			},
			want: []Exchange{{Query: "q1", Answer: "a1"}},
		},
		{
			name: "trailing unpaired user dropped",
			msgs: []*ai.Message{user("q1"), model("a1"), user("q2")},
			want: []Exchange{{Query: "q1", Answer: "a1"}},
		},
		{
			name: "model without user ignored",
			msgs: []*ai.Message{model("orphan"), user("q1"), model("a1")},
			want: []Exchange{{Query: "q1", Answer: "a1"}},
		},
		{
			name: "consecutive users keep the latest",
			msgs: []*ai.Message{user("old"), user("new"), model("a1")},
			want: []Exchange{{Query: "new", Answer: "a1"}},
		},
		{
			name:         "bound keeps most recent",
			maxExchanges: 1,
			msgs:         []*ai.Message{user("q1"), model("a1"), user("q2"), model("a2")},
			want:         []Exchange{{Query: "q2", Answer: "a2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := StateFromMessages(tt.maxExchanges, tt.msgs)
			got := s.Exchanges()
			if len(got) != len(tt.want) {
				t.Fatalf("StateFromMessages() exchanges = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("exchange[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
