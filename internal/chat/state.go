package chat

import (
	"github.com/firebase/genkit/go/ai"
)

// DefaultMaxHistory is how many exchanges a conversation keeps before the
// oldest are dropped.
const DefaultMaxHistory = 10

// Exchange is one completed turn: the user's query and the assistant's
// answer to it.
type Exchange struct {
	Query  string
	Answer string
}

// State is the running conversation memory of one workflow instance.
// It holds completed exchanges in order, bounded by a maximum count.
//
// State is not safe for concurrent turns; callers serialize turns per
// conversation (the TUI and CLI are single-threaded, the server builds a
// fresh State per request from the session store).
type State struct {
	maxExchanges int
	exchanges    []Exchange
}

// NewState creates conversation memory bounded to maxExchanges completed
// turns. Values <= 0 use DefaultMaxHistory.
func NewState(maxExchanges int) *State {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxHistory
	}
	return &State{maxExchanges: maxExchanges}
}

// Append records a completed exchange, dropping the oldest ones beyond the
// bound.
func (s *State) Append(query, answer string) {
	s.exchanges = append(s.exchanges, Exchange{Query: query, Answer: answer})
	if len(s.exchanges) > s.maxExchanges {
		s.exchanges = s.exchanges[len(s.exchanges)-s.maxExchanges:]
	}
}

// Exchanges returns a copy of the recorded exchanges in order.
func (s *State) Exchanges() []Exchange {
	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// Len reports how many exchanges are recorded.
func (s *State) Len() int {
	return len(s.exchanges)
}

// Clear drops all recorded exchanges.
func (s *State) Clear() {
	s.exchanges = nil
}

// Messages renders the conversation as alternating user/model messages in
// the form generation expects.
func (s *State) Messages() []*ai.Message {
	msgs := make([]*ai.Message, 0, len(s.exchanges)*2)
	for _, ex := range s.exchanges {
		msgs = append(msgs,
			ai.NewUserMessage(ai.NewTextPart(ex.Query)),
			ai.NewModelMessage(ai.NewTextPart(ex.Answer)),
		)
	}
	return msgs
}

// StateFromMessages rebuilds conversation memory from stored messages,
// pairing each user message with the model message that follows it.
// Messages with other roles and unpaired trailing messages are ignored.
// The bound applies as usual, so only the most recent exchanges survive.
func StateFromMessages(maxExchanges int, msgs []*ai.Message) *State {
	s := NewState(maxExchanges)
	var query string
	var pending bool
	for _, msg := range msgs {
		switch msg.Role {
		case ai.RoleUser:
			query = msg.Text()
			pending = true
		case ai.RoleModel:
			if pending {
				s.Append(query, msg.Text())
				pending = false
			}
		}
	}
	return s
}
