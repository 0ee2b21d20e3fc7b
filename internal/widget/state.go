package widget

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Button is an interactive option attached to an assistant message. Value is
// the opaque payload sent back through the button action; Label is what the
// user sees.
type Button struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Message struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Buttons   []Button  `json:"buttons,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the persisted summary of an exchange. Only conversations
// with HasUserInteraction set are surfaced as resumable history, so chats
// that never got past the greeting don't pile up in the list.
type Conversation struct {
	ID                 string    `json:"id"`
	Messages           []Message `json:"messages"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Preview            string    `json:"preview"`
	MessageCount       int       `json:"messageCount"`
	RemoteSessionID    string    `json:"remoteSessionId,omitempty"`
	HasUserInteraction bool      `json:"hasUserInteraction"`

	// Selections records which button was chosen per message id, so a resume
	// restores the exact clicked state. It stays non-nil (possibly empty) in
	// files written by this version; nil means an older file.
	Selections map[string]int `json:"selections"`
}

// ConversationState is the in-memory working copy of the active
// conversation. It is rebuilt from a stored Conversation on resume and
// flushed back into the SessionStore after each exchange.
type ConversationState struct {
	Messages        []Message
	ConversationID  string
	RemoteSessionID string
	IsTyping        bool

	clicked    map[string]struct{}
	selections map[string]int
}

func NewConversationState() *ConversationState {
	return &ConversationState{
		clicked:    make(map[string]struct{}),
		selections: make(map[string]int),
	}
}

// ResumeConversationState rebuilds working state from a stored snapshot.
// When the snapshot carries a Selections map the clicked state is restored
// exactly. Files from before that map was stored fall back to a heuristic:
// any buttoned assistant message followed by a later message is treated as
// answered.
func ResumeConversationState(c Conversation) *ConversationState {
	st := NewConversationState()
	st.Messages = append(st.Messages, c.Messages...)
	st.ConversationID = c.ID
	st.RemoteSessionID = c.RemoteSessionID
	if c.Selections != nil {
		for id, idx := range c.Selections {
			st.clicked[id] = struct{}{}
			st.selections[id] = idx
		}
		return st
	}
	for i, m := range c.Messages {
		if m.Speaker == SpeakerAssistant && len(m.Buttons) > 0 && i < len(c.Messages)-1 {
			st.clicked[m.ID] = struct{}{}
		}
	}
	return st
}

func (st *ConversationState) AppendUser(text string) Message {
	m := Message{
		ID:        "user-" + uuid.NewString(),
		Speaker:   SpeakerUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	st.Messages = append(st.Messages, m)
	return m
}

func (st *ConversationState) AppendBot(text string, buttons []Button) Message {
	m := Message{
		ID:        "bot-" + uuid.NewString(),
		Speaker:   SpeakerAssistant,
		Text:      text,
		Buttons:   buttons,
		Timestamp: time.Now(),
	}
	st.Messages = append(st.Messages, m)
	return m
}

// SelectButton records a button click. It returns false when the message has
// already been answered: a second click on any button of the same message is
// a no-op for the life of the conversation.
func (st *ConversationState) SelectButton(messageID string, index int) bool {
	if _, done := st.clicked[messageID]; done {
		return false
	}
	st.clicked[messageID] = struct{}{}
	st.selections[messageID] = index
	return true
}

func (st *ConversationState) ButtonsDisabled(messageID string) bool {
	_, done := st.clicked[messageID]
	return done
}

func (st *ConversationState) SelectedButton(messageID string) (int, bool) {
	idx, ok := st.selections[messageID]
	return idx, ok
}

// LastActionable returns the most recent assistant message whose buttons are
// still clickable.
func (st *ConversationState) LastActionable() (Message, bool) {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		m := st.Messages[i]
		if m.Speaker == SpeakerAssistant && len(m.Buttons) > 0 && !st.ButtonsDisabled(m.ID) {
			return m, true
		}
	}
	return Message{}, false
}

func (st *ConversationState) HasUserMessage() bool {
	for _, m := range st.Messages {
		if m.Speaker == SpeakerUser {
			return true
		}
	}
	return false
}

// Snapshot copies the message log for persistence.
func (st *ConversationState) Snapshot() []Message {
	out := make([]Message, len(st.Messages))
	copy(out, st.Messages)
	return out
}

// SelectionSnapshot copies the per-message button choices for persistence.
// The result is never nil so a stored conversation with no clicks is still
// distinguishable from one saved before selections were recorded.
func (st *ConversationState) SelectionSnapshot() map[string]int {
	out := make(map[string]int, len(st.selections))
	for id, idx := range st.selections {
		out[id] = idx
	}
	return out
}

const previewRunes = 48

// PreviewOf derives the short history-list preview from the last message.
func PreviewOf(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	text := oneLine(messages[len(messages)-1].Text)
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes-1]) + "…"
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
