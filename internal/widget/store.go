package widget

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxStoredConversations caps the history list; the oldest beyond the cap is
// evicted on save.
const maxStoredConversations = 10

// Session is the durable client-side identity plus a bounded history of
// recent conversations.
type Session struct {
	UserID                string         `json:"userId"`
	CurrentConversationID string         `json:"currentConversationId,omitempty"`
	Conversations         []Conversation `json:"conversations"`
}

// SessionStore owns the only durable state the runtime has. Persistence is
// best-effort: any disk failure is logged and swallowed, and the store keeps
// serving its in-memory mirror for the rest of the process lifetime.
//
// Layout:
//
//	<root>/<agentID>/session.json
type SessionStore struct {
	root    string
	agentID string
	log     zerolog.Logger

	mu       sync.Mutex
	mem      Session
	loaded   bool
	degraded bool
}

func DefaultStorageRoot() string {
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, "chatwidget")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "chatwidget")
	}
	return filepath.Join(os.TempDir(), "chatwidget")
}

func NewSessionStore(root, agentID string, log zerolog.Logger) *SessionStore {
	if strings.TrimSpace(root) == "" {
		root = DefaultStorageRoot()
	}
	if strings.TrimSpace(agentID) == "" {
		agentID = "default"
	}
	return &SessionStore{root: root, agentID: agentID, log: log}
}

func (s *SessionStore) sessionPath() string {
	return filepath.Join(s.root, s.agentID, "session.json")
}

// Init returns the persisted session, creating one with a fresh random user
// id if none exists. Repeated calls within one process return the same
// session without touching disk again.
func (s *SessionStore) Init() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.mem
}

func (s *SessionStore) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	if b, err := os.ReadFile(s.sessionPath()); err == nil {
		var sess Session
		if err := json.Unmarshal(b, &sess); err == nil && strings.TrimSpace(sess.UserID) != "" {
			s.mem = sess
			return
		}
		s.log.Warn().Str("path", s.sessionPath()).Msg("discarding unreadable session file")
	}

	s.mem = Session{UserID: uuid.NewString()}
	s.persistLocked()
}

// SaveConversation upserts by conversation id into the capped,
// most-recent-first list and records it as the current conversation.
//
// Updates merge rather than replace: the stored RemoteSessionID survives a
// save that omits it, HasUserInteraction never goes back to false once true,
// and a nil selections map keeps whatever a prior save recorded. The first
// save after launch happens before any user interaction, and a later save
// must not downgrade what a prior save already set.
func (s *SessionStore) SaveConversation(id string, messages []Message, remoteSessionID string, selections map[string]int, interacted bool) {
	if strings.TrimSpace(id) == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()

	conv := Conversation{
		ID:                 id,
		Messages:           messages,
		UpdatedAt:          time.Now(),
		Preview:            PreviewOf(messages),
		MessageCount:       len(messages),
		RemoteSessionID:    remoteSessionID,
		HasUserInteraction: interacted,
		Selections:         selections,
	}

	for i := range s.mem.Conversations {
		prior := s.mem.Conversations[i]
		if prior.ID != id {
			continue
		}
		if conv.RemoteSessionID == "" {
			conv.RemoteSessionID = prior.RemoteSessionID
		}
		if prior.HasUserInteraction {
			conv.HasUserInteraction = true
		}
		if conv.Selections == nil {
			conv.Selections = prior.Selections
		}
		s.mem.Conversations = append(s.mem.Conversations[:i], s.mem.Conversations[i+1:]...)
		break
	}

	s.mem.Conversations = append([]Conversation{conv}, s.mem.Conversations...)
	sort.SliceStable(s.mem.Conversations, func(i, j int) bool {
		return s.mem.Conversations[i].UpdatedAt.After(s.mem.Conversations[j].UpdatedAt)
	})
	if len(s.mem.Conversations) > maxStoredConversations {
		s.mem.Conversations = s.mem.Conversations[:maxStoredConversations]
	}
	s.mem.CurrentConversationID = id
	s.persistLocked()
}

// StartNewConversation clears the current-conversation pointer without
// touching the history list.
func (s *SessionStore) StartNewConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.mem.CurrentConversationID = ""
	s.persistLocked()
}

func (s *SessionStore) SetCurrent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.mem.CurrentConversationID = id
	s.persistLocked()
}

func (s *SessionStore) LoadConversation(id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	for _, c := range s.mem.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return Conversation{}, false
}

// History returns the stored conversations the user actually took part in,
// most recent first.
func (s *SessionStore) History() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	out := make([]Conversation, 0, len(s.mem.Conversations))
	for _, c := range s.mem.Conversations {
		if c.HasUserInteraction {
			out = append(out, c)
		}
	}
	return out
}

func (s *SessionStore) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.mem
}

func (s *SessionStore) persistLocked() {
	dir := filepath.Dir(s.sessionPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.markDegradedLocked(err)
		return
	}
	b, err := json.MarshalIndent(&s.mem, "", "  ")
	if err != nil {
		s.markDegradedLocked(err)
		return
	}
	if err := os.WriteFile(s.sessionPath(), b, 0o644); err != nil {
		s.markDegradedLocked(err)
		return
	}
	s.degraded = false
}

func (s *SessionStore) markDegradedLocked(err error) {
	if !s.degraded {
		s.log.Warn().Err(err).Msg("session persistence unavailable, continuing in memory")
	}
	s.degraded = true
}
