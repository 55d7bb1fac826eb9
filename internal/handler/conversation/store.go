package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/nymia/internal/model/chat"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is one server-side conversation record held by the stub.
type Conversation struct {
	ID        string
	ClientID  string
	Title     string
	CreatedAt time.Time
	Messages  []chat.RemoteMessage
}

// MemoryStore keeps stub conversations in memory, newest first in listings.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	items map[string]*Conversation
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Conversation)}
}

// List returns conversation summaries, most recent first.
func (s *MemoryStore) List() []chat.ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]chat.ConversationSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.items[s.order[i]]
		summaries = append(summaries, chat.ConversationSummary{
			ID:       c.ID,
			ClientID: c.ClientID,
			Title:    c.Title,
		})
	}
	return summaries
}

// Create provisions a conversation with fresh identifiers.
func (s *MemoryStore) Create(title string) chat.ConversationCreated {
	c := &Conversation{
		ID:        uuid.NewString(),
		ClientID:  uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.items[c.ID] = c
	s.order = append(s.order, c.ID)
	s.mu.Unlock()

	return chat.ConversationCreated{ID: c.ID, ClientID: c.ClientID}
}

// Messages returns a copy of one conversation's history.
func (s *MemoryStore) Messages(conversationID string) ([]chat.RemoteMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.items[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return append([]chat.RemoteMessage(nil), c.Messages...), nil
}

// AppendTurn records a user message plus the assistant reply and returns the
// full history after the append.
func (s *MemoryStore) AppendTurn(conversationID string, user, assistant chat.RemoteMessage) ([]chat.RemoteMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.items[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	user.ID = uuid.NewString()
	assistant.ID = uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	user.CreatedAt = now
	assistant.CreatedAt = now

	c.Messages = append(c.Messages, user, assistant)
	return append([]chat.RemoteMessage(nil), c.Messages...), nil
}
