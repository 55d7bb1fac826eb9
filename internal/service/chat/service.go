package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/nymia/internal/identity"
	"github.com/zhouzirui/nymia/internal/model/chat"
	"github.com/zhouzirui/nymia/internal/transport"
	"github.com/zhouzirui/nymia/internal/voice"
)

var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrSessionInit          = errors.New("failed to initialize conversation session")
)

// voiceMessageLabel is the transcript placeholder for an audio turn.
const voiceMessageLabel = "[Voice Message]"

// noReplyFallback is shown when the backend answers without an assistant entry.
const noReplyFallback = "No response from the assistant."

// Service owns the local view of the one active conversation: the ordered
// transcript, the bound conversation identifier, and the per-turn send
// protocol. All session state lives behind the mutex; failures land in the
// error field and never cross the UI boundary as panics.
type Service struct {
	api *transport.Client
	ids identity.Store

	mu             sync.Mutex
	messages       []chat.Message
	conversationID string
	loading        bool
	sending        bool
	lastErr        error
	showImages     bool
	audioAnswers   bool
}

// NewService bootstraps an empty session. The identity store carries the
// persisted client identifier across restarts; it may be nil, in which case
// every start resolves to a fresh conversation.
func NewService(api *transport.Client, ids identity.Store) *Service {
	return &Service{api: api, ids: ids}
}

// Initialize binds the session to a server-side conversation: reuse the
// first listed conversation when its client identifier matches the persisted
// one, otherwise create a new conversation and persist the identifier the
// backend hands back. A mismatch means "not mine", never an error.
func (s *Service) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	var storedID string
	var hasStored bool
	if s.ids != nil {
		storedID, hasStored = s.ids.Load()
	}

	conversations := s.listConversations(ctx)
	if len(conversations) > 0 {
		first := conversations[0]
		if hasStored && storedID == first.ClientID {
			hydrated := hydrateMessages(s.fetchRemoteMessages(ctx, first.ID))
			s.mu.Lock()
			s.conversationID = first.ID
			s.messages = hydrated
			s.mu.Unlock()
			return
		}
	}

	s.createAndBind(ctx)
}

// createAndBind provisions a brand-new conversation and records the returned
// client identifier for future reconciliation. Creation failure is fatal to
// resolution and surfaces on the session error field.
func (s *Service) createAndBind(ctx context.Context) {
	created, err := s.createConversation(ctx)
	if err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrSessionInit, err))
		return
	}

	if s.ids != nil && created.ClientID != "" {
		if err := s.ids.Save(created.ClientID); err != nil {
			// 仅影响下次启动的会话识别，本次会话照常绑定。
			log.Printf("[chat] persisting client id failed: %v", err)
		}
	}

	s.mu.Lock()
	s.conversationID = created.ID
	s.messages = nil
	s.mu.Unlock()
}

// Send submits a text turn.
func (s *Service) Send(ctx context.Context, content string) {
	s.send(ctx, content, nil)
}

// SendVoice submits a recorded audio turn. The transcript shows a fixed
// placeholder for the user side; the payload goes out unchanged.
func (s *Service) SendVoice(ctx context.Context, payload *voice.Payload) {
	s.send(ctx, voiceMessageLabel, payload)
}

func (s *Service) send(ctx context.Context, display string, payload *voice.Payload) {
	s.mu.Lock()
	if s.conversationID == "" {
		s.lastErr = ErrNoActiveConversation
		s.mu.Unlock()
		return
	}
	if s.sending {
		// Overlapping sends are rejected outright, never queued.
		s.mu.Unlock()
		return
	}
	s.sending = true
	s.lastErr = nil
	conversationID := s.conversationID
	showImages, audioAnswers := s.showImages, s.audioAnswers

	// Optimistic append: the user entry lands before any network call and is
	// never retracted, even when the dispatch below fails.
	s.messages = append(s.messages, chat.Message{
		ID:        uuid.NewString(),
		Content:   display,
		Sender:    chat.SenderUser,
		Timestamp: time.Now(),
	})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	var raw []byte
	var err error
	if payload != nil {
		raw, err = s.postVoice(ctx, conversationID, payload, showImages, audioAnswers)
	} else {
		raw, err = s.postText(ctx, conversationID, display, showImages, audioAnswers)
	}
	if err != nil {
		s.fail(fmt.Errorf("send message: %w", err))
		return
	}

	reply, err := s.decodeReply(raw, audioAnswers)
	if err != nil {
		s.fail(fmt.Errorf("decode reply: %w", err))
		return
	}

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.mu.Unlock()
}

// decodeReply turns the submit endpoint's response into the assistant
// message to append. The endpoint answers with either a {data:[...]} message
// list or a single encoded string; both shapes are supported.
func (s *Service) decodeReply(raw []byte, audioAnswers bool) (chat.Message, error) {
	if len(raw) == 0 {
		return chat.Message{}, transport.ErrEmptyBody
	}

	var content, audioURL string

	var env struct {
		Data []chat.RemoteMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		entry, ok := latestAssistantEntry(env.Data)
		switch {
		case !ok:
			content = noReplyFallback
		case audioAnswers && entry.AudioURL != "":
			content, audioURL = entry.Content, entry.AudioURL
		default:
			content = sanitizeContent(entry.Content)
		}
	} else {
		content, audioURL = normalizeAssistantReply(string(raw))
	}

	return chat.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    chat.SenderAssistant,
		Timestamp: time.Now(),
		AudioURL:  audioURL,
	}, nil
}

func (s *Service) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// hydrateMessages maps remote records into the local transcript shape,
// translating server timestamps along the way.
func hydrateMessages(remote []chat.RemoteMessage) []chat.Message {
	if len(remote) == 0 {
		return nil
	}
	messages := make([]chat.Message, 0, len(remote))
	for _, rm := range remote {
		messages = append(messages, chat.Message{
			ID:        rm.ID,
			Content:   rm.Content,
			Sender:    chat.Sender(rm.Sender),
			Timestamp: parseRemoteTime(rm.CreatedAt),
			AudioURL:  rm.AudioURL,
		})
	}
	return messages
}

func parseRemoteTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Messages returns a copy of the transcript.
func (s *Service) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// ConversationID returns the bound conversation identifier, empty until the
// session resolves.
func (s *Service) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Loading reports whether session resolution is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Sending reports whether a send is in flight.
func (s *Service) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Err returns the last recorded failure, nil after a clean operation.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HasMessages reports whether the transcript holds any entries.
func (s *Service) HasMessages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages) > 0
}

// LastMessage returns the newest transcript entry.
func (s *Service) LastMessage() (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return chat.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// ClearMessages drops the transcript and unbinds the conversation.
func (s *Service) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.conversationID = ""
}

// Reset clears the whole session back to its just-constructed state. The
// persisted client identifier is untouched.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.conversationID = ""
	s.lastErr = nil
	s.showImages = false
	s.audioAnswers = false
}

// SetPreferences seeds both feature toggles at once, typically from
// configuration at startup.
func (s *Service) SetPreferences(showImages, audioAnswers bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showImages = showImages
	s.audioAnswers = audioAnswers
}

// ToggleShowImages flips the image-processing preference and returns the new value.
func (s *Service) ToggleShowImages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showImages = !s.showImages
	return s.showImages
}

// ToggleAudioAnswers flips the text-to-voice preference and returns the new value.
func (s *Service) ToggleAudioAnswers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioAnswers = !s.audioAnswers
	return s.audioAnswers
}

// ShowImages reports the image-processing preference.
func (s *Service) ShowImages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showImages
}

// AudioAnswers reports the text-to-voice preference.
func (s *Service) AudioAnswers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioAnswers
}
