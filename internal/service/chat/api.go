package chat

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/zhouzirui/nymia/internal/model/chat"
	"github.com/zhouzirui/nymia/internal/transport"
	"github.com/zhouzirui/nymia/internal/voice"
)

const defaultConversationTitle = "New Conversation"

type listEnvelope struct {
	Data []chat.ConversationSummary `json:"data"`
}

type detailEnvelope struct {
	Data struct {
		Messages []chat.RemoteMessage `json:"messages"`
	} `json:"data"`
}

type createEnvelope struct {
	Data chat.ConversationCreated `json:"data"`
}

// listConversations fetches the caller's conversation list. Session
// resolution is best effort, so any failure degrades to an empty list.
func (s *Service) listConversations(ctx context.Context) []chat.ConversationSummary {
	data, err := s.api.Get(ctx, "/conversation/user")
	if err != nil {
		log.Printf("[chat] listing conversations failed: %v", err)
		return nil
	}

	var env listEnvelope
	if err := transport.DecodeJSON(data, &env); err != nil {
		return nil
	}
	return env.Data
}

// fetchRemoteMessages loads the message history of one conversation.
// Hydration is best effort as well; failures degrade to an empty history.
func (s *Service) fetchRemoteMessages(ctx context.Context, conversationID string) []chat.RemoteMessage {
	data, err := s.api.Get(ctx, "/conversation/"+conversationID)
	if err != nil {
		log.Printf("[chat] fetching messages failed: %v", err)
		return nil
	}

	var env detailEnvelope
	if err := transport.DecodeJSON(data, &env); err != nil {
		return nil
	}
	return env.Data.Messages
}

// createConversation provisions a fresh server-side conversation. There is
// no safe fallback here, so errors propagate to the resolver.
func (s *Service) createConversation(ctx context.Context) (chat.ConversationCreated, error) {
	data, err := s.api.PostJSON(ctx, "/conversation/", map[string]string{"title": defaultConversationTitle})
	if err != nil {
		return chat.ConversationCreated{}, err
	}

	var env createEnvelope
	if err := transport.DecodeJSON(data, &env); err != nil {
		return chat.ConversationCreated{}, err
	}
	return env.Data, nil
}

// featureFlag 把布尔开关映射为后端使用的 activate/deactivate 取值。
func featureFlag(enabled bool) string {
	if enabled {
		return "activate"
	}
	return "deactivate"
}

func submitQuery(showImages, audioAnswers bool) url.Values {
	return url.Values{
		"has_image_processor": {featureFlag(showImages)},
		"has_text_to_voice":   {featureFlag(audioAnswers)},
	}
}

// postText submits a text turn as a form-encoded body with the session
// feature toggles carried as query parameters.
func (s *Service) postText(ctx context.Context, conversationID, content string, showImages, audioAnswers bool) ([]byte, error) {
	form := url.Values{
		"content": {content},
		"context": {""},
	}
	return s.api.PostForm(ctx, "/conversation/"+conversationID+"/message", submitQuery(showImages, audioAnswers), form)
}

// postVoice submits a recorded clip. The multipart body is pre-built by the
// voice package and forwarded unchanged.
func (s *Service) postVoice(ctx context.Context, conversationID string, payload *voice.Payload, showImages, audioAnswers bool) ([]byte, error) {
	return s.api.Call(ctx, http.MethodPost, "/conversation/"+conversationID+"/message", submitQuery(showImages, audioAnswers), payload.Body, payload.ContentType)
}
