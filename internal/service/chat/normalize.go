package chat

import (
	"encoding/json"

	"github.com/zhouzirui/nymia/internal/model/chat"
)

// assistantReply is the tagged shape an audio-bearing reply arrives in.
type assistantReply struct {
	Content  string `json:"content"`
	AudioURL string `json:"audio_url"`
}

// normalizeAssistantReply converts one raw reply into display content plus an
// optional audio reference. A JSON body carrying both content and audio_url
// passes through verbatim (the audio URL is an opaque reference and is never
// sanitized); anything else is treated as prose and sanitized.
func normalizeAssistantReply(raw string) (content, audioURL string) {
	var reply assistantReply
	if err := json.Unmarshal([]byte(raw), &reply); err == nil && reply.Content != "" && reply.AudioURL != "" {
		return reply.Content, reply.AudioURL
	}
	return sanitizeContent(raw), ""
}

// latestAssistantEntry returns the most recent assistant record. The backend
// returns messages in an implementation-defined order, so the scan runs from
// the tail of the list.
func latestAssistantEntry(entries []chat.RemoteMessage) (chat.RemoteMessage, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Sender == string(chat.SenderAssistant) {
			return entries[i], true
		}
	}
	return chat.RemoteMessage{}, false
}
