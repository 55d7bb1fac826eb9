package chat

// ConversationSummary is one entry of the backend's conversation listing.
// ClientID is the reconciliation key a device uses to recognize its own
// conversation among the ones a shared API key returns.
type ConversationSummary struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Title    string `json:"title,omitempty"`
}

// ConversationCreated is the payload returned by conversation creation.
type ConversationCreated struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
}

// RemoteMessage mirrors a message record as the backend stores it.
type RemoteMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	AudioURL  string `json:"audio_url,omitempty"`
}
