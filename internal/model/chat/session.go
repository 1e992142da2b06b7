package chat

// Conversation is one chat thread with another user, keyed by that user's id.
type Conversation struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"lastMessage"`
	Unread      bool   `json:"isUnread"`
}

// SessionResponse is the wire shape of GET /chat/sessions/.
type SessionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"last_message"`
	IsUnread    bool   `json:"is_unread"`
}

// Conversation converts the wire summary into the local model.
func (r SessionResponse) Conversation() Conversation {
	return Conversation{
		ID:          r.ID,
		Name:        r.Name,
		LastMessage: r.LastMessage,
		Unread:      r.IsUnread,
	}
}
