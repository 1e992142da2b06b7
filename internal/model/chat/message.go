package chat

import (
	"strings"
	"time"
)

// Preview texts used when a message carries no text.
const (
	PreviewFile    = "Sent a file"
	PreviewDefault = "New message"
)

// File describes an attachment stored by the backend.
type File struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Message is one entry of a conversation log. Pending entries have no server
// id yet and are identified by ClientID until the backend confirms them.
type Message struct {
	ID        int64     `json:"id"`
	ClientID  string    `json:"clientId,omitempty"`
	Content   string    `json:"content"`
	IsSender  bool      `json:"isSender"`
	Timestamp time.Time `json:"timestamp"`
	File      *File     `json:"file,omitempty"`
	Pending   bool      `json:"pending,omitempty"`
}

// MessageResponse is the wire shape of GET /chat/{id}/ items and of POST /chat/.
type MessageResponse struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	IsSender   bool      `json:"isSender"`
	Timestamp  time.Time `json:"timestamp"`
	File       *File     `json:"file"`
	SenderID   int64     `json:"sender_id,omitempty"`
	ReceiverID int64     `json:"receiver_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
}

// Message converts the wire message into the local model.
func (r MessageResponse) Message() Message {
	return Message{
		ID:        r.ID,
		Content:   r.Content,
		IsSender:  r.IsSender,
		Timestamp: r.Timestamp,
		File:      r.File,
	}
}

// Attachment is a file picked by the user for upload.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Preview returns the text shown as a conversation's last message.
func Preview(content string, hasFile bool) string {
	if strings.TrimSpace(content) != "" {
		return content
	}
	if hasFile {
		return PreviewFile
	}
	return PreviewDefault
}
