// Package event decodes the JSON frames pushed by the backend over the chat
// and notification sockets.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zhouzirui/chatsync/internal/model/chat"
)

// Frame types sent by the backend.
const (
	TypeChatMessage         = "chat_message"
	TypeReadStatusUpdate    = "read_status_update"
	TypeChatSessionsUpdated = "chat_sessions_updated"
	TypeError               = "error"
	TypeNotification        = "notification"
	TypeConnectionStatus    = "connection_status"

	// TypeMarkRead is the only frame the client sends.
	TypeMarkRead = "mark_read"
)

var (
	ErrMalformed   = errors.New("malformed event payload")
	ErrUnknownType = errors.New("unknown event type")
)

// Event is any decoded inbound frame.
type Event interface {
	Type() string
}

// ChatMessage announces a message persisted by the backend.
type ChatMessage struct {
	Message IncomingMessage `json:"message"`
}

// IncomingMessage is the message body of a chat_message frame.
type IncomingMessage struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"sender_id"`
	ReceiverID int64      `json:"receiver_id"`
	SenderName string     `json:"sender_name"`
	Content    string     `json:"content"`
	Timestamp  string     `json:"timestamp"`
	File       *chat.File `json:"file,omitempty"`
}

// Peer returns the conversation the message belongs to from the point of view
// of selfID. With an unknown selfID the sender is assumed to be the peer.
func (m IncomingMessage) Peer(selfID int64) int64 {
	if selfID != 0 && m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}

// ReadStatusUpdate is the server's authoritative unread state. Absent fields
// carry no information.
type ReadStatusUpdate struct {
	AllRead           *bool  `json:"all_read,omitempty"`
	ChatID            *int64 `json:"chat_id,omitempty"`
	HasUnread         *bool  `json:"has_unread,omitempty"`
	AnyUnreadSessions *bool  `json:"any_unread_sessions,omitempty"`
}

// SessionsUpdated tells the client to refetch its conversation list.
type SessionsUpdated struct{}

// Error is an error reported by the backend over the socket.
type Error struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns whichever of the two error fields the backend filled in.
func (e Error) Text() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "An error occurred"
}

// Notification is a pushed notification feed entry.
type Notification struct {
	NotificationID int64  `json:"notification_id"`
	Message        string `json:"message"`
}

// ConnectionStatus is sent once by the notification socket after auth.
type ConnectionStatus struct {
	Status string `json:"status"`
	UserID int64  `json:"user_id"`
}

func (ChatMessage) Type() string      { return TypeChatMessage }
func (ReadStatusUpdate) Type() string { return TypeReadStatusUpdate }
func (SessionsUpdated) Type() string  { return TypeChatSessionsUpdated }
func (Error) Type() string            { return TypeError }
func (Notification) Type() string     { return TypeNotification }
func (ConnectionStatus) Type() string { return TypeConnectionStatus }

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one socket frame. Frames that are not JSON objects or miss
// required fields yield ErrMalformed; unrecognised types yield ErrUnknownType.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeChatMessage:
		var ev ChatMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if ev.Message.SenderID == 0 && ev.Message.ReceiverID == 0 {
			return nil, fmt.Errorf("%w: chat_message without participants", ErrMalformed)
		}
		return ev, nil
	case TypeReadStatusUpdate:
		var ev ReadStatusUpdate
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case TypeChatSessionsUpdated:
		return SessionsUpdated{}, nil
	case TypeError:
		var ev Error
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case TypeNotification:
		var ev Notification
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case TypeConnectionStatus:
		var ev ConnectionStatus
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ev, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// MarkRead asks the chat socket for a read_status_update about chatID.
type MarkRead struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id"`
}

// NewMarkRead builds an outbound mark_read frame.
func NewMarkRead(chatID int64) MarkRead {
	return MarkRead{Type: TypeMarkRead, ChatID: chatID}
}
