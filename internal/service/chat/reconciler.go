package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/chatsync/internal/model/chat"
)

// Log is the message log of the conversation on screen. It merges pending
// local messages with server history. Not safe for concurrent use.
type Log struct {
	conversationID int64
	messages       []chat.Message

	// requested is the sequence of the last history load started,
	// applied the sequence of the last one written into messages.
	requested uint64
	applied   uint64
}

// NewLog returns an empty log bound to no conversation.
func NewLog() *Log {
	return &Log{}
}

// ConversationID returns the conversation the log shows, 0 for none.
func (l *Log) ConversationID() int64 {
	return l.conversationID
}

// Reset binds the log to id and drops every message of the previous one.
func (l *Log) Reset(id int64) {
	l.conversationID = id
	l.messages = nil
	l.applied = l.requested
}

// BeginLoad registers a history load for the current conversation and
// returns its sequence number.
func (l *Log) BeginLoad() uint64 {
	l.requested++
	return l.requested
}

// ApplyHistory replaces the log with the server history loaded for id under
// seq. Results for another conversation, or older than what is already
// applied, are discarded. Pending messages stay at the tail.
func (l *Log) ApplyHistory(id int64, seq uint64, history []chat.Message) bool {
	if id != l.conversationID || seq <= l.applied {
		return false
	}
	l.applied = seq

	merged := make([]chat.Message, 0, len(history)+1)
	seen := make(map[int64]struct{}, len(history))
	for _, msg := range history {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
	}
	for _, msg := range l.messages {
		if msg.Pending {
			merged = append(merged, msg)
		}
	}
	l.messages = merged
	return true
}

// AppendPending adds an optimistic outbound message and returns it.
func (l *Log) AppendPending(content string, file *chat.File, now time.Time) chat.Message {
	msg := chat.Message{
		ClientID:  uuid.NewString(),
		Content:   content,
		IsSender:  true,
		Timestamp: now,
		File:      file,
		Pending:   true,
	}
	l.messages = append(l.messages, msg)
	return msg
}

// Confirm swaps the pending message clientID for the server's copy. When a
// history load already delivered that server id, the pending entry is just
// dropped. A confirmation for a message the log no longer holds is appended
// only if the log still shows conversationID.
func (l *Log) Confirm(conversationID int64, clientID string, confirmed chat.Message) bool {
	if conversationID != l.conversationID {
		return false
	}
	confirmed.ClientID = ""
	confirmed.Pending = false

	pending := l.indexOf(clientID)
	if l.hasServerID(confirmed.ID) {
		if pending >= 0 {
			l.removeAt(pending)
		}
		return true
	}
	if pending >= 0 {
		l.messages[pending] = confirmed
		return true
	}
	l.messages = append(l.messages, confirmed)
	return true
}

// Discard removes the pending message clientID.
func (l *Log) Discard(clientID string) bool {
	i := l.indexOf(clientID)
	if i < 0 {
		return false
	}
	l.removeAt(i)
	return true
}

// Messages returns a copy of the log.
func (l *Log) Messages() []chat.Message {
	out := make([]chat.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) indexOf(clientID string) int {
	if clientID == "" {
		return -1
	}
	for i, msg := range l.messages {
		if msg.Pending && msg.ClientID == clientID {
			return i
		}
	}
	return -1
}

func (l *Log) hasServerID(id int64) bool {
	if id == 0 {
		return false
	}
	for _, msg := range l.messages {
		if !msg.Pending && msg.ID == id {
			return true
		}
	}
	return false
}

func (l *Log) removeAt(i int) {
	l.messages = append(l.messages[:i], l.messages[i+1:]...)
}
