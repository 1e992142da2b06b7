package chat

import "github.com/zhouzirui/chatsync/internal/model/chat"

// Store is the ordered list of conversation summaries. It is not safe for
// concurrent use; Service serializes access.
type Store struct {
	sessions []chat.Conversation
	index    map[int64]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: make(map[int64]int)}
}

// Replace swaps the whole list for sessions.
func (s *Store) Replace(sessions []chat.Conversation) {
	s.sessions = make([]chat.Conversation, 0, len(sessions))
	s.index = make(map[int64]int, len(sessions))
	for _, session := range sessions {
		if _, dup := s.index[session.ID]; dup {
			continue
		}
		s.index[session.ID] = len(s.sessions)
		s.sessions = append(s.sessions, session)
	}
}

// Get returns the conversation with id.
func (s *Store) Get(id int64) (chat.Conversation, bool) {
	i, ok := s.index[id]
	if !ok {
		return chat.Conversation{}, false
	}
	return s.sessions[i], true
}

// Has reports whether a conversation with id exists.
func (s *Store) Has(id int64) bool {
	_, ok := s.index[id]
	return ok
}

// Add inserts an empty, read conversation at the top unless id exists.
// It reports whether an entry was created.
func (s *Store) Add(id int64, name string) bool {
	if s.Has(id) {
		return false
	}
	s.sessions = append([]chat.Conversation{{ID: id, Name: name}}, s.sessions...)
	s.reindex()
	return true
}

// PatchLastMessage updates only the preview of id.
func (s *Store) PatchLastMessage(id int64, preview string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.sessions[i].LastMessage = preview
	return true
}

// SetUnread sets the unread flag of id.
func (s *Store) SetUnread(id int64, unread bool) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.sessions[i].Unread = unread
	return true
}

// Unread returns the ids of conversations flagged unread.
func (s *Store) Unread() []int64 {
	var ids []int64
	for _, session := range s.sessions {
		if session.Unread {
			ids = append(ids, session.ID)
		}
	}
	return ids
}

// ClearUnread marks every conversation read.
func (s *Store) ClearUnread() {
	for i := range s.sessions {
		s.sessions[i].Unread = false
	}
}

// AnyUnread is the OR over every conversation's flag.
func (s *Store) AnyUnread() bool {
	for _, session := range s.sessions {
		if session.Unread {
			return true
		}
	}
	return false
}

// List returns a copy of the conversations in display order.
func (s *Store) List() []chat.Conversation {
	out := make([]chat.Conversation, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	return len(s.sessions)
}

func (s *Store) reindex() {
	s.index = make(map[int64]int, len(s.sessions))
	for i, session := range s.sessions {
		s.index[session.ID] = i
	}
}
