package chat

import "github.com/zhouzirui/chatsync/internal/model/event"

// Tracker derives read/unread state from the conversation flags held by a
// Store. The global indicator is always recomputed from those flags.
type Tracker struct {
	store *Store
}

// NewTracker returns a tracker over store.
func NewTracker(store *Store) *Tracker {
	return &Tracker{store: store}
}

// Inbound flags id unread after a message arrived for a conversation that is
// not on screen. It reports false when id is unknown.
func (t *Tracker) Inbound(id int64) bool {
	return t.store.SetUnread(id, true)
}

// MarkRead clears the flag of id only.
func (t *Tracker) MarkRead(id int64) {
	t.store.SetUnread(id, false)
}

// MarkAllRead clears every flag and returns the ids that were unread.
func (t *Tracker) MarkAllRead() []int64 {
	ids := t.store.Unread()
	t.store.ClearUnread()
	return ids
}

// Any is the global unread indicator.
func (t *Tracker) Any() bool {
	return t.store.AnyUnread()
}

// Apply folds an authoritative read_status_update into the flags. It
// returns true when the server reports unread conversations the local list
// does not know about, in which case the caller must reload the list.
func (t *Tracker) Apply(update event.ReadStatusUpdate) (resync bool) {
	if update.AllRead != nil && *update.AllRead {
		t.store.ClearUnread()
		return false
	}

	if update.ChatID != nil && update.HasUnread != nil {
		t.store.SetUnread(*update.ChatID, *update.HasUnread)
	}

	if update.AnyUnreadSessions != nil {
		if !*update.AnyUnreadSessions {
			t.store.ClearUnread()
			return false
		}
		return !t.store.AnyUnread()
	}
	return false
}
