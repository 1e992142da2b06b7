// Package ui is the boundary towards the presentation layer: components
// publish state changes and transient alerts, renderers subscribe.
package ui

import (
	"sync"

	"go.uber.org/zap"
)

// Kind names what changed.
type Kind string

const (
	KindSessions      Kind = "sessions"
	KindMessages      Kind = "messages"
	KindNotifications Kind = "notifications"
	KindConnection    Kind = "connection"
	KindToast         Kind = "toast"
)

// Toast levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

// Action is the button attached to a toast. SenderID identifies the
// conversation to open when the action is taken.
type Action struct {
	Label    string `json:"label"`
	SenderID int64  `json:"senderId"`
}

// Toast is a transient user-facing alert.
type Toast struct {
	Level       string  `json:"level"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Action      *Action `json:"action,omitempty"`
}

// Update is one change notification. Renderers re-read the state named by
// Kind; toasts carry their content inline.
type Update struct {
	Kind  Kind   `json:"kind"`
	Toast *Toast `json:"toast,omitempty"`
}

// Publisher receives updates from the sync components.
type Publisher interface {
	Publish(Update)
}

// Changed is a shorthand for a state change update.
func Changed(kind Kind) Update {
	return Update{Kind: kind}
}

// Alert is a shorthand for a toast update.
func Alert(level, title, description string) Update {
	return Update{Kind: KindToast, Toast: &Toast{Level: level, Title: title, Description: description}}
}

// Broker fans updates out to subscribers. Slow subscribers lose updates
// instead of blocking publishers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Update
	nextID uint64
	logger *zap.Logger
}

// NewBroker creates an empty broker.
func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		subs:   make(map[uint64]chan Update),
		logger: logger,
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unregisters it and closes the channel.
func (b *Broker) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers u to every subscriber without blocking.
func (b *Broker) Publish(u Update) {
	if u.Toast != nil {
		b.logger.Debug("toast", zap.String("level", u.Toast.Level), zap.String("title", u.Toast.Title))
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- u:
		default:
			b.logger.Warn("dropping ui update for slow subscriber", zap.Uint64("subscriber", id), zap.String("kind", string(u.Kind)))
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

type discard struct{}

func (discard) Publish(Update) {}

// Discard is a Publisher that drops every update.
var Discard Publisher = discard{}
