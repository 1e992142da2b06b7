// Package notification keeps the signed-in user's notification feed.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/chatsync/internal/model/event"
	"github.com/zhouzirui/chatsync/internal/model/notification"
	"github.com/zhouzirui/chatsync/internal/service/ui"
)

// API is the part of the backend the feed needs.
type API interface {
	FetchNotifications(ctx context.Context) ([]notification.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Feed is the newest-first list of notifications.
type Feed struct {
	mu    sync.Mutex
	items []notification.Notification
	// generation changes on Reset so loads started before it are dropped.
	generation uint64

	api    API
	pub    ui.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewFeed creates an empty feed.
func NewFeed(api API, pub ui.Publisher, logger *zap.Logger) *Feed {
	if pub == nil {
		pub = ui.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		api:    api,
		pub:    pub,
		logger: logger.With(zap.String("component", "notifications")),
		now:    time.Now,
	}
}

// Load replaces the feed with the server's list. On failure the previous
// list is kept.
func (f *Feed) Load(ctx context.Context) error {
	f.mu.Lock()
	generation := f.generation
	f.mu.Unlock()

	items, err := f.api.FetchNotifications(ctx)
	if err != nil {
		f.logger.Warn("failed to load notifications", zap.Error(err))
		f.pub.Publish(ui.Alert(ui.LevelError, "Failed to load notifications", ""))
		return fmt.Errorf("load notifications: %w", err)
	}

	f.mu.Lock()
	if generation != f.generation {
		f.mu.Unlock()
		f.logger.Debug("discarding notifications loaded before reset")
		return nil
	}
	f.items = items
	f.mu.Unlock()

	f.pub.Publish(ui.Changed(ui.KindNotifications))
	return nil
}

// HandleEvent folds one decoded notification socket event into the feed.
func (f *Feed) HandleEvent(_ context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.Notification:
		if !f.prepend(e) {
			f.logger.Debug("duplicate notification", zap.Int64("id", e.NotificationID))
			return
		}
		f.pub.Publish(ui.Changed(ui.KindNotifications))
		f.pub.Publish(ui.Alert(ui.LevelInfo, "New notification received", e.Message))
	case event.ConnectionStatus:
		f.logger.Debug("notification socket status", zap.String("status", e.Status), zap.Int64("user_id", e.UserID))
	case event.Error:
		f.logger.Warn("notification socket reported an error", zap.String("error", e.Text()))
	default:
		f.logger.Debug("ignoring notification event", zap.String("type", ev.Type()))
	}
}

func (f *Feed) prepend(e event.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == e.NotificationID {
			return false
		}
	}
	entry := notification.Notification{ID: e.NotificationID, Message: e.Message, CreatedAt: f.now()}
	f.items = append([]notification.Notification{entry}, f.items...)
	return true
}

// MarkRead flips id to read and tells the server.
func (f *Feed) MarkRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
		}
	}
	f.mu.Unlock()
	f.pub.Publish(ui.Changed(ui.KindNotifications))

	if err := f.api.MarkNotificationRead(ctx, id); err != nil {
		f.logger.Warn("failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		f.pub.Publish(ui.Alert(ui.LevelError, "Failed to mark notification as read", ""))
		_ = f.Load(ctx)
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead flips every entry to read and tells the server.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	for i := range f.items {
		f.items[i].Read = true
	}
	f.mu.Unlock()
	f.pub.Publish(ui.Changed(ui.KindNotifications))

	if err := f.api.MarkAllNotificationsRead(ctx); err != nil {
		f.logger.Warn("failed to mark all notifications read", zap.Error(err))
		f.pub.Publish(ui.Alert(ui.LevelError, "Failed to mark all notifications as read", ""))
		_ = f.Load(ctx)
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	f.pub.Publish(ui.Alert(ui.LevelSuccess, "All notifications marked as read", ""))
	return nil
}

// Items renders the feed with relative times.
func (f *Feed) Items() []notification.View {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	views := make([]notification.View, 0, len(f.items))
	for _, item := range f.items {
		views = append(views, item.View(now))
	}
	return views
}

// HasUnread reports whether any entry is unread.
func (f *Feed) HasUnread() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if !item.Read {
			return true
		}
	}
	return false
}

// Reset empties the feed.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.items = nil
	f.generation++
	f.mu.Unlock()
	f.pub.Publish(ui.Changed(ui.KindNotifications))
}
