package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chatsync/internal/model/event"
	"github.com/zhouzirui/chatsync/internal/model/notification"
	"github.com/zhouzirui/chatsync/internal/service/ui"
)

type fakeAPI struct {
	items      []notification.Notification
	fetchErr   error
	markErr    error
	markAllErr error

	fetchCalls int
	marked     []int64
	markedAll  int
}

func (f *fakeAPI) FetchNotifications(context.Context) ([]notification.Notification, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]notification.Notification(nil), f.items...), nil
}

func (f *fakeAPI) MarkNotificationRead(_ context.Context, id int64) error {
	f.marked = append(f.marked, id)
	return f.markErr
}

func (f *fakeAPI) MarkAllNotificationsRead(context.Context) error {
	f.markedAll++
	return f.markAllErr
}

type recorder struct {
	mu      sync.Mutex
	updates []ui.Update
}

func (r *recorder) Publish(u ui.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) lastToast() *ui.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].Toast != nil {
			return r.updates[i].Toast
		}
	}
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestFeed(api *fakeAPI) (*Feed, *recorder) {
	rec := &recorder{}
	feed := NewFeed(api, rec, nil)
	feed.now = func() time.Time { return fixedNow }
	return feed, rec
}

func TestLoadAndRenderRelativeTimes(t *testing.T) {
	api := &fakeAPI{items: []notification.Notification{
		{ID: 2, Message: "graded", CreatedAt: fixedNow.Add(-3 * time.Minute)},
		{ID: 1, Message: "enrolled", Read: true, CreatedAt: fixedNow.Add(-10 * time.Second)},
	}}
	feed, _ := newTestFeed(api)

	require.NoError(t, feed.Load(context.Background()))
	items := feed.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "3 minutes ago", items[0].Time)
	assert.Equal(t, "Just now", items[1].Time)
	assert.True(t, feed.HasUnread())
}

func TestLoadFailureKeepsList(t *testing.T) {
	api := &fakeAPI{items: []notification.Notification{{ID: 1}}}
	feed, rec := newTestFeed(api)
	require.NoError(t, feed.Load(context.Background()))

	api.fetchErr = errors.New("down")
	require.Error(t, feed.Load(context.Background()))
	assert.Len(t, feed.Items(), 1)
	require.NotNil(t, rec.lastToast())
	assert.Equal(t, ui.LevelError, rec.lastToast().Level)
}

func TestPushPrependsUnlessDuplicate(t *testing.T) {
	api := &fakeAPI{items: []notification.Notification{{ID: 1, Read: true}}}
	feed, rec := newTestFeed(api)
	require.NoError(t, feed.Load(context.Background()))

	feed.HandleEvent(context.Background(), event.Notification{NotificationID: 5, Message: "new quiz"})
	feed.HandleEvent(context.Background(), event.Notification{NotificationID: 5, Message: "new quiz"})

	items := feed.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(5), items[0].ID)
	assert.False(t, items[0].Read)
	assert.Equal(t, "Just now", items[0].Time)
	assert.True(t, feed.HasUnread())
	assert.Equal(t, "New notification received", rec.lastToast().Title)
}

func TestMarkRead(t *testing.T) {
	api := &fakeAPI{items: []notification.Notification{{ID: 1}, {ID: 2}}}
	feed, _ := newTestFeed(api)
	require.NoError(t, feed.Load(context.Background()))

	require.NoError(t, feed.MarkRead(context.Background(), 1))
	assert.Equal(t, []int64{1}, api.marked)
	items := feed.Items()
	assert.True(t, items[0].Read)
	assert.False(t, items[1].Read)
}

func TestMarkAllReadFailureReloads(t *testing.T) {
	api := &fakeAPI{
		items:      []notification.Notification{{ID: 1}, {ID: 2}},
		markAllErr: errors.New("500"),
	}
	feed, rec := newTestFeed(api)
	require.NoError(t, feed.Load(context.Background()))

	require.Error(t, feed.MarkAllRead(context.Background()))
	assert.Equal(t, 2, api.fetchCalls)
	assert.True(t, feed.HasUnread())
	assert.Equal(t, ui.LevelError, rec.lastToast().Level)
}

func TestMarkAllReadSuccess(t *testing.T) {
	api := &fakeAPI{items: []notification.Notification{{ID: 1}, {ID: 2}}}
	feed, rec := newTestFeed(api)
	require.NoError(t, feed.Load(context.Background()))

	require.NoError(t, feed.MarkAllRead(context.Background()))
	assert.False(t, feed.HasUnread())
	assert.Equal(t, ui.LevelSuccess, rec.lastToast().Level)
}

func TestReset(t *testing.T) {
	api := &fakeAPI{items: []notification.Notification{{ID: 1}}}
	feed, _ := newTestFeed(api)
	require.NoError(t, feed.Load(context.Background()))

	feed.Reset()
	assert.Empty(t, feed.Items())
	assert.False(t, feed.HasUnread())
}
