package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zhouzirui/chatsync/internal/model/notification"
)

// FetchNotifications returns the user's notifications as stored by the backend.
func (c *Client) FetchNotifications(ctx context.Context) ([]notification.Notification, error) {
	var resp []notification.Response
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/", nil, &resp); err != nil {
		return nil, err
	}

	items := make([]notification.Notification, 0, len(resp))
	for _, item := range resp {
		items = append(items, item.Notification())
	}
	return items, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/notifications/%d/", id), nil, nil)
}

// MarkAllNotificationsRead marks every notification of the user as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/notifications/mark_all_read/", nil, nil)
}
