package notification

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Notification is an entry of the one-way notification feed.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Response is the wire shape of GET /notifications/ items.
type Response struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification converts the wire item into the local model.
func (r Response) Notification() Notification {
	return Notification{
		ID:        r.ID,
		Message:   r.Message,
		Read:      r.IsRead,
		CreatedAt: r.CreatedAt,
	}
}

// View is a notification as rendered, with its age as relative text.
type View struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Read    bool   `json:"read"`
	Time    string `json:"time"`
}

// RelativeTime formats createdAt relative to now, e.g. "3 minutes ago".
func RelativeTime(createdAt, now time.Time) string {
	if createdAt.IsZero() || now.Sub(createdAt) < time.Minute {
		return "Just now"
	}
	return humanize.RelTime(createdAt, now, "ago", "from now")
}

// View renders n relative to now.
func (n Notification) View(now time.Time) View {
	return View{
		ID:      n.ID,
		Message: n.Message,
		Read:    n.Read,
		Time:    RelativeTime(n.CreatedAt, now),
	}
}
