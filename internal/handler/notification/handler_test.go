package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chatsync/internal/model/notification"
	notificationservice "github.com/zhouzirui/chatsync/internal/service/notification"
)

type stubAPI struct {
	markErr error
	marked  []int64
}

func (s *stubAPI) FetchNotifications(context.Context) ([]notification.Notification, error) {
	return []notification.Notification{{ID: 4, Message: "quiz graded"}}, nil
}

func (s *stubAPI) MarkNotificationRead(_ context.Context, id int64) error {
	s.marked = append(s.marked, id)
	return s.markErr
}

func (s *stubAPI) MarkAllNotificationsRead(context.Context) error { return s.markErr }

func setupRouter(t *testing.T, api *stubAPI) *chi.Mux {
	t.Helper()
	feed := notificationservice.NewFeed(api, nil, nil)
	if err := feed.Load(context.Background()); err != nil {
		t.Fatalf("Load err: %v", err)
	}

	r := chi.NewRouter()
	New(feed).RegisterRoutes(r)
	return r
}

func TestListNotifications(t *testing.T) {
	r := setupRouter(t, &stubAPI{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/notifications/", nil))

	var body struct {
		Items     []notification.View `json:"items"`
		HasUnread bool                `json:"hasUnread"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body.Items) != 1 || !body.HasUnread {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMarkRead(t *testing.T) {
	api := &stubAPI{}
	r := setupRouter(t, api)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, "/notifications/4", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if len(api.marked) != 1 || api.marked[0] != 4 {
		t.Fatalf("unexpected marked ids %v", api.marked)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPatch, "/notifications/abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMarkAllReadFailure(t *testing.T) {
	r := setupRouter(t, &stubAPI{markErr: errors.New("500")})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/notifications/mark_all_read", nil))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
