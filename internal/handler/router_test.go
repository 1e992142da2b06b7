package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/chatsync/internal/service/auth"
	"github.com/zhouzirui/chatsync/internal/service/chat"
	"github.com/zhouzirui/chatsync/internal/service/connection"
	"github.com/zhouzirui/chatsync/internal/service/notification"
	"github.com/zhouzirui/chatsync/internal/service/realtime"
	"github.com/zhouzirui/chatsync/internal/service/ui"
)

func newTestRouter() http.Handler {
	broker := ui.NewBroker(nil)
	chatSvc := chat.NewService(nil, broker, nil)
	feed := notification.NewFeed(nil, broker, nil)
	engine := realtime.NewEngine(connection.DefaultOptions("ws://127.0.0.1:1"), auth.NewSession(), chatSvc, feed, broker, nil)
	return NewRouter(Deps{Engine: engine, Chat: chatSvc, Feed: feed, Broker: broker})
}

func TestRoutesAreMounted(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/auth/status", http.StatusOK},
		{http.MethodGet, "/api/chat/sessions", http.StatusOK},
		{http.MethodGet, "/api/chat/unread", http.StatusOK},
		{http.MethodGet, "/api/notifications", http.StatusOK},
		{http.MethodOptions, "/api/chat/messages", http.StatusNoContent},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tc := range cases {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
}
