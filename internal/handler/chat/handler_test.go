package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chatsync/internal/model/chat"
	chatservice "github.com/zhouzirui/chatsync/internal/service/chat"
)

type stubAPI struct {
	sessions []chat.Conversation
	lastFile *chat.Attachment
	sends    int
}

func (s *stubAPI) FetchSessions(context.Context) ([]chat.Conversation, error) {
	return s.sessions, nil
}

func (s *stubAPI) FetchHistory(context.Context, int64) ([]chat.Message, error) {
	return []chat.Message{{ID: 1, Content: "earlier"}}, nil
}

func (s *stubAPI) SendMessage(_ context.Context, _ int64, content string, file *chat.Attachment) (chat.Message, error) {
	s.sends++
	s.lastFile = file
	return chat.Message{ID: 77, Content: content, IsSender: true}, nil
}

func (s *stubAPI) MarkChatRead(context.Context, int64) error   { return nil }
func (s *stubAPI) InitializeChat(context.Context, int64) error { return nil }

func setupRouter() (*chi.Mux, *chatservice.Service, *stubAPI) {
	api := &stubAPI{sessions: []chat.Conversation{{ID: 3, Name: "Ann", Unread: true}}}
	chatSvc := chatservice.NewService(api, nil, nil)
	handler := New(chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc, api
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSelectThenListMessages(t *testing.T) {
	r, chatSvc, _ := setupRouter()
	if err := chatSvc.LoadSessions(context.Background()); err != nil {
		t.Fatalf("LoadSessions err: %v", err)
	}

	resp := postJSON(r, "/chat/select", `{"userId":3}`)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/messages", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var body struct {
		ConversationID int64          `json:"conversationId"`
		Messages       []chat.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body.ConversationID != 3 || len(body.Messages) != 1 {
		t.Fatalf("unexpected body %+v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/chat/unread", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if strings.TrimSpace(resp.Body.String()) != `{"anyUnread":false}` {
		t.Fatalf("unexpected unread body %s", resp.Body.String())
	}
}

func TestSendEmptyMessageRejected(t *testing.T) {
	r, _, api := setupRouter()

	resp := postJSON(r, "/chat/messages", `{"receiver":3,"content":""}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if api.sends != 0 {
		t.Fatalf("expected no backend call, got %d", api.sends)
	}
}

func TestSendJSONMessage(t *testing.T) {
	r, _, _ := setupRouter()

	resp := postJSON(r, "/chat/messages", `{"receiver":3,"content":"hello"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var msg chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if msg.ID != 77 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestSendMultipartMessage(t *testing.T) {
	r, _, api := setupRouter()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("receiver", "3")
	fw, err := mw.CreateFormFile("file", "notes.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if api.lastFile == nil || api.lastFile.Name != "notes.pdf" || string(api.lastFile.Data) != "%PDF" {
		t.Fatalf("unexpected attachment %+v", api.lastFile)
	}
}

func TestOpenAndViewToggle(t *testing.T) {
	r, chatSvc, _ := setupRouter()

	resp := postJSON(r, "/chat/open", `{"userId":9,"isNewChat":true,"name":"Nina"}`)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if !chatSvc.IsOpen() || chatSvc.ActiveID() != 9 {
		t.Fatalf("expected open panel on 9, got open=%v active=%d", chatSvc.IsOpen(), chatSvc.ActiveID())
	}

	resp = postJSON(r, "/chat/view", `{"open":false}`)
	if resp.Code != http.StatusNoContent || chatSvc.IsOpen() {
		t.Fatalf("expected panel closed, got %d", resp.Code)
	}
}

func TestSelectInvalidBody(t *testing.T) {
	r, _, _ := setupRouter()

	resp := postJSON(r, "/chat/select", `not json`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = postJSON(r, "/chat/select", `{"userId":0}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
