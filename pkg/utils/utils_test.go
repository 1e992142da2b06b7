package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusBadRequest, "bad")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"error":"bad"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))

	var dst struct{}
	if DecodeJSON(resp, req, &dst) {
		t.Fatal("expected decode failure")
	}
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendSSEEvent(t *testing.T) {
	resp := httptest.NewRecorder()
	if err := SendSSEEvent(resp, resp, "sessions", map[string]string{"kind": "sessions"}); err != nil {
		t.Fatalf("SendSSEEvent err: %v", err)
	}

	want := "event: sessions\ndata: {\"kind\":\"sessions\"}\n\n"
	if resp.Body.String() != want {
		t.Fatalf("unexpected frame %q", resp.Body.String())
	}
}
