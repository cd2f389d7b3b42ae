package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postChat(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	testRouter().ServeHTTP(w, req)
	return w
}

func TestChatMissingMessage(t *testing.T) {
	setupServices(t)

	if w := postChat(t, `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without message, got %d", w.Code)
	}
}

func TestChatUnconfiguredEndsStream(t *testing.T) {
	setupServices(t)

	// The test config carries no model key, so the turn fails; the failure
	// must arrive as an in-stream error event followed by the sentinel.
	w := postChat(t, `{"message": "Bangkok to Phuket tomorrow?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("chat failures stay in-stream, expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type wrong: %s", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "event:error") {
		t.Errorf("expected an error event:\n%s", body)
	}
	if !strings.Contains(body, "data: [DONE]") {
		t.Errorf("expected the [DONE] sentinel:\n%s", body)
	}
	if strings.Index(body, "event:error") > strings.Index(body, "data: [DONE]") {
		t.Error("error event must precede the sentinel")
	}
}
