package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
)

type stubRunner struct {
	result chat.TurnResult
	err    error
	last   chat.TurnInput
}

func (s *stubRunner) Run(_ context.Context, in chat.TurnInput) (chat.TurnResult, error) {
	s.last = in
	if s.err != nil {
		return chat.TurnResult{}, s.err
	}
	result := s.result
	if result.SessionID == "" {
		result.SessionID = in.SessionID
	}
	return result, nil
}

func newTestRouter(runner *stubRunner) http.Handler {
	r := chi.NewRouter()
	New(runner).RegisterRoutes(r)
	return r
}

func TestHandleQueryJSON(t *testing.T) {
	runner := &stubRunner{result: chat.TurnResult{Response: "the bin will be cleared today", Language: "en"}}
	router := newTestRouter(runner)

	body := `{"sessionId":"s1","userId":"u1","text":"when is the bin cleared?"}`
	req := httptest.NewRequest(http.MethodPost, "/chatbot/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if resp.SessionID != "s1" || resp.Response != "the bin will be cleared today" || resp.Language != "en" {
		t.Errorf("response = %+v", resp)
	}
	if runner.last.Text != "when is the bin cleared?" || runner.last.UserID != "u1" {
		t.Errorf("pipeline input = %+v", runner.last)
	}
}

func TestHandleQueryInvalidBody(t *testing.T) {
	router := newTestRouter(&stubRunner{})

	req := httptest.NewRequest(http.MethodPost, "/chatbot/query", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleQueryMultipartAudio(t *testing.T) {
	runner := &stubRunner{result: chat.TurnResult{Response: "heard you", Language: "en"}}
	router := newTestRouter(runner)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("sessionId", "s2"); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("userId", "u2"); err != nil {
		t.Fatal(err)
	}
	part, err := mw.CreateFormFile("audio", "turn.ogg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte{0x4f, 0x67, 0x67, 0x53}); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/chatbot/query", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(runner.last.Audio) != 4 {
		t.Errorf("audio bytes = %d, want 4", len(runner.last.Audio))
	}
	if runner.last.AudioFormat != "ogg" {
		t.Errorf("audio format = %q, want ogg", runner.last.AudioFormat)
	}
	if runner.last.SessionID != "s2" {
		t.Errorf("session = %q", runner.last.SessionID)
	}
}

func TestHandleQueryMultipartWithoutAudio(t *testing.T) {
	runner := &stubRunner{result: chat.TurnResult{Response: "noted", Language: "en"}}
	router := newTestRouter(runner)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("sessionId", "s3"); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("text", "streetlight out at Blk 5"); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("attachments", "photo-1.jpg"); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/chatbot/query", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if runner.last.Text != "streetlight out at Blk 5" {
		t.Errorf("text = %q", runner.last.Text)
	}
	if len(runner.last.Attachments) != 1 || runner.last.Attachments[0] != "photo-1.jpg" {
		t.Errorf("attachments = %v", runner.last.Attachments)
	}
	if runner.last.Audio != nil {
		t.Error("audio must be absent")
	}
}

func TestHandleQueryPipelineError(t *testing.T) {
	router := newTestRouter(&stubRunner{err: errors.New("unhandled intent")})

	req := httptest.NewRequest(http.MethodPost, "/chatbot/query", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	runner := &stubRunner{result: chat.TurnResult{Response: "done", Language: "en"}}
	server := httptest.NewServer(newTestRouter(runner))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/chatbot/ws/ws-session"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsInbound{UserID: "u1", Text: "any updates?"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	var out wsOutbound
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read err: %v", err)
	}
	if out.SessionID != "ws-session" || out.Response != "done" {
		t.Errorf("outbound = %+v", out)
	}
	if runner.last.SessionID != "ws-session" {
		t.Errorf("turn session = %q, want pinned ws-session", runner.last.SessionID)
	}
}
