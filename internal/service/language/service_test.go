package language

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hualaowei/chatbot/backend/internal/fault"
)

func TestDetect(t *testing.T) {
	svc := NewService("", 0)

	cases := []struct {
		text string
		want string
	}{
		{"Where can I report a broken streetlight near my block?", "en"},
		{"这个垃圾桶已经满了，可以帮我报告吗？", "zh"},
	}

	for _, tc := range cases {
		code, confidence := svc.Detect(tc.text)
		if code != tc.want {
			t.Errorf("Detect(%q) = %q, want %q", tc.text, code, tc.want)
		}
		if confidence <= 0 || confidence > 1 {
			t.Errorf("Detect(%q) confidence = %v, want (0, 1]", tc.text, confidence)
		}
	}
}

func TestTranslateRoundTrip(t *testing.T) {
	var gotReq translateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(translateResponse{Translation: "The trash bin is full."})
	}))
	defer server.Close()

	svc := NewService(server.URL, 0)
	got, err := svc.Translate(context.Background(), "这个垃圾桶已经满了", "zh", "en")
	if err != nil {
		t.Fatalf("Translate err: %v", err)
	}
	if got != "The trash bin is full." {
		t.Errorf("Translate = %q", got)
	}
	if gotReq.SourceLang != "zho_Hans" || gotReq.TargetLang != "eng_Latn" {
		t.Errorf("request codes = %s -> %s, want zho_Hans -> eng_Latn", gotReq.SourceLang, gotReq.TargetLang)
	}
}

func TestTranslatePassthrough(t *testing.T) {
	svc := NewService("http://translate.invalid", 0)
	ctx := context.Background()

	// Same-language and unsupported codes skip the endpoint entirely.
	cases := []struct{ src, dst string }{
		{"en", "en"},
		{"fr", "en"},
		{"en", "ko"},
	}
	for _, tc := range cases {
		got, err := svc.Translate(ctx, "hello", tc.src, tc.dst)
		if err != nil {
			t.Errorf("Translate(%s->%s) err: %v", tc.src, tc.dst, err)
		}
		if got != "hello" {
			t.Errorf("Translate(%s->%s) = %q, want passthrough", tc.src, tc.dst, got)
		}
	}
}

func TestTranslateErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewService(server.URL, 0)
	_, err := svc.Translate(context.Background(), "hello", "en", "zh")
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if kind := fault.KindOf(err); kind != fault.Transport {
		t.Errorf("fault kind = %v, want %v", kind, fault.Transport)
	}
}

func TestTranslateEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(translateResponse{})
	}))
	defer server.Close()

	svc := NewService(server.URL, 0)
	_, err := svc.Translate(context.Background(), "hello", "en", "zh")
	if err == nil {
		t.Fatal("expected error for empty translation")
	}
	if kind := fault.KindOf(err); kind != fault.EmptyResult {
		t.Errorf("fault kind = %v, want %v", kind, fault.EmptyResult)
	}
}
