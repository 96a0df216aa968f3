package intent

import (
	"context"
	"testing"
	"time"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
)

func newDisabledService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("service without a model must be disabled")
	}
	return svc
}

func TestDisabledServiceFailsClosed(t *testing.T) {
	svc := newDisabledService(t)
	ctx := context.Background()

	if svc.InScope(ctx, "What does NEA handle?") {
		t.Error("disabled InScope must report false")
	}
	if got := svc.ClassifyIntent(ctx, "Can I report illegal dumping?"); got != GeneralQuery {
		t.Errorf("disabled ClassifyIntent = %q, want %q", got, GeneralQuery)
	}
}

func TestIsFollowUpWindowPreconditions(t *testing.T) {
	svc := newDisabledService(t)
	ctx := context.Background()
	now := time.Now()

	if svc.IsFollowUp(ctx, nil) {
		t.Error("empty window must not be a follow-up")
	}

	botLast := []chat.Message{
		{Sender: chat.SenderUser, Content: "What does NEA do?", CreatedAt: now},
		{Sender: chat.SenderBot, Content: "NEA handles environmental services.", CreatedAt: now},
	}
	if svc.IsFollowUp(ctx, botLast) {
		t.Error("window ending with a bot message must not be a follow-up")
	}
}
