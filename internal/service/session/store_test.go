package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore err: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStoreAppendAndReadWindow(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

			for i := 0; i < 12; i++ {
				sender := chat.SenderUser
				if i%2 == 1 {
					sender = chat.SenderBot
				}
				err := store.Append(ctx, chat.Message{
					SessionID:   "s1",
					UserID:      "u1",
					Sender:      sender,
					Content:     string(rune('a' + i)),
					MessageType: chat.TypeText,
					CreatedAt:   base.Add(time.Duration(i) * time.Second),
				})
				if err != nil {
					t.Fatalf("Append err: %v", err)
				}
			}

			window, err := store.ReadWindow(ctx, "s1", 10)
			if err != nil {
				t.Fatalf("ReadWindow err: %v", err)
			}
			if len(window) != 10 {
				t.Fatalf("window length = %d, want 10", len(window))
			}
			if window[0].Content != "c" || window[9].Content != "l" {
				t.Errorf("window spans %q..%q, want c..l", window[0].Content, window[9].Content)
			}
			for i := 1; i < len(window); i++ {
				if window[i].CreatedAt.Before(window[i-1].CreatedAt) {
					t.Fatal("window not in chronological order")
				}
			}
		})
	}
}

func TestStoreFiltersNonTextMessages(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

			entries := []chat.Message{
				{SessionID: "s2", UserID: "u1", Sender: chat.SenderUser, Content: "hello", MessageType: chat.TypeText, CreatedAt: base},
				{SessionID: "s2", UserID: "u1", Sender: chat.SenderUser, Content: "photo.jpg", MessageType: "image", CreatedAt: base.Add(time.Second)},
				{SessionID: "s2", UserID: "u1", Sender: chat.SenderBot, Content: "hi there", MessageType: chat.TypeText, CreatedAt: base.Add(2 * time.Second)},
			}
			for _, msg := range entries {
				if err := store.Append(ctx, msg); err != nil {
					t.Fatalf("Append err: %v", err)
				}
			}

			window, err := store.ReadWindow(ctx, "s2", 10)
			if err != nil {
				t.Fatalf("ReadWindow err: %v", err)
			}
			if len(window) != 2 {
				t.Fatalf("window length = %d, want 2", len(window))
			}
			if window[0].Content != "hello" || window[1].Content != "hi there" {
				t.Errorf("unexpected window contents: %+v", window)
			}
		})
	}
}

func TestStoreUnknownSessionIsEmpty(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			window, err := store.ReadWindow(context.Background(), "missing", 10)
			if err != nil {
				t.Fatalf("ReadWindow err: %v", err)
			}
			if len(window) != 0 {
				t.Errorf("window length = %d, want 0", len(window))
			}
		})
	}
}

func TestStoreSameTimestampKeepsInsertionOrder(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

			for _, content := range []string{"first", "second", "third"} {
				err := store.Append(ctx, chat.Message{
					SessionID: "s3", UserID: "u1", Sender: chat.SenderUser,
					Content: content, MessageType: chat.TypeText, CreatedAt: at,
				})
				if err != nil {
					t.Fatalf("Append err: %v", err)
				}
			}

			window, err := store.ReadWindow(ctx, "s3", 10)
			if err != nil {
				t.Fatalf("ReadWindow err: %v", err)
			}
			if len(window) != 3 || window[0].Content != "first" || window[2].Content != "third" {
				t.Errorf("unexpected order: %+v", window)
			}
		})
	}
}

func TestStoreMetadataRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := store.Append(ctx, chat.Message{
				SessionID: "s4", UserID: "u1", Sender: chat.SenderUser,
				Content: "bin overflow", MessageType: chat.TypeText,
				Metadata: map[string]string{"language": "zh"},
			})
			if err != nil {
				t.Fatalf("Append err: %v", err)
			}

			window, err := store.ReadWindow(ctx, "s4", 10)
			if err != nil {
				t.Fatalf("ReadWindow err: %v", err)
			}
			if len(window) != 1 {
				t.Fatalf("window length = %d, want 1", len(window))
			}
			if window[0].Metadata["language"] != "zh" {
				t.Errorf("metadata = %+v, want language=zh", window[0].Metadata)
			}
			if window[0].ID == "" || window[0].CreatedAt.IsZero() {
				t.Error("Append must fill in ID and timestamp")
			}
		})
	}
}
