package chat

import "time"

// Message senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// TypeText is the only message type reconstructed into prompt windows.
// Other types may exist in storage (e.g. media attachments) but are skipped
// on read-back.
const TypeText = "text"

// Message is one turn's contribution to session history. Content is always
// stored post-translation-to-English. Messages are append-only: never mutated
// or deleted after creation.
type Message struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"sessionId"`
	UserID      string            `json:"userId,omitempty"`
	Sender      string            `json:"sender"`
	Content     string            `json:"content"`
	MessageType string            `json:"messageType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}
