package orchestrator

import (
	"context"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
	"github.com/hualaowei/chatbot/backend/internal/service/index"
	"github.com/hualaowei/chatbot/backend/internal/service/intent"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// LanguageService detects the language of text and translates between
// supported languages. Translate must treat unsupported code pairs as a
// no-op passthrough, not an error.
type LanguageService interface {
	Detect(text string) (code string, confidence float64)
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

// Classifier bundles the three routing decisions. Every method fails
// closed: errors surface as the restrictive default, never as an error
// value.
type Classifier interface {
	InScope(ctx context.Context, query string) bool
	IsFollowUp(ctx context.Context, window []chat.Message) bool
	ClassifyIntent(ctx context.Context, query string) intent.Intent
}

// Generator produces the final response text from a system prompt and the
// conversation window, whose last entry is the current user turn.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, window []chat.Message) (string, error)
}

// Retriever answers top-k similarity queries against the issue index. A nil
// error with an empty slice means the index had no matches.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]index.Hit, error)
}

// SessionStore is the append-only chat log.
type SessionStore interface {
	Append(ctx context.Context, msg chat.Message) error
	ReadWindow(ctx context.Context, sessionID string, max int) ([]chat.Message, error)
}

// ReportDialogue is the guided report sub-dialogue. While Active reports
// true for a session, the pipeline routes every turn of that session to
// HandleTurn and applies no gating of its own.
type ReportDialogue interface {
	Active(ctx context.Context, sessionID string) bool
	Start(ctx context.Context, sessionID, userID string) (string, error)
	HandleTurn(ctx context.Context, sessionID, text string, attachments []string) (string, error)
}
