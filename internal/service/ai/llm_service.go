package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/hualaowei/chatbot/backend/internal/fault"
	"github.com/hualaowei/chatbot/backend/internal/model/chat"
)

// Service wraps the chat model behind a prompt-template chain and exposes a
// single blocking Generate call with a per-call timeout.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	timeout   time.Duration
}

// NewService compiles the generation chain. timeout bounds every Generate
// call; zero selects a 60s default.
func NewService(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*Service, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		timeout:   timeout,
	}, nil
}

// GetChatModel exposes the underlying model so the classifier chains can
// reuse the same instance.
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

// Generate answers the last user message of window under systemPrompt. The
// window must end with a user-authored message; earlier entries become chat
// history. Failures are returned classified by fault kind.
func (s *Service) Generate(ctx context.Context, systemPrompt string, window []chat.Message) (string, error) {
	if len(window) == 0 {
		return "", fault.New(fault.EmptyResult, "ai.generate", fmt.Errorf("empty chat window"))
	}

	query := window[len(window)-1].Content
	history := HistoryMessages(window[:len(window)-1])

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.chain.Invoke(callCtx, map[string]any{
		"system":  systemPrompt,
		"history": history,
		"query":   query,
	})
	if err != nil {
		return "", fault.Wrap("ai.generate", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", fault.New(fault.EmptyResult, "ai.generate", fmt.Errorf("model returned no content"))
	}

	log.Printf("[ai] generated response, length=%d", len(response.Content))
	return response.Content, nil
}

// HistoryMessages converts stored messages into model chat turns. Non-text
// messages never reach this point; the store filters them on read.
func HistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.SenderBot:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
