package intent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/hualaowei/chatbot/backend/internal/model/chat"
	"github.com/hualaowei/chatbot/backend/internal/service/ai"
)

// followUpWindow is how many trailing messages the follow-up classifier sees.
const followUpWindow = 5

// Service runs the three routing classifiers over a shared chat model.
// Every classifier fails closed: on any error the caller gets the safe
// default (out of scope, not a follow-up, general query) instead of an error.
type Service struct {
	enabled       bool
	scopeChain    compose.Runnable[map[string]any, *schema.Message]
	intentChain   compose.Runnable[map[string]any, *schema.Message]
	followUpChain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the classifier chains. A nil chatModel yields a
// disabled service whose answers are the fail-closed defaults.
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	svc := &Service{enabled: chatModel != nil}
	if !svc.enabled {
		return svc, nil
	}

	scopeChain, err := compileSingleTurn(ctx, chatModel, scopeSystemPrompt, scopeUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile scope classifier chain: %w", err)
	}

	intentChain, err := compileSingleTurn(ctx, chatModel, intentSystemPrompt, intentUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile intent classifier chain: %w", err)
	}

	followUpTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(followUpSystemPrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage(followUpQuestion),
	)
	followUpChain := compose.NewChain[map[string]any, *schema.Message]()
	followUpChain.AppendChatTemplate(followUpTemplate)
	followUpChain.AppendChatModel(chatModel)
	followUpRunnable, err := followUpChain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile follow-up classifier chain: %w", err)
	}

	svc.scopeChain = scopeChain
	svc.intentChain = intentChain
	svc.followUpChain = followUpRunnable
	return svc, nil
}

func compileSingleTurn(ctx context.Context, chatModel model.ChatModel, system, user string) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// Enabled reports whether a chat model backs the classifiers.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

// InScope reports whether the query belongs to municipal service topics.
// Errors and ambiguous output count as out of scope.
func (s *Service) InScope(ctx context.Context, query string) bool {
	if !s.Enabled() {
		return false
	}

	msg, err := s.scopeChain.Invoke(ctx, map[string]any{"query": query})
	if err != nil {
		log.Printf("[intent] scope classifier invoke failed, treat as out of scope: %v", err)
		return false
	}
	if msg == nil {
		return false
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(msg.Content)), "yes")
}

// ClassifyIntent predicts the routing intent for query. Classifier failure
// or unusable output yields GeneralQuery.
func (s *Service) ClassifyIntent(ctx context.Context, query string) Intent {
	if !s.Enabled() {
		return GeneralQuery
	}

	msg, err := s.intentChain.Invoke(ctx, map[string]any{"query": query})
	if err != nil {
		log.Printf("[intent] intent classifier invoke failed, default to general query: %v", err)
		return GeneralQuery
	}
	if msg == nil {
		return GeneralQuery
	}

	resolved := ResolveIntent(msg.Content)
	log.Printf("[intent] classified intent=%s raw=%q", resolved, strings.TrimSpace(msg.Content))
	return resolved
}

// IsFollowUp reports whether the last message of window continues the
// preceding exchange. The window must end with a user-authored message;
// otherwise no model call is made and the answer is false. Only the trailing
// five messages are shown to the classifier.
func (s *Service) IsFollowUp(ctx context.Context, window []chat.Message) bool {
	if len(window) == 0 || window[len(window)-1].Sender != chat.SenderUser {
		return false
	}
	if !s.Enabled() {
		return false
	}

	start := len(window) - followUpWindow
	if start < 0 {
		start = 0
	}
	history := ai.HistoryMessages(window[start:])

	msg, err := s.followUpChain.Invoke(ctx, map[string]any{"history": history})
	if err != nil {
		log.Printf("[intent] follow-up classifier invoke failed, treat as new topic: %v", err)
		return false
	}
	if msg == nil {
		return false
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(msg.Content)), "yes")
}
