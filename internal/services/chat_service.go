package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatbridge/internal/domain/conversation"
	"chatbridge/internal/llm"
	"chatbridge/internal/repository"
	chatbridge_errors "chatbridge/pkg/errors"
)

const DefaultSystemRole = "You are a helpful assistant."

// CompletionObserver records the outcome of each completion call.
type CompletionObserver interface {
	ObserveCompletion(err error, promptTokens, completionTokens int)
}

type ChatService struct {
	users     repository.UserRepository
	turns     repository.ConversationRepository
	completer llm.Completer
	observer  CompletionObserver
}

func NewChatService(users repository.UserRepository, turns repository.ConversationRepository, completer llm.Completer, observer CompletionObserver) *ChatService {
	return &ChatService{
		users:     users,
		turns:     turns,
		completer: completer,
		observer:  observer,
	}
}

type ChatInput struct {
	UserID  string
	Message string
	// SystemRole, when set, replaces the user's stored persona for this and
	// every later request.
	SystemRole *string
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (string, error) {
	if strings.TrimSpace(in.Message) == "" {
		return "", chatbridge_errors.ErrInvalidInput
	}

	u, err := s.users.GetUserByID(ctx, in.UserID)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", in.UserID, err)
	}

	systemRole := u.SystemRole
	if in.SystemRole != nil && *in.SystemRole != "" {
		systemRole = *in.SystemRole
		if err := s.users.UpdateSystemRole(ctx, u.ID, systemRole); err != nil {
			return "", fmt.Errorf("update system role: %w", err)
		}
	}
	if systemRole == "" {
		systemRole = DefaultSystemRole
	}

	history, err := s.turns.GetTurnsByUser(ctx, u.ID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: string(conversation.RoleSystem), Content: systemRole})
	for _, t := range history {
		messages = append(messages, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: string(conversation.RoleUser), Content: in.Message})

	resp, err := s.completer.Complete(ctx, messages)
	if s.observer != nil {
		s.observer.ObserveCompletion(err, resp.PromptTokens, resp.CompletionTokens)
	}
	if err != nil {
		return "", errors.Join(chatbridge_errors.ErrExternalService, err)
	}

	// Two independent writes: a failure after the first leaves an unanswered user turn.
	if err := s.turns.AppendTurn(ctx, &conversation.Turn{
		UserID:  u.ID,
		Role:    conversation.RoleUser,
		Content: in.Message,
	}); err != nil {
		return "", fmt.Errorf("store user turn: %w", err)
	}
	if err := s.turns.AppendTurn(ctx, &conversation.Turn{
		UserID:  u.ID,
		Role:    conversation.RoleAssistant,
		Content: resp.Content,
	}); err != nil {
		return "", fmt.Errorf("store assistant turn: %w", err)
	}

	return resp.Content, nil
}
