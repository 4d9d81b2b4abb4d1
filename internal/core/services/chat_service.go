package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/store"
)

// ChatService loads and sends messages on the ticket chat channels.
type ChatService struct {
	resource
	api ports.ChatAPI
}

// NewChatService creates a new chat service
func NewChatService(api ports.ChatAPI, st *store.Store, logger *slog.Logger) *ChatService {
	return &ChatService{
		resource: newResource(st, logger, "chat_service"),
		api:      api,
	}
}

// FetchMessages replaces the chat cache with one channel of one ticket.
func (s *ChatService) FetchMessages(ctx context.Context, kind domain.ChatKind, ticketID int64) ([]domain.ChatMessage, error) {
	if !kind.Valid() {
		return nil, s.fail("fetch chat", fmt.Errorf("unknown chat kind %q", kind))
	}
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	messages, err := s.api.ListChatMessages(ctx, token, kind, ticketID)
	if err != nil {
		return nil, s.fail("fetch chat", err)
	}

	s.store.Dispatch(store.SetList(store.CollectionChatMessages, messages))
	return messages, nil
}

// SendMessage posts text on a chat channel.
func (s *ChatService) SendMessage(ctx context.Context, kind domain.ChatKind, ticketID int64, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if !kind.Valid() {
		return nil, s.fail("send chat message", fmt.Errorf("unknown chat kind %q", kind))
	}
	if text == "" {
		return nil, s.fail("send chat message", fmt.Errorf("message text is required"))
	}
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	message, err := s.api.SendChatMessage(ctx, token, kind, ticketID, text)
	if err != nil {
		return nil, s.fail("send chat message", err)
	}

	s.store.Dispatch(store.Add(store.CollectionChatMessages, *message))
	return message, nil
}

// Refetch reloads the channel an event arrived on. When polling, the channel
// is chosen from the current role.
func (s *ChatService) Refetch(ctx context.Context, n domain.Notification) error {
	state := s.store.State()
	ticketID := focusTicket(state, n)
	if ticketID == 0 {
		return nil
	}

	var kind domain.ChatKind
	switch n.Type {
	case domain.EventSupervisorAnalystMsg:
		kind = domain.ChatSupervisorAnalyst
	case domain.EventAnalystClientMsg:
		kind = domain.ChatAnalystClient
	default:
		kind = defaultChatKind(state.Auth.CurrentRole())
	}

	_, err := s.FetchMessages(ctx, kind, ticketID)
	return err
}

func defaultChatKind(role domain.Role) domain.ChatKind {
	switch role {
	case domain.RoleSupervisor, domain.RoleAdministrador:
		return domain.ChatSupervisorAnalyst
	}
	return domain.ChatAnalystClient
}
