package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// chatSegment turns chat_supervisor_analista into chat-supervisor-analista.
func chatSegment(kind domain.ChatKind) string {
	if kind == domain.ChatAnalystClient {
		return "chat-analista-cliente"
	}
	return "chat-supervisor-analista"
}

func (c *Client) ListChatMessages(ctx context.Context, token string, kind domain.ChatKind, ticketID int64) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	path := fmt.Sprintf("/api/tickets/%d/%s", ticketID, chatSegment(kind))
	if err := c.getEnvelope(ctx, path, token, &messages, "mensajes", "data"); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) SendChatMessage(ctx context.Context, token string, kind domain.ChatKind, ticketID int64, text string) (*domain.ChatMessage, error) {
	var message domain.ChatMessage
	body := struct {
		TicketID int64  `json:"id_ticket"`
		Text     string `json:"mensaje"`
	}{ticketID, text}
	if err := c.sendEnvelope(ctx, http.MethodPost, "/api/"+chatSegment(kind), token, body, &message, "data"); err != nil {
		return nil, err
	}
	return &message, nil
}
