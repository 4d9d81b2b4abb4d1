package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tiback/tiback-client/internal/core/domain"
)

func (c *Client) ListComments(ctx context.Context, token string, ticketID int64) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := c.getEnvelope(ctx, fmt.Sprintf("/api/tickets/%d/comentarios", ticketID), token, &comments, "comentarios", "data"); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, token string, ticketID int64, text string) (*domain.Comment, error) {
	var comment domain.Comment
	body := struct {
		TicketID int64  `json:"id_ticket"`
		Text     string `json:"texto"`
	}{ticketID, text}
	if err := c.sendEnvelope(ctx, http.MethodPost, "/api/comentarios", token, body, &comment, "comentario", "data"); err != nil {
		return nil, err
	}
	return &comment, nil
}
