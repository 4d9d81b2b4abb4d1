package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
)

// ticketListPath returns the role-scoped listing path. Administrators see
// every ticket.
func ticketListPath(role domain.Role) string {
	switch role {
	case domain.RoleCliente, domain.RoleAnalista, domain.RoleSupervisor:
		return "/api/tickets/" + string(role)
	}
	return "/api/tickets"
}

func (c *Client) ListTickets(ctx context.Context, token string, role domain.Role) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := c.getEnvelope(ctx, ticketListPath(role), token, &tickets, "tickets", "data"); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) GetTicket(ctx context.Context, token string, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.getEnvelope(ctx, fmt.Sprintf("/api/tickets/%d", id), token, &ticket, "ticket", "data"); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) CreateTicket(ctx context.Context, token string, params domain.NewTicketParams) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.sendEnvelope(ctx, http.MethodPost, "/api/tickets", token, params, &ticket, "ticket", "data"); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) UpdateTicketStatus(ctx context.Context, token string, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	var ticket domain.Ticket
	body := map[string]string{"estado": string(status)}
	if err := c.sendEnvelope(ctx, http.MethodPut, fmt.Sprintf("/api/tickets/%d/estado", id), token, body, &ticket, "ticket", "data"); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) AssignTicket(ctx context.Context, token string, params ports.AssignTicketParams) (*domain.Ticket, error) {
	var ticket domain.Ticket
	body := struct {
		AnalystID int64  `json:"id_analista"`
		Comment   string `json:"comentario,omitempty"`
	}{params.AnalystID, params.Comment}
	if err := c.sendEnvelope(ctx, http.MethodPut, fmt.Sprintf("/api/tickets/%d/asignar", params.TicketID), token, body, &ticket, "ticket", "data"); err != nil {
		return nil, err
	}
	return &ticket, nil
}
