package services

import (
	"context"
	"log/slog"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/store"
)

// TicketService loads and mutates tickets through the backend and keeps the
// ticket and assignment caches current.
type TicketService struct {
	resource
	api ports.TicketAPI
}

// NewTicketService creates a new ticket service
func NewTicketService(api ports.TicketAPI, st *store.Store, logger *slog.Logger) *TicketService {
	return &TicketService{
		resource: newResource(st, logger, "ticket_service"),
		api:      api,
	}
}

// FetchTickets loads the tickets visible to the current role.
func (s *TicketService) FetchTickets(ctx context.Context) ([]domain.Ticket, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}
	role := s.store.State().Auth.CurrentRole()

	tickets, err := s.api.ListTickets(ctx, token, role)
	if err != nil {
		return nil, s.fail("fetch tickets", err)
	}

	s.store.Dispatch(store.SetList(store.CollectionTickets, tickets))
	s.store.Dispatch(store.SetList(store.CollectionAssignments, currentAssignments(tickets)))
	return tickets, nil
}

// currentAssignments collects the active assignment of every ticket.
func currentAssignments(tickets []domain.Ticket) []domain.Assignment {
	var out []domain.Assignment
	for _, t := range tickets {
		if t.CurrentAssignment != nil {
			out = append(out, *t.CurrentAssignment)
		}
	}
	return out
}

// FetchTicket loads one ticket into the detail slot.
func (s *TicketService) FetchTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	ticket, err := s.api.GetTicket(ctx, token, id)
	if err != nil {
		return nil, s.fail("fetch ticket", err)
	}

	s.store.Dispatch(store.Upsert(store.CollectionTickets, *ticket))
	s.store.Dispatch(store.SetDetail(store.CollectionTickets, *ticket))
	return ticket, nil
}

// CreateTicket validates params locally before submitting them.
func (s *TicketService) CreateTicket(ctx context.Context, params domain.NewTicketParams) (*domain.Ticket, error) {
	if err := params.Validate(); err != nil {
		return nil, s.fail("create ticket", err)
	}
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	ticket, err := s.api.CreateTicket(ctx, token, params)
	if err != nil {
		return nil, s.fail("create ticket", err)
	}

	s.store.Dispatch(store.Add(store.CollectionTickets, *ticket))
	return ticket, nil
}

// UpdateStatus moves a ticket to status.
func (s *TicketService) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, s.fail("update ticket status", domain.ErrInvalidStatus)
	}
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	ticket, err := s.api.UpdateTicketStatus(ctx, token, id, status)
	if err != nil {
		return nil, s.fail("update ticket status", err)
	}

	s.store.Dispatch(store.Upsert(store.CollectionTickets, *ticket))
	s.refreshDetail(*ticket)
	return ticket, nil
}

// Assign routes a ticket to an analyst.
func (s *TicketService) Assign(ctx context.Context, params ports.AssignTicketParams) (*domain.Ticket, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	ticket, err := s.api.AssignTicket(ctx, token, params)
	if err != nil {
		return nil, s.fail("assign ticket", err)
	}

	s.store.Dispatch(store.Upsert(store.CollectionTickets, *ticket))
	if ticket.CurrentAssignment != nil {
		s.store.Dispatch(store.Upsert(store.CollectionAssignments, *ticket.CurrentAssignment))
	}
	s.refreshDetail(*ticket)
	return ticket, nil
}

func (s *TicketService) refreshDetail(ticket domain.Ticket) {
	if detail := s.store.State().Tickets.Detail; detail != nil && detail.ID == ticket.ID {
		s.store.Dispatch(store.SetDetail(store.CollectionTickets, ticket))
	}
}

// Refetch reloads the ticket list and, when the event concerns the ticket in
// the detail slot, that ticket too. The event payload itself is not trusted.
func (s *TicketService) Refetch(ctx context.Context, n domain.Notification) error {
	if _, err := s.FetchTickets(ctx); err != nil {
		return err
	}

	detail := s.store.State().Tickets.Detail
	if detail == nil {
		return nil
	}
	if n.EntityID != nil && *n.EntityID != detail.ID {
		return nil
	}
	if n.Type == domain.EventTicketDeleted {
		s.store.Dispatch(store.ClearDetail(store.CollectionTickets))
		return nil
	}
	_, err := s.FetchTicket(ctx, detail.ID)
	return err
}
