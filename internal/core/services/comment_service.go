package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/store"
)

// CommentService loads and posts ticket comments.
type CommentService struct {
	resource
	api ports.CommentAPI
}

// NewCommentService creates a new comment service
func NewCommentService(api ports.CommentAPI, st *store.Store, logger *slog.Logger) *CommentService {
	return &CommentService{
		resource: newResource(st, logger, "comment_service"),
		api:      api,
	}
}

// FetchComments replaces the comment cache with the comments of ticketID.
func (s *CommentService) FetchComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	comments, err := s.api.ListComments(ctx, token, ticketID)
	if err != nil {
		return nil, s.fail("fetch comments", err)
	}

	s.store.Dispatch(store.SetList(store.CollectionComments, comments))
	return comments, nil
}

// AddComment posts text on ticketID.
func (s *CommentService) AddComment(ctx context.Context, ticketID int64, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, s.fail("add comment", domain.ErrCommentRequired)
	}
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	comment, err := s.api.CreateComment(ctx, token, ticketID, text)
	if err != nil {
		return nil, s.fail("add comment", err)
	}

	s.store.Dispatch(store.Add(store.CollectionComments, *comment))
	return comment, nil
}

// Refetch reloads comments for the ticket named by the event, or for the
// ticket in the detail slot when polling.
func (s *CommentService) Refetch(ctx context.Context, n domain.Notification) error {
	ticketID := focusTicket(s.store.State(), n)
	if ticketID == 0 {
		return nil
	}
	_, err := s.FetchComments(ctx, ticketID)
	return err
}

// focusTicket picks the ticket an event refers to, falling back to the
// ticket currently in the detail slot.
func focusTicket(state *store.State, n domain.Notification) int64 {
	if n.EntityID != nil {
		return *n.EntityID
	}
	if detail := state.Tickets.Detail; detail != nil {
		return detail.ID
	}
	return 0
}
