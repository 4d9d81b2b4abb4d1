package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/store"
)

// UserService loads user directories by role.
type UserService struct {
	resource
	api ports.UserAPI
}

// NewUserService creates a new user service
func NewUserService(api ports.UserAPI, st *store.Store, logger *slog.Logger) *UserService {
	return &UserService{
		resource: newResource(st, logger, "user_service"),
		api:      api,
	}
}

// FetchUsers loads every user with role into that role's collection.
func (s *UserService) FetchUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if !role.Valid() {
		return nil, s.fail("fetch users", fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, role))
	}
	token, err := s.begin()
	if err != nil {
		return nil, err
	}

	users, err := s.api.ListUsers(ctx, token, role)
	if err != nil {
		return nil, s.fail("fetch users", err)
	}

	s.store.Dispatch(store.SetList(store.UserCollection(role), users))
	return users, nil
}
