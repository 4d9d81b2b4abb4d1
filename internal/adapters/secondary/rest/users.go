package rest

import (
	"context"
	"fmt"

	"github.com/tiback/tiback-client/internal/core/domain"
)

func (c *Client) ListUsers(ctx context.Context, token string, role domain.Role) ([]domain.User, error) {
	plural := role.Plural()
	if plural == "" {
		return nil, fmt.Errorf("rest: cannot list users for role %q", role)
	}
	var users []domain.User
	if err := c.getEnvelope(ctx, "/api/"+plural, token, &users, plural, "data"); err != nil {
		return nil, err
	}
	return users, nil
}
