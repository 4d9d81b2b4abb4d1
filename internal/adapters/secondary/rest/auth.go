package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
)

// Login posts credentials to /api/login.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error) {
	return c.authenticate(ctx, "/api/login", creds)
}

// Register posts a registration to /api/register. A successful registration
// returns a full session, like login.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error) {
	return c.authenticate(ctx, "/api/register", reg)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("rest: %s response has no access token: %w", path, apperrors.ErrMalformedResponse)
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a rotated token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	var pair domain.TokenPair
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/api/refresh", "", body, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, fmt.Errorf("rest: refresh response is missing tokens: %w", apperrors.ErrMalformedResponse)
	}
	return &pair, nil
}
