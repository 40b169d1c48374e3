package backend

import (
	"context"
	"net/http"

	"nightlife-storefront/internal/models"
)

// Login authenticates against the backend. The session cookie the backend
// sets lands in the credentials' jar.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	raw, err := c.call(ctx, http.MethodPost, "/auth/login", "/auth/login", nil, req)
	if err != nil {
		return nil, err
	}
	if u := NormalizeUser(raw); u != nil {
		return u, nil
	}
	return c.Me(ctx)
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	raw, err := c.call(ctx, http.MethodPost, "/auth/register", "/auth/register", nil, req)
	if err != nil {
		return nil, err
	}
	return NormalizeUser(raw), nil
}

// Me returns the signed in user, or nil when the backend says nobody is.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	raw, err := c.get(ctx, "/auth/me", "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	return NormalizeUser(raw), nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/auth/logout", "/auth/logout", nil, nil)
	return err
}
