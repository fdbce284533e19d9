package client

import (
	"context"
	"fmt"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// Login exchanges email and password for a session.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error) {
	resp, err := c.exchange(ctx, "/auth/login", creds)
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return resp, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error) {
	resp, err := c.exchange(ctx, "/auth/register", reg)
	if err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return resp, nil
}

// LoginWithGoogle exchanges a Google ID token for a session.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (*domain.AuthResponse, error) {
	resp, err := c.exchange(ctx, "/auth/google", domain.GoogleLogin{Token: idToken})
	if err != nil {
		return nil, fmt.Errorf("client.LoginWithGoogle: %w", err)
	}
	return resp, nil
}

func (c *Client) exchange(ctx context.Context, path string, body any) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid() {
		return nil, newError(KindUnknown, 0, "the server returned an incomplete sign-in response", nil)
	}
	return &resp, nil
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// GetProfile returns the authenticated user.
func (c *Client) GetProfile(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/auth/profile", &u); err != nil {
		return nil, fmt.Errorf("client.GetProfile: %w", err)
	}
	return &u, nil
}

// UpdateProfile applies a partial update and returns the stored user.
func (c *Client) UpdateProfile(ctx context.Context, patch domain.ProfileUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.put(ctx, "/auth/profile", patch, &u); err != nil {
		return nil, fmt.Errorf("client.UpdateProfile: %w", err)
	}
	return &u, nil
}

// ChangePassword rotates the account password.
func (c *Client) ChangePassword(ctx context.Context, pc domain.PasswordChange) error {
	if err := c.put(ctx, "/auth/change-password", pc, nil); err != nil {
		return fmt.Errorf("client.ChangePassword: %w", err)
	}
	return nil
}
