package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// ListUsers returns a page of accounts. Requires an admin session.
func (c *Client) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	path := "/admin/users"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var users []domain.User
	if err := c.get(ctx, path, &users); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return users, nil
}

// GetSystemStats returns platform-wide totals. Requires an admin session.
func (c *Client) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	var s domain.SystemStats
	if err := c.get(ctx, "/admin/stats", &s); err != nil {
		return nil, fmt.Errorf("client.GetSystemStats: %w", err)
	}
	return &s, nil
}
