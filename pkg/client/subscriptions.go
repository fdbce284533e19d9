package client

import (
	"context"
	"fmt"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// ListSubscriptions returns the user's subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	if err := c.get(ctx, "/subscriptions", &subs); err != nil {
		return nil, fmt.Errorf("client.ListSubscriptions: %w", err)
	}
	return subs, nil
}

// CreateSubscription subscribes the user to a plan.
func (c *Client) CreateSubscription(ctx context.Context, req domain.CreateSubscriptionRequest) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := c.post(ctx, "/subscriptions", req, &s); err != nil {
		return nil, fmt.Errorf("client.CreateSubscription: %w", err)
	}
	return &s, nil
}
