package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

// ListBrokers returns the user's broker connections.
func (c *Client) ListBrokers(ctx context.Context) ([]domain.Broker, error) {
	var brokers []domain.Broker
	if err := c.get(ctx, "/brokers", &brokers); err != nil {
		return nil, fmt.Errorf("client.ListBrokers: %w", err)
	}
	return brokers, nil
}

// CreateBroker registers a broker connection.
func (c *Client) CreateBroker(ctx context.Context, req domain.CreateBrokerRequest) (*domain.Broker, error) {
	var b domain.Broker
	if err := c.post(ctx, "/brokers", req, &b); err != nil {
		return nil, fmt.Errorf("client.CreateBroker: %w", err)
	}
	return &b, nil
}

// TestBroker asks the server to verify a broker connection.
func (c *Client) TestBroker(ctx context.Context, id uuid.UUID) (*domain.BrokerTestResult, error) {
	var res domain.BrokerTestResult
	if err := c.post(ctx, "/brokers/"+id.String()+"/test", nil, &res); err != nil {
		return nil, fmt.Errorf("client.TestBroker: %w", err)
	}
	return &res, nil
}
