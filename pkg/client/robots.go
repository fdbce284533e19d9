package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

// ListRobots returns all robots owned by the user.
func (c *Client) ListRobots(ctx context.Context) ([]domain.Robot, error) {
	var robots []domain.Robot
	if err := c.get(ctx, "/robots", &robots); err != nil {
		return nil, fmt.Errorf("client.ListRobots: %w", err)
	}
	return robots, nil
}

// CreateRobot creates a stopped robot.
func (c *Client) CreateRobot(ctx context.Context, req domain.CreateRobotRequest) (*domain.Robot, error) {
	var r domain.Robot
	if err := c.post(ctx, "/robots", req, &r); err != nil {
		return nil, fmt.Errorf("client.CreateRobot: %w", err)
	}
	return &r, nil
}

// StartRobot puts a robot into the active state.
func (c *Client) StartRobot(ctx context.Context, id uuid.UUID) (*domain.Robot, error) {
	var r domain.Robot
	if err := c.post(ctx, "/robots/"+id.String()+"/start", nil, &r); err != nil {
		return nil, fmt.Errorf("client.StartRobot: %w", err)
	}
	return &r, nil
}

// StopRobot stops a running robot.
func (c *Client) StopRobot(ctx context.Context, id uuid.UUID) (*domain.Robot, error) {
	var r domain.Robot
	if err := c.post(ctx, "/robots/"+id.String()+"/stop", nil, &r); err != nil {
		return nil, fmt.Errorf("client.StopRobot: %w", err)
	}
	return &r, nil
}
