package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// GetDashboardStats returns the account KPIs.
func (c *Client) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	var s domain.DashboardStats
	if err := c.get(ctx, "/dashboard/stats", &s); err != nil {
		return nil, fmt.Errorf("client.GetDashboardStats: %w", err)
	}
	return &s, nil
}

// GetRecentTrades returns the most recent trades, newest first.
func (c *Client) GetRecentTrades(ctx context.Context) ([]domain.Trade, error) {
	var trades []domain.Trade
	if err := c.get(ctx, "/dashboard/recent-trades", &trades); err != nil {
		return nil, fmt.Errorf("client.GetRecentTrades: %w", err)
	}
	return trades, nil
}

// GetPerformance returns the balance series for period.
func (c *Client) GetPerformance(ctx context.Context, period domain.Period) ([]domain.PerformancePoint, error) {
	params := url.Values{}
	params.Set("period", string(period))
	var points []domain.PerformancePoint
	if err := c.get(ctx, "/dashboard/performance?"+params.Encode(), &points); err != nil {
		return nil, fmt.Errorf("client.GetPerformance: %w", err)
	}
	return points, nil
}

// GetActiveRobots returns the robots currently trading.
func (c *Client) GetActiveRobots(ctx context.Context) ([]domain.Robot, error) {
	var robots []domain.Robot
	if err := c.get(ctx, "/dashboard/active-robots", &robots); err != nil {
		return nil, fmt.Errorf("client.GetActiveRobots: %w", err)
	}
	return robots, nil
}
