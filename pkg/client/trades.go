package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// ListTrades returns a page of the user's trades, newest first.
func (c *Client) ListTrades(ctx context.Context, limit, offset int) ([]domain.Trade, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	path := "/trades"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var trades []domain.Trade
	if err := c.get(ctx, path, &trades); err != nil {
		return nil, fmt.Errorf("client.ListTrades: %w", err)
	}
	return trades, nil
}

// GetTradeStatistics returns win/loss totals across all trades.
func (c *Client) GetTradeStatistics(ctx context.Context) (*domain.TradeStatistics, error) {
	var s domain.TradeStatistics
	if err := c.get(ctx, "/trades/statistics", &s); err != nil {
		return nil, fmt.Errorf("client.GetTradeStatistics: %w", err)
	}
	return &s, nil
}
