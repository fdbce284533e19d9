package domain

// SystemStats is the platform-wide summary from /admin/stats.
type SystemStats struct {
	TotalUsers            int64                 `json:"total_users"`
	ActiveUsers           int64                 `json:"active_users"`
	TotalRobots           int64                 `json:"total_robots"`
	ActiveRobots          int64                 `json:"active_robots"`
	TotalTrades           int64                 `json:"total_trades"`
	TotalProfit           float64               `json:"total_profit"`
	SubscriptionBreakdown SubscriptionBreakdown `json:"subscription_breakdown"`
}

// SubscriptionBreakdown counts users per plan.
type SubscriptionBreakdown struct {
	Free      int64 `json:"free"`
	Essential int64 `json:"essential"`
	Pro       int64 `json:"pro"`
	Elite     int64 `json:"elite"`
}
