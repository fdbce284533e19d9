package domain

import (
	"fmt"
	"time"
)

// Period selects the window of the performance series.
type Period string

// The four selectable periods.
const (
	Period1D  Period = "1d"
	Period7D  Period = "7d"
	Period30D Period = "30d"
	Period90D Period = "90d"
)

// Periods lists the valid periods in display order.
var Periods = []Period{Period1D, Period7D, Period30D, Period90D}

// ValidPeriod returns true if p is one of Periods.
func ValidPeriod(p Period) bool {
	for _, v := range Periods {
		if v == p {
			return true
		}
	}
	return false
}

// ParsePeriod converts user input such as "7d" into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !ValidPeriod(p) {
		return "", fmt.Errorf("invalid period %q (want one of 1d, 7d, 30d, 90d)", s)
	}
	return p, nil
}

// DashboardStats holds the aggregate KPIs from /dashboard/stats.
type DashboardStats struct {
	AccountBalance   float64 `json:"account_balance"`
	TotalProfit      float64 `json:"total_profit"`
	TodayProfit      float64 `json:"today_profit"`
	WeekProfit       float64 `json:"week_profit"`
	MonthProfit      float64 `json:"month_profit"`
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	WinRate          float64 `json:"win_rate"`
	AvgProfit        float64 `json:"avg_profit"`
	ActiveRobots     int     `json:"active_robots"`
	SubscriptionPlan string  `json:"subscription_plan,omitempty"`
}

// PerformancePoint is one sample of the account balance series.
type PerformancePoint struct {
	Timestamp        time.Time `json:"timestamp"`
	Balance          float64   `json:"balance"`
	PnL              float64   `json:"pnl"`
	ReturnPercentage float64   `json:"return_percentage"`
}
