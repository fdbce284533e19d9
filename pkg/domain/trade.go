package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trade is an executed or open position.
type Trade struct {
	ID         uuid.UUID  `json:"id"`
	RobotID    uuid.UUID  `json:"robot_id,omitempty"`
	Symbol     string     `json:"symbol"`
	TradeType  string     `json:"trade_type"`
	Volume     float64    `json:"volume,omitempty"`
	EntryPrice float64    `json:"entry_price,omitempty"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	Status     string     `json:"status"`
	ProfitLoss *float64   `json:"profit_loss"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// PnL returns the realised profit or loss, zero while unknown.
func (t Trade) PnL() float64 {
	if t.ProfitLoss == nil {
		return 0
	}
	return *t.ProfitLoss
}

// TradeStatistics is the summary from /trades/statistics.
type TradeStatistics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	TotalProfit   float64 `json:"total_profit"`
	AvgProfit     float64 `json:"avg_profit"`
	WinRate       float64 `json:"win_rate"`
}
