package domain

import (
	"time"

	"github.com/google/uuid"
)

// Robot statuses.
const (
	RobotActive  = "active"
	RobotStopped = "stopped"
	RobotPaused  = "paused"
)

// Robot is a trading robot owned by the user.
type Robot struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Symbol        string     `json:"symbol,omitempty"`
	Strategy      string     `json:"strategy,omitempty"`
	Status        string     `json:"status"`
	TotalTrades   int        `json:"total_trades"`
	WinningTrades int        `json:"winning_trades"`
	TotalProfit   float64    `json:"total_profit"`
	WinRate       float64    `json:"win_rate"`
	LastSignalAt  *time.Time `json:"last_signal_at,omitempty"`
}

// CreateRobotRequest is the payload for POST /robots.
type CreateRobotRequest struct {
	Name       string         `json:"name"`
	Strategy   string         `json:"strategy"`
	RiskConfig map[string]any `json:"risk_config,omitempty"`
}
