package domain

import (
	"time"

	"github.com/google/uuid"
)

// Broker is a connection to a brokerage account. Secrets never leave the server.
type Broker struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	BrokerType     string     `json:"broker_type"`
	Server         string     `json:"server,omitempty"`
	Login          string     `json:"login,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsDemo         bool       `json:"is_demo"`
	LastTestAt     *time.Time `json:"last_test_at,omitempty"`
	LastTestStatus string     `json:"last_test_status,omitempty"`
}

// CreateBrokerRequest is the payload for POST /brokers.
type CreateBrokerRequest struct {
	Name       string `json:"name"`
	BrokerType string `json:"broker_type"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Server     string `json:"server,omitempty"`
	Login      string `json:"login,omitempty"`
	IsDemo     bool   `json:"is_demo"`
}

// BrokerTestResult is the outcome of POST /brokers/{id}/test.
type BrokerTestResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	AccountInfo *AccountInfo `json:"account_info,omitempty"`
}

// AccountInfo describes the brokerage account behind a connection.
type AccountInfo struct {
	AccountNumber string  `json:"account_number"`
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	Margin        float64 `json:"margin"`
	FreeMargin    float64 `json:"free_margin"`
	Currency      string  `json:"currency"`
}
