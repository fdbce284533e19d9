package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionCanceled = "canceled"
)

// Subscription is a user's paid plan.
type Subscription struct {
	ID                 uuid.UUID `json:"id"`
	PlanName           string    `json:"plan_name"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}

// Active reports whether the subscription is in good standing at now.
func (s *Subscription) Active(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionActive && s.Status != SubscriptionTrialing {
		return false
	}
	return s.CurrentPeriodEnd.IsZero() || now.Before(s.CurrentPeriodEnd)
}

// CreateSubscriptionRequest starts a subscription to a plan.
type CreateSubscriptionRequest struct {
	PlanName        string `json:"plan_name"`
	PaymentMethodID string `json:"payment_method_id"`
}
