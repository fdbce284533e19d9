package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Roles recognised by the platform.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// PlanFree is the plan every account starts on.
const PlanFree = "free"

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID               uuid.UUID     `json:"id"`
	Email            string        `json:"email"`
	FullName         string        `json:"full_name,omitempty"`
	Role             string        `json:"role"`
	IsActive         bool          `json:"is_active"`
	IsSuperuser      bool          `json:"is_superuser"`
	SubscriptionPlan string        `json:"subscription_plan"`
	Subscription     *Subscription `json:"subscription,omitempty"`
	// The server formats these as "2006-01-02 15:04:05", not RFC 3339.
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// UnmarshalJSON decodes a user, filling in defaults for fields the server
// omits: role "user", plan "free", active account.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	a := alias{
		Role:             RoleUser,
		IsActive:         true,
		SubscriptionPlan: PlanFree,
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = User(a)
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.SubscriptionPlan == "" {
		u.SubscriptionPlan = PlanFree
	}
	return nil
}

// Valid reports whether the record identifies an account.
func (u *User) Valid() bool {
	return u != nil && u.Email != ""
}

// DisplayName returns the full name, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// HasRole reports whether the user carries the given role. Nil users have no roles.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return u.Role == role
}

// IsAdmin reports whether the user may use the admin endpoints.
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return u.IsSuperuser || u.Role == RoleAdmin
}

// HasActiveSubscription reports whether the user has a paid plan in effect at now.
// When the server sends no subscription record, a non-free plan counts as active.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u == nil {
		return false
	}
	if u.Subscription != nil {
		return u.Subscription.Active(now)
	}
	return u.SubscriptionPlan != "" && u.SubscriptionPlan != PlanFree
}
