package session

import "github.com/naveenspark/tradedesk/pkg/domain"

// Status is the session state machine position.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusPending
	StatusAuthenticated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusPending:
		return "pending"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the session.
type State struct {
	Status Status
	User   *domain.User
	Token  string
	Err    string // last failure message
}

// IsAuthenticated reports whether the session holds a usable user and token.
func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != "" && s.User != nil
}

// IsLoading reports whether a sign-in is in flight.
func (s State) IsLoading() bool {
	return s.Status == StatusPending
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		if u.Subscription != nil {
			sub := *u.Subscription
			u.Subscription = &sub
		}
		s.User = &u
	}
	return s
}
