// Package session owns the authenticated session: token lifecycle, state
// transitions and the durable mirror.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/naveenspark/tradedesk/internal/mirror"
	"github.com/naveenspark/tradedesk/pkg/client"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

var (
	ErrBusy             = errors.New("session: a sign-in is already in progress")
	ErrNotAuthenticated = errors.New("session: not signed in")
	// ErrSuperseded is returned when a logout happened while the action was in flight.
	ErrSuperseded = errors.New("session: superseded by logout")
)

const expiredMessage = "your session has expired, please sign in again"

// API is the part of the API client the store calls.
type API interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*domain.AuthResponse, error)
	Logout(ctx context.Context) error
	GetProfile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, patch domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, pc domain.PasswordChange) error
}

// TransitionRecorder observes status changes.
type TransitionRecorder interface {
	RecordSessionTransition(status string)
}

// Store is the session state machine. Create one per process with New and
// pass it to whatever needs the session.
type Store struct {
	api           API
	mirror        mirror.Mirror
	logger        *slog.Logger
	recorder      TransitionRecorder
	logoutTimeout time.Duration
	now           func() time.Time
	fixedToken    string // from the environment; never mirrored

	mu    sync.Mutex
	state State
	epoch uint64 // bumped by logout and forced logout

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder reports status transitions to r.
func WithRecorder(r TransitionRecorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogoutTimeout bounds the remote logout call.
func WithLogoutTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

// WithToken makes Init start the session from token instead of the mirror.
// The user is fetched from the server with that token, and the session is
// never written to the mirror.
func WithToken(token string) Option {
	return func(s *Store) { s.fixedToken = token }
}

// WithClock replaces time.Now for subscription checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an unauthenticated store. Call Init to restore a saved session.
func New(api API, m mirror.Mirror, opts ...Option) *Store {
	s := &Store{
		api:           api,
		mirror:        m,
		logger:        slog.Default(),
		logoutTimeout: 5 * time.Second,
		now:           time.Now,
		subs:          make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Token returns the current bearer token. Store satisfies client.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *domain.User {
	return s.State().User
}

func (s *Store) IsAuthenticated() bool { return s.State().IsAuthenticated() }
func (s *Store) IsLoading() bool       { return s.State().IsLoading() }

// HasRole reports whether the current user has role. False when signed out.
func (s *Store) HasRole(role string) bool { return s.User().HasRole(role) }

// IsAdmin reports whether the current user may use the admin endpoints.
func (s *Store) IsAdmin() bool { return s.User().IsAdmin() }

// HasActiveSubscription reports whether the current user has a paid plan in effect.
func (s *Store) HasActiveSubscription() bool {
	return s.User().HasActiveSubscription(s.now())
}

// Subscribe registers fn to receive every new state. Calls happen after the
// mutation, outside the store's lock. The returned func unregisters fn.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(st State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(st.clone())
	}
}

// setLocked replaces the state and returns the snapshot to notify with.
// Callers hold s.mu.
func (s *Store) setLocked(next State) State {
	if next.Status != s.state.Status && s.recorder != nil {
		s.recorder.RecordSessionTransition(next.Status.String())
	}
	s.state = next
	return next.clone()
}

// ClearError drops the last failure message. A Failed session becomes Unauthenticated.
func (s *Store) ClearError() {
	s.mu.Lock()
	next := s.state
	next.Err = ""
	if next.Status == StatusFailed {
		next.Status = StatusUnauthenticated
	}
	snap := s.setLocked(next)
	s.mu.Unlock()
	s.notify(snap)
}

// Init restores the mirrored session. It reports whether a complete session
// was found; the caller should then call Revalidate. Corrupt or partial
// contents are cleared and leave the store Unauthenticated.
func (s *Store) Init(ctx context.Context) bool {
	if s.fixedToken != "" {
		return s.initFromToken(ctx)
	}
	snapshot, err := s.mirror.Load(ctx)
	if err != nil || !snapshot.Complete() {
		if err != nil {
			s.logger.Warn("discarding unreadable session mirror", slog.String("error", err.Error()))
		} else if !snapshot.Empty() {
			s.logger.Warn("discarding partial session mirror")
		}
		if !snapshot.Empty() || err != nil {
			if cerr := s.mirror.Clear(ctx); cerr != nil {
				s.logger.Warn("clear session mirror", slog.String("error", cerr.Error()))
			}
		}
		s.mu.Lock()
		snap := s.setLocked(State{Status: StatusUnauthenticated})
		s.mu.Unlock()
		s.notify(snap)
		return false
	}

	s.mu.Lock()
	snap := s.setLocked(State{Status: StatusAuthenticated, User: snapshot.User, Token: snapshot.Token})
	s.mu.Unlock()
	s.logger.Debug("session restored", slog.String("email", snapshot.User.Email))
	s.notify(snap)
	return true
}

// initFromToken authenticates the fixed token by fetching its user.
func (s *Store) initFromToken(ctx context.Context) bool {
	user, err := s.api.GetProfile(client.ContextWithToken(ctx, s.fixedToken))
	if err == nil && !user.Valid() {
		err = errors.New("incomplete profile response")
	}
	s.mu.Lock()
	if err != nil {
		snap := s.setLocked(State{Status: StatusUnauthenticated, Err: client.Message(err)})
		s.mu.Unlock()
		s.logger.Warn("token from environment rejected", slog.String("error", err.Error()))
		s.notify(snap)
		return false
	}
	snap := s.setLocked(State{Status: StatusAuthenticated, User: user, Token: s.fixedToken})
	s.mu.Unlock()
	s.logger.Debug("session started from environment token", slog.String("email", user.Email))
	s.notify(snap)
	return true
}

// saveMirror persists snap unless it belongs to the fixed token.
func (s *Store) saveMirror(ctx context.Context, snap mirror.Snapshot) error {
	if s.fixedToken != "" && snap.Token == s.fixedToken {
		return nil
	}
	return s.mirror.Save(context.WithoutCancel(ctx), snap)
}

// Revalidate refreshes the restored user from the server. On failure the
// session falls back to Unauthenticated and the mirror is cleared.
func (s *Store) Revalidate(ctx context.Context) error {
	return s.refreshProfile(ctx, "Revalidate", StatusUnauthenticated)
}

// LoadProfile refreshes the current user. On failure the session is
// considered invalid: the store moves to Failed and the mirror is cleared.
func (s *Store) LoadProfile(ctx context.Context) error {
	return s.refreshProfile(ctx, "LoadProfile", StatusFailed)
}

func (s *Store) refreshProfile(ctx context.Context, op string, onFailure Status) error {
	s.mu.Lock()
	if s.state.Status != StatusAuthenticated {
		s.mu.Unlock()
		return fmt.Errorf("session.%s: %w", op, ErrNotAuthenticated)
	}
	epoch, token := s.epoch, s.state.Token
	s.mu.Unlock()

	user, err := s.api.GetProfile(ctx)

	s.mu.Lock()
	if s.epoch != epoch || s.state.Token != token {
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("session.%s: %w", op, err)
		}
		return fmt.Errorf("session.%s: %w", op, ErrSuperseded)
	}
	if err == nil && !user.Valid() {
		err = errors.New("incomplete profile response")
	}
	if err != nil {
		s.clearMirrorLocked(ctx)
		snap := s.setLocked(State{Status: onFailure, Err: client.Message(err)})
		s.mu.Unlock()
		s.logger.Warn("profile refresh failed", slog.String("op", op), slog.String("error", err.Error()))
		s.notify(snap)
		return fmt.Errorf("session.%s: %w", op, err)
	}
	if err := s.saveMirror(ctx, mirror.Snapshot{Token: token, User: user}); err != nil {
		s.logger.Warn("save session mirror", slog.String("error", err.Error()))
	}
	next := s.state
	next.User = user
	next.Err = ""
	snap := s.setLocked(next)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Login exchanges credentials for a session. Signing in while authenticated
// replaces the current session.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) error {
	return s.authenticate(ctx, "Login", func(ctx context.Context) (*domain.AuthResponse, error) {
		return s.api.Login(ctx, creds)
	})
}

// Register creates an account and signs in to it.
func (s *Store) Register(ctx context.Context, reg domain.Registration) error {
	return s.authenticate(ctx, "Register", func(ctx context.Context) (*domain.AuthResponse, error) {
		return s.api.Register(ctx, reg)
	})
}

// LoginWithGoogle exchanges a Google ID token for a session.
func (s *Store) LoginWithGoogle(ctx context.Context, idToken string) error {
	return s.authenticate(ctx, "LoginWithGoogle", func(ctx context.Context) (*domain.AuthResponse, error) {
		return s.api.LoginWithGoogle(ctx, idToken)
	})
}

func (s *Store) authenticate(ctx context.Context, op string, exchange func(context.Context) (*domain.AuthResponse, error)) error {
	s.mu.Lock()
	if s.state.Status == StatusPending {
		s.mu.Unlock()
		return fmt.Errorf("session.%s: %w", op, ErrBusy)
	}
	epoch := s.epoch
	snap := s.setLocked(State{Status: StatusPending})
	s.mu.Unlock()
	s.notify(snap)

	resp, err := exchange(ctx)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return fmt.Errorf("session.%s: %w", op, ErrSuperseded)
	}
	if err != nil {
		snap := s.setLocked(State{Status: StatusFailed, Err: client.Message(err)})
		s.mu.Unlock()
		s.logger.Info("sign-in failed", slog.String("op", op), slog.String("kind", client.KindOf(err).String()))
		s.notify(snap)
		return fmt.Errorf("session.%s: %w", op, err)
	}
	// Persist before publishing.
	if err := s.saveMirror(ctx, mirror.Snapshot{Token: resp.Token, User: resp.User}); err != nil {
		snap := s.setLocked(State{Status: StatusFailed, Err: "could not save the session locally"})
		s.mu.Unlock()
		s.logger.Error("save session mirror", slog.String("error", err.Error()))
		s.notify(snap)
		return fmt.Errorf("session.%s: save mirror: %w", op, err)
	}
	snap = s.setLocked(State{Status: StatusAuthenticated, User: resp.User, Token: resp.Token})
	s.mu.Unlock()
	s.logger.Info("signed in", slog.String("op", op), slog.String("email", resp.User.Email))
	s.notify(snap)
	return nil
}

// UpdateProfile applies a partial update to the current user. Failures leave
// the session unchanged.
func (s *Store) UpdateProfile(ctx context.Context, patch domain.ProfileUpdate) error {
	s.mu.Lock()
	if s.state.Status != StatusAuthenticated {
		s.mu.Unlock()
		return fmt.Errorf("session.UpdateProfile: %w", ErrNotAuthenticated)
	}
	epoch, token := s.epoch, s.state.Token
	s.mu.Unlock()

	user, err := s.api.UpdateProfile(ctx, patch)
	if err == nil && !user.Valid() {
		err = errors.New("incomplete profile response")
	}
	if err != nil {
		return fmt.Errorf("session.UpdateProfile: %w", err)
	}

	s.mu.Lock()
	if s.epoch != epoch || s.state.Token != token {
		s.mu.Unlock()
		return fmt.Errorf("session.UpdateProfile: %w", ErrSuperseded)
	}
	if err := s.saveMirror(ctx, mirror.Snapshot{Token: token, User: user}); err != nil {
		s.logger.Warn("save session mirror", slog.String("error", err.Error()))
	}
	next := s.state
	next.User = user
	next.Err = ""
	snap := s.setLocked(next)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// ChangePassword rotates the password. The session is never changed.
func (s *Store) ChangePassword(ctx context.Context, pc domain.PasswordChange) error {
	if !s.IsAuthenticated() {
		return fmt.Errorf("session.ChangePassword: %w", ErrNotAuthenticated)
	}
	if err := s.api.ChangePassword(ctx, pc); err != nil {
		return fmt.Errorf("session.ChangePassword: %w", err)
	}
	return nil
}

// Logout clears the mirror and resets to Unauthenticated, then asks the
// server to revoke the old token. The remote call is best-effort and bounded
// by the logout timeout; its failure is logged, never returned.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.state.Token
	s.epoch++
	s.clearMirrorLocked(ctx)
	snap := s.setLocked(State{Status: StatusUnauthenticated})
	s.mu.Unlock()
	s.notify(snap)

	if token == "" {
		return
	}
	rctx, cancel := context.WithTimeout(client.ContextWithToken(ctx, token), s.logoutTimeout)
	defer cancel()
	if err := s.api.Logout(rctx); err != nil {
		s.logger.Warn("remote logout failed", slog.String("error", err.Error()))
	}
}

// HandleSessionInvalidated performs a forced logout when the server rejects
// the current token. Events for tokens other than the current one are ignored.
func (s *Store) HandleSessionInvalidated(ev client.SessionInvalidated) {
	s.mu.Lock()
	if ev.Token == "" || ev.Token != s.state.Token {
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.clearMirrorLocked(context.Background())
	snap := s.setLocked(State{Status: StatusUnauthenticated, Err: expiredMessage})
	s.mu.Unlock()
	s.logger.Info("session invalidated by server",
		slog.String("method", ev.Method),
		slog.String("path", ev.Path),
	)
	s.notify(snap)
}

func (s *Store) clearMirrorLocked(ctx context.Context) {
	if err := s.mirror.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("clear session mirror", slog.String("error", err.Error()))
	}
}
