package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/naveenspark/tradedesk/pkg/client"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

// platform is a fake trading API. It accepts the token "tok" while valid is set.
type platform struct {
	mu      sync.Mutex
	valid   bool
	admin   bool
	periods []string
	logouts []string
}

const testUser = `{"id":"6f1c0b1e-8d4a-4c1e-9a57-0d2f3b7c9e11","email":"ada@example.com","full_name":"Ada","role":"user","subscription_plan":"pro"}`
const testAdmin = `{"id":"6f1c0b1e-8d4a-4c1e-9a57-0d2f3b7c9e12","email":"root@example.com","role":"admin","subscription_plan":"elite"}`

func (p *platform) user() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.admin {
		return testAdmin
	}
	return testUser
}

func (p *platform) authed(w http.ResponseWriter, r *http.Request) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.valid || r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`)) //nolint:errcheck
		return false
	}
	return true
}

func (p *platform) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body)) //nolint:errcheck
	}
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&creds) //nolint:errcheck
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			write(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		p.mu.Lock()
		p.valid = true
		p.mu.Unlock()
		write(w, `{"token":"tok","user":`+p.user()+`}`)
	})
	mux.HandleFunc("POST /api/v1/auth/google", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Token string }
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		if body.Token != "google-id-token" {
			w.WriteHeader(http.StatusUnauthorized)
			write(w, `{"detail":"Invalid Google token"}`)
			return
		}
		p.mu.Lock()
		p.valid = true
		p.mu.Unlock()
		write(w, `{"token":"tok","user":`+p.user()+`}`)
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.logouts = append(p.logouts, r.Header.Get("Authorization"))
		p.mu.Unlock()
		write(w, `{"message":"Logged out"}`)
	})
	mux.HandleFunc("GET /api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if p.authed(w, r) {
			write(w, p.user())
		}
	})
	mux.HandleFunc("GET /api/v1/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		if p.authed(w, r) {
			write(w, `{"account_balance":10250.75,"total_profit":250.75,"total_trades":42,"win_rate":61.9,"active_robots":1}`)
		}
	})
	mux.HandleFunc("GET /api/v1/dashboard/recent-trades", func(w http.ResponseWriter, r *http.Request) {
		if p.authed(w, r) {
			write(w, `[{"symbol":"EURUSD","trade_type":"buy","status":"closed","profit_loss":12.5,"opened_at":"2026-10-18T09:00:00Z"}]`)
		}
	})
	mux.HandleFunc("GET /api/v1/dashboard/performance", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.periods = append(p.periods, r.URL.Query().Get("period"))
		p.mu.Unlock()
		if p.authed(w, r) {
			write(w, `[{"timestamp":"2026-10-17T00:00:00Z","balance":100,"pnl":0,"return_percentage":0},
				{"timestamp":"2026-10-18T00:00:00Z","balance":150,"pnl":50,"return_percentage":50}]`)
		}
	})
	mux.HandleFunc("GET /api/v1/dashboard/active-robots", func(w http.ResponseWriter, r *http.Request) {
		if p.authed(w, r) {
			write(w, `[{"id":"0b6c2f6e-1111-4c1e-9a57-0d2f3b7c9e11","name":"Gold Scalper","symbol":"XAUUSD","status":"active","total_profit":80}]`)
		}
	})
	mux.HandleFunc("GET /api/v1/robots", func(w http.ResponseWriter, r *http.Request) {
		if p.authed(w, r) {
			write(w, `[{"id":"0b6c2f6e-1111-4c1e-9a57-0d2f3b7c9e11","name":"Gold Scalper","strategy":"scalp","status":"active","total_trades":7}]`)
		}
	})
	mux.HandleFunc("GET /api/v1/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		if p.authed(w, r) {
			write(w, `{"total_users":12,"active_users":9,"total_robots":30,"active_robots":11,"total_trades":900,"total_profit":1234.5,
				"subscription_breakdown":{"free":5,"essential":3,"pro":3,"elite":1}}`)
		}
	})
	return mux
}

// setup clears TRADEDESK_* and points the CLI at a fresh fake platform.
func setup(t *testing.T) *platform {
	t.Helper()
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "TRADEDESK_") {
			t.Setenv(k, "")
		}
	}
	p := &platform{}
	srv := httptest.NewServer(p.handler())
	t.Cleanup(srv.Close)
	t.Setenv("TRADEDESK_API_URL", srv.URL+"/api/v1")
	t.Setenv("TRADEDESK_STATE_DIR", t.TempDir())
	t.Setenv("TRADEDESK_LOG_LEVEL", "error")
	return p
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := execute(t, stdin, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestVersion(t *testing.T) {
	out := mustExecute(t, "", "version")
	if out != "tradedesk dev\n" {
		t.Errorf("version = %q, want %q", out, "tradedesk dev\n")
	}
}

func TestLoginDashboardLogout(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			p := setup(t)
			t.Setenv("TRADEDESK_MIRROR", backend)

			out := mustExecute(t, "secret\n", "login", "--email", "ada@example.com")
			if !strings.Contains(out, "Signed in as Ada (pro plan)") {
				t.Errorf("login output = %q", out)
			}

			// A new invocation restores the session from the mirror.
			out = mustExecute(t, "", "dashboard", "--period", "30d")
			for _, want := range []string{"10250.75", "return +50.0%", "Gold Scalper", "EURUSD", "+12.50"} {
				if !strings.Contains(out, want) {
					t.Errorf("dashboard output missing %q:\n%s", want, out)
				}
			}
			if len(p.periods) != 1 || p.periods[0] != "30d" {
				t.Errorf("periods = %v, want [30d]", p.periods)
			}

			out = mustExecute(t, "", "whoami")
			if !strings.Contains(out, "ada@example.com") || !strings.Contains(out, "plan:    pro") {
				t.Errorf("whoami output = %q", out)
			}

			out = mustExecute(t, "", "logout")
			if out != "Signed out.\n" {
				t.Errorf("logout output = %q", out)
			}
			if len(p.logouts) != 1 || p.logouts[0] != "Bearer tok" {
				t.Errorf("remote logouts = %v, want one with the session token", p.logouts)
			}

			if _, err := execute(t, "", "dashboard"); !errors.Is(err, errNotSignedIn) {
				t.Errorf("dashboard after logout: err = %v, want errNotSignedIn", err)
			}
			out = mustExecute(t, "", "logout")
			if out != "Already signed out.\n" {
				t.Errorf("second logout output = %q", out)
			}
		})
	}
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	setup(t)
	_, err := execute(t, "wrong\n", "login", "--email", "ada@example.com")
	if err == nil || err.Error() != "Incorrect email or password" {
		t.Fatalf("err = %v, want server message", err)
	}
	if _, err := execute(t, "", "whoami"); !errors.Is(err, errNotSignedIn) {
		t.Errorf("whoami after failed login: err = %v, want errNotSignedIn", err)
	}
}

func TestLoginPromptsForEmail(t *testing.T) {
	setup(t)
	out := mustExecute(t, "ada@example.com\nsecret\n", "login")
	if !strings.Contains(out, "Signed in as Ada") {
		t.Errorf("login output = %q", out)
	}
}

func TestLoginRequiresPassword(t *testing.T) {
	setup(t)
	_, err := execute(t, "\n", "login", "--email", "ada@example.com")
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("err = %v, want required error", err)
	}
}

func TestRejectedTokenForcesLogout(t *testing.T) {
	p := setup(t)
	mustExecute(t, "secret\n", "login", "--email", "ada@example.com")

	p.mu.Lock()
	p.valid = false
	p.mu.Unlock()

	_, err := execute(t, "", "robots")
	if err == nil || !strings.Contains(err.Error(), "session expired") {
		t.Fatalf("robots with rejected token: err = %v, want session expired", err)
	}
	if _, err := execute(t, "", "whoami"); !errors.Is(err, errNotSignedIn) {
		t.Errorf("mirror not cleared after forced logout: err = %v", err)
	}
}

func TestSessionEndResetsDashboard(t *testing.T) {
	p := setup(t)
	mustExecute(t, "secret\n", "login", "--email", "ada@example.com")

	a, err := loadApp(context.Background(), io.Discard, false)
	if err != nil {
		t.Fatalf("loadApp() error: %v", err)
	}
	defer a.Close()

	if _, err := a.dash.Load(context.Background(), "7d"); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	a.store.Logout(context.Background())
	if a.dash.Snapshot().View != nil {
		t.Error("dashboard view kept after logout")
	}

	if err := a.store.Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "secret"}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if _, err := a.dash.Load(context.Background(), "7d"); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	p.mu.Lock()
	p.valid = false
	p.mu.Unlock()
	if _, err := a.client.ListRobots(context.Background()); !client.IsUnauthorized(err) {
		t.Fatalf("ListRobots() error = %v, want unauthorized", err)
	}
	if a.dash.Snapshot().View != nil {
		t.Error("dashboard view kept after forced logout")
	}
}

func TestEnvironmentTokenWithoutSavedSession(t *testing.T) {
	p := setup(t)
	p.mu.Lock()
	p.valid = true
	p.mu.Unlock()
	t.Setenv("TRADEDESK_TOKEN", "tok")

	out := mustExecute(t, "", "whoami")
	if !strings.Contains(out, "ada@example.com") {
		t.Errorf("whoami output = %q", out)
	}
	out = mustExecute(t, "", "robots")
	if !strings.Contains(out, "Gold Scalper") {
		t.Errorf("robots output = %q", out)
	}
}

func TestRobotsList(t *testing.T) {
	setup(t)
	mustExecute(t, "secret\n", "login", "--email", "ada@example.com")
	out := mustExecute(t, "", "robots")
	if !strings.Contains(out, "Gold Scalper") || !strings.Contains(out, "7 trades") {
		t.Errorf("robots output = %q", out)
	}
}

func TestRobotsStartRejectsBadID(t *testing.T) {
	setup(t)
	_, err := execute(t, "", "robots", "start", "not-a-uuid")
	if err == nil || !strings.Contains(err.Error(), "invalid id") {
		t.Errorf("err = %v, want invalid id", err)
	}
}

func TestDashboardRejectsBadPeriod(t *testing.T) {
	setup(t)
	_, err := execute(t, "", "dashboard", "--period", "2d")
	if err == nil || !strings.Contains(err.Error(), "invalid period") {
		t.Errorf("err = %v, want invalid period", err)
	}
}

func TestAdminGate(t *testing.T) {
	t.Run("regular user", func(t *testing.T) {
		setup(t)
		mustExecute(t, "secret\n", "login", "--email", "ada@example.com")
		if _, err := execute(t, "", "admin", "stats"); !errors.Is(err, errNotAdmin) {
			t.Errorf("err = %v, want errNotAdmin", err)
		}
	})
	t.Run("admin", func(t *testing.T) {
		p := setup(t)
		p.mu.Lock()
		p.admin = true
		p.mu.Unlock()
		mustExecute(t, "secret\n", "login", "--email", "root@example.com")
		out := mustExecute(t, "", "admin", "stats")
		if !strings.Contains(out, "users   12 (9 active)") || !strings.Contains(out, "elite 1") {
			t.Errorf("admin stats output = %q", out)
		}
	})
}

func TestProfileRequiresAFlag(t *testing.T) {
	setup(t)
	_, err := execute(t, "", "profile")
	if err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("err = %v, want nothing to update", err)
	}
}

func TestPasswdMismatch(t *testing.T) {
	setup(t)
	mustExecute(t, "secret\n", "login", "--email", "ada@example.com")
	_, err := execute(t, "secret\nnew-one\nnew-two\n", "passwd")
	if err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Errorf("err = %v, want mismatch", err)
	}
}

func TestPeriodEnd(t *testing.T) {
	end := time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		sub  *domain.Subscription
		want string
	}{
		{"none", nil, ""},
		{"no end date", &domain.Subscription{Status: domain.SubscriptionActive}, ""},
		{"active", &domain.Subscription{Status: domain.SubscriptionActive, CurrentPeriodEnd: end}, "renews:  2026-11-18"},
		{"canceled", &domain.Subscription{Status: domain.SubscriptionCanceled, CurrentPeriodEnd: end}, "ends:    2026-11-18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := periodEnd(tt.sub); got != tt.want {
				t.Errorf("periodEnd() = %q, want %q", got, tt.want)
			}
		})
	}
}
