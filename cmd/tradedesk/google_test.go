package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// visit simulates the web app redirecting the browser to the CLI callback.
func visit(t *testing.T, loginURL string, mutate func(q url.Values)) {
	t.Helper()
	u, err := url.Parse(loginURL)
	if err != nil {
		t.Errorf("parse login url: %v", err)
		return
	}
	if u.Path != "/auth/google/cli" {
		t.Errorf("login path = %q, want /auth/google/cli", u.Path)
	}
	q := url.Values{}
	q.Set("state", u.Query().Get("state"))
	q.Set("credential", "google-id-token")
	mutate(q)
	go func() {
		resp, err := http.Get("http://127.0.0.1:" + u.Query().Get("cli_port") + "/callback?" + q.Encode())
		if err == nil {
			resp.Body.Close() //nolint:errcheck
		}
	}()
}

func testFlow(open func(string) error) googleFlow {
	return googleFlow{
		webURL:  "https://app.example.com",
		open:    open,
		out:     io.Discard,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: 5 * time.Second,
	}
}

func TestGoogleFlowDeliversCredential(t *testing.T) {
	flow := testFlow(func(loginURL string) error {
		if !strings.HasPrefix(loginURL, "https://app.example.com/auth/google/cli?") {
			t.Errorf("login url = %q", loginURL)
		}
		visit(t, loginURL, func(url.Values) {})
		return nil
	})
	cred, err := flow.credential(context.Background())
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if cred != "google-id-token" {
		t.Errorf("credential = %q, want %q", cred, "google-id-token")
	}
}

func TestGoogleFlowRejectsWrongState(t *testing.T) {
	flow := testFlow(func(loginURL string) error {
		visit(t, loginURL, func(q url.Values) { q.Set("state", "forged") })
		return nil
	})
	_, err := flow.credential(context.Background())
	if err == nil || !strings.Contains(err.Error(), "state mismatch") {
		t.Errorf("err = %v, want state mismatch", err)
	}
}

func TestGoogleFlowReportsProviderError(t *testing.T) {
	flow := testFlow(func(loginURL string) error {
		visit(t, loginURL, func(q url.Values) {
			q.Del("credential")
			q.Set("error", "access_denied")
		})
		return nil
	})
	_, err := flow.credential(context.Background())
	if err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("err = %v, want access_denied", err)
	}
}

func TestGoogleFlowTimeout(t *testing.T) {
	var out bytes.Buffer
	flow := testFlow(func(string) error { return errors.New("no display") })
	flow.out = &out
	flow.timeout = 50 * time.Millisecond

	_, err := flow.credential(context.Background())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v, want timeout", err)
	}
	if !strings.Contains(out.String(), "https://app.example.com/auth/google/cli?") {
		t.Errorf("manual URL not printed: %q", out.String())
	}
}

func TestGoogleFlowCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	flow := testFlow(func(string) error {
		cancel()
		return nil
	})
	if _, err := flow.credential(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCallbackRouter(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCred   string
		wantErr    string
	}{
		{"ok", "state=s1&credential=abc", http.StatusOK, "abc", ""},
		{"wrong state", "state=nope&credential=abc", http.StatusForbidden, "", "state mismatch"},
		{"missing credential", "state=s1", http.StatusBadRequest, "", "without credential"},
		{"provider error", "state=s1&error=denied", http.StatusBadRequest, "", "denied"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			results := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackRouter("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tc.query, nil))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			res := <-results
			if res.credential != tc.wantCred {
				t.Errorf("credential = %q, want %q", res.credential, tc.wantCred)
			}
			if tc.wantErr == "" && res.err != nil {
				t.Errorf("err = %v, want nil", res.err)
			}
			if tc.wantErr != "" && (res.err == nil || !strings.Contains(res.err.Error(), tc.wantErr)) {
				t.Errorf("err = %v, want containing %q", res.err, tc.wantErr)
			}
		})
	}
}

func TestLoginWithGoogleCommand(t *testing.T) {
	setup(t)
	orig := openBrowser
	t.Cleanup(func() { openBrowser = orig })
	openBrowser = func(loginURL string) error {
		visit(t, loginURL, func(url.Values) {})
		return nil
	}

	out := mustExecute(t, "", "login", "--google")
	if !strings.Contains(out, "Signed in as Ada") {
		t.Errorf("login --google output = %q", out)
	}
}
