package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/naveenspark/tradedesk/internal/browser"
)

// openBrowser is replaced in tests.
var openBrowser = browser.Open

const googleLoginTimeout = 2 * time.Minute

// googleFlow obtains a Google ID token through the web app. The browser is
// sent to webURL/auth/google/cli, which redirects back to a localhost
// callback with the credential and the CSRF state.
type googleFlow struct {
	webURL  string
	open    func(string) error
	out     io.Writer
	logger  *slog.Logger
	timeout time.Duration
}

type callbackResult struct {
	credential string
	err        error
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// callbackRouter accepts exactly one callback carrying expectedState.
func callbackRouter(expectedState string, results chan<- callbackResult) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("state") != expectedState {
			http.Error(w, "invalid state", http.StatusForbidden)
			send(results, callbackResult{err: errors.New("callback state mismatch (possible CSRF)")})
			return
		}
		if msg := q.Get("error"); msg != "" {
			http.Error(w, "sign-in failed", http.StatusBadRequest)
			send(results, callbackResult{err: fmt.Errorf("google sign-in failed: %s", msg)})
			return
		}
		cred := q.Get("credential")
		if cred == "" {
			http.Error(w, "missing credential", http.StatusBadRequest)
			send(results, callbackResult{err: errors.New("callback received without credential")})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, callbackHTML) //nolint:errcheck
		send(results, callbackResult{credential: cred})
	})
	return r
}

// send delivers the first result and drops the rest.
func send(ch chan<- callbackResult, r callbackResult) {
	select {
	case ch <- r:
	default:
	}
}

// credential runs the flow and returns the Google ID token.
func (g googleFlow) credential(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("start callback listener: %w", err)
	}
	defer listener.Close() //nolint:errcheck

	state, err := newState()
	if err != nil {
		return "", err
	}
	port := listener.Addr().(*net.TCPAddr).Port
	results := make(chan callbackResult, 1)

	srv := &http.Server{Handler: callbackRouter(state, results), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			send(results, callbackResult{err: err})
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
	}()

	params := url.Values{}
	params.Set("cli_port", strconv.Itoa(port))
	params.Set("state", state)
	loginURL := g.webURL + "/auth/google/cli?" + params.Encode()

	fmt.Fprintln(g.out, "Opening browser to sign in with Google...") //nolint:errcheck
	if err := g.open(loginURL); err != nil {
		fmt.Fprintf(g.out, "Could not open browser. Visit this URL manually:\n  %s\n", loginURL) //nolint:errcheck
		g.logger.Warn("open browser", slog.String("url", loginURL), slog.String("error", err.Error()))
	}

	timeout := g.timeout
	if timeout <= 0 {
		timeout = googleLoginTimeout
	}
	select {
	case res := <-results:
		return res.credential, res.err
	case <-time.After(timeout):
		return "", fmt.Errorf("google sign-in timed out, no callback within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

const callbackHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>TradeDesk</title>
<style>
body{background:#0b1014;color:#e4e4ec;font-family:'SF Mono','Consolas',monospace;
height:100vh;display:flex;align-items:center;justify-content:center;margin:0}
.logo{font-size:28px;font-weight:700;letter-spacing:10px;color:#2dd4bf;margin-bottom:20px}
.msg{font-size:14px;color:#4ade80;font-weight:600;margin-bottom:8px}
.sub{font-size:12px;color:#505868}
</style>
</head>
<body>
<div style="text-align:center">
  <div class="logo">TRADEDESK</div>
  <div class="msg">signed in</div>
  <div class="sub">return to your terminal</div>
</div>
</body>
</html>`
