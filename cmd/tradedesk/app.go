package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/naveenspark/tradedesk/internal/config"
	"github.com/naveenspark/tradedesk/internal/dashboard"
	"github.com/naveenspark/tradedesk/internal/logger"
	"github.com/naveenspark/tradedesk/internal/metrics"
	"github.com/naveenspark/tradedesk/internal/mirror"
	"github.com/naveenspark/tradedesk/internal/session"
	"github.com/naveenspark/tradedesk/pkg/client"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *client.Client
	store   *session.Store
	dash    *dashboard.Aggregator
	mirror  mirror.Mirror
	closers []io.Closer
	stop    context.CancelFunc
}

// loadApp wires config, logging, metrics, the mirror, the API client, the
// session store and the dashboard aggregator. The TUI logs to a file so
// output does not corrupt the screen; other commands log to stderr.
func loadApp(ctx context.Context, stderr io.Writer, logToFile bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if logToFile {
		l, closer, err := logger.SetupFile(cfg.LogPath(), cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return nil, err
		}
		a.logger = l
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logger.Setup(stderr, cfg.LogLevel, cfg.LogFormat)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	mctx, stop := context.WithCancel(ctx)
	a.stop = stop
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(mctx, cfg.MetricsAddr, reg, a.logger); err != nil {
				a.logger.Warn("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
	}

	m, err := mirror.Open(cfg.Mirror, cfg.StateDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.mirror = m

	// The client reads the token from the store on every request.
	var store *session.Store
	a.client = client.New(cfg.APIURL,
		client.TokenFunc(func() string { return store.Token() }),
		client.WithTimeout(cfg.Timeout),
		client.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		client.WithRecorder(collector),
		client.WithLogger(a.logger),
	)
	store = session.New(a.client, m,
		session.WithLogger(a.logger),
		session.WithRecorder(collector),
		session.WithLogoutTimeout(cfg.LogoutTimeout),
		session.WithToken(cfg.Token),
	)
	a.client.OnSessionInvalidated(store.HandleSessionInvalidated)
	a.store = store

	a.dash = dashboard.New(a.client,
		dashboard.WithLogger(a.logger),
		dashboard.WithRecorder(collector),
	)
	// The view-model belongs to one session.
	store.Subscribe(func(st session.State) {
		if !st.IsAuthenticated() {
			a.dash.Reset()
		}
	})

	store.Init(ctx)
	return a, nil
}

// Close releases the mirror, the log file and the metrics server.
func (a *app) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			a.logger.Warn("close mirror", slog.String("error", err.Error()))
		}
	}
	for _, c := range a.closers {
		c.Close() //nolint:errcheck
	}
}

var errNotSignedIn = errors.New("not signed in, run: tradedesk login")

// requireSession fails unless a session was restored. A rejected token is
// caught by the first API call, which forces a logout.
func (a *app) requireSession() error {
	if !a.store.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

// apiError maps an unauthorized failure to a sign-in hint.
func apiError(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("session expired, run: tradedesk login")
	}
	return err
}
