// Package dashboard builds the dashboard view-model from four parallel API
// reads and derives the performance metrics shown alongside it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/naveenspark/tradedesk/internal/metrics"
	"github.com/naveenspark/tradedesk/pkg/client"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

// ErrSuperseded is returned by a load cycle that a newer cycle replaced.
// Its results were discarded.
var ErrSuperseded = errors.New("dashboard: load superseded by a newer request")

// DefaultPeriod is selected before the user picks one.
const DefaultPeriod = domain.Period7D

// Source is the part of the API client the aggregator reads from.
type Source interface {
	GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
	GetRecentTrades(ctx context.Context) ([]domain.Trade, error)
	GetPerformance(ctx context.Context, period domain.Period) ([]domain.PerformancePoint, error)
	GetActiveRobots(ctx context.Context) ([]domain.Robot, error)
}

// LoadRecorder observes finished load cycles.
type LoadRecorder interface {
	RecordDashboardLoad(outcome string, d time.Duration)
}

// ViewModel is one complete, consistent dashboard. It is replaced, never
// modified, so callers may hold on to it.
type ViewModel struct {
	Period       domain.Period
	Stats        domain.DashboardStats
	RecentTrades []domain.Trade
	Performance  []domain.PerformancePoint
	ActiveRobots []domain.Robot
	Metrics      Metrics
	LoadedAt     time.Time
}

// Snapshot is the aggregator's current status.
type Snapshot struct {
	Period  domain.Period
	View    *ViewModel // last good view-model, nil before the first success
	Loading bool
	Err     string // message of the last failed cycle, cleared on success
}

// Aggregator runs load cycles. Only the most recent cycle may apply its
// result; starting a cycle cancels the one in flight.
type Aggregator struct {
	src      Source
	logger   *slog.Logger
	recorder LoadRecorder
	now      func() time.Time

	mu      sync.Mutex
	period  domain.Period
	view    *ViewModel
	errMsg  string
	loading bool
	gen     uint64
	cancel  context.CancelFunc
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithRecorder(r LoadRecorder) Option {
	return func(a *Aggregator) { a.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New returns an empty aggregator on DefaultPeriod.
func New(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:    src,
		logger: slog.Default(),
		now:    time.Now,
		period: DefaultPeriod,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns the current status.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{Period: a.period, View: a.view, Loading: a.loading, Err: a.errMsg}
}

// Period returns the selected period.
func (a *Aggregator) Period() domain.Period {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.period
}

// SetPeriod selects period and loads it.
func (a *Aggregator) SetPeriod(ctx context.Context, period domain.Period) (*ViewModel, error) {
	if !domain.ValidPeriod(period) {
		return nil, fmt.Errorf("dashboard.SetPeriod: invalid period %q", period)
	}
	return a.Load(ctx, period)
}

// Refresh reloads the selected period.
func (a *Aggregator) Refresh(ctx context.Context) (*ViewModel, error) {
	return a.Load(ctx, a.Period())
}

// Reset drops the view-model and error and cancels the cycle in flight, whose
// result is then discarded. Call it when the session ends.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.view = nil
	a.errMsg = ""
	a.loading = false
}

// Load runs one cycle: the four reads run concurrently and the cycle
// succeeds only if all of them do. On failure the previous view-model is
// kept. A cycle superseded by a later Load returns ErrSuperseded.
func (a *Aggregator) Load(ctx context.Context, period domain.Period) (*ViewModel, error) {
	if !domain.ValidPeriod(period) {
		return nil, fmt.Errorf("dashboard.Load: invalid period %q", period)
	}

	a.mu.Lock()
	a.gen++
	gen := a.gen
	if a.cancel != nil {
		a.cancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel
	a.period = period
	a.loading = true
	a.mu.Unlock()

	start := a.now()
	vm, err := a.fetch(cctx, period)
	elapsed := a.now().Sub(start)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		a.record(metrics.LoadSuperseded, elapsed)
		return nil, ErrSuperseded
	}
	a.loading = false
	a.cancel = nil
	if err != nil {
		a.errMsg = client.Message(err)
		a.record(metrics.LoadError, elapsed)
		a.logger.Warn("dashboard load failed",
			slog.String("period", string(period)),
			slog.String("kind", client.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("dashboard.Load: %w", err)
	}
	vm.LoadedAt = a.now()
	a.view = vm
	a.errMsg = ""
	a.record(metrics.LoadOK, elapsed)
	a.logger.Debug("dashboard loaded",
		slog.String("period", string(period)),
		slog.Int("points", len(vm.Performance)),
		slog.Duration("elapsed", elapsed),
	)
	return vm, nil
}

func (a *Aggregator) fetch(ctx context.Context, period domain.Period) (*ViewModel, error) {
	var (
		stats  *domain.DashboardStats
		trades []domain.Trade
		series []domain.PerformancePoint
		robots []domain.Robot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := a.src.GetDashboardStats(gctx)
		stats = s
		return err
	})
	g.Go(func() error {
		t, err := a.src.GetRecentTrades(gctx)
		trades = t
		return err
	})
	g.Go(func() error {
		p, err := a.src.GetPerformance(gctx, period)
		series = p
		return err
	})
	g.Go(func() error {
		r, err := a.src.GetActiveRobots(gctx)
		robots = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vm := &ViewModel{
		Period:       period,
		RecentTrades: nonNil(trades),
		Performance:  nonNil(series),
		ActiveRobots: nonNil(robots),
	}
	if stats != nil {
		vm.Stats = *stats
	}
	vm.Metrics = Compute(vm.Performance, vm.RecentTrades)
	return vm, nil
}

func (a *Aggregator) record(outcome string, d time.Duration) {
	if a.recorder != nil {
		a.recorder.RecordDashboardLoad(outcome, d)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
