package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/naveenspark/tradedesk/internal/metrics"
	"github.com/naveenspark/tradedesk/pkg/client"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

type fakeSource struct {
	stats       func(context.Context) (*domain.DashboardStats, error)
	trades      func(context.Context) ([]domain.Trade, error)
	performance func(context.Context, domain.Period) ([]domain.PerformancePoint, error)
	robots      func(context.Context) ([]domain.Robot, error)
}

func (f *fakeSource) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	if f.stats == nil {
		return &domain.DashboardStats{AccountBalance: 150, TotalTrades: 3}, nil
	}
	return f.stats(ctx)
}

func (f *fakeSource) GetRecentTrades(ctx context.Context) ([]domain.Trade, error) {
	if f.trades == nil {
		return []domain.Trade{{Symbol: "EURUSD", ProfitLoss: pnl(10)}, {Symbol: "XAUUSD", ProfitLoss: pnl(-5)}, {Symbol: "GBPUSD", ProfitLoss: pnl(0)}}, nil
	}
	return f.trades(ctx)
}

func (f *fakeSource) GetPerformance(ctx context.Context, p domain.Period) ([]domain.PerformancePoint, error) {
	if f.performance == nil {
		return points(100, 150), nil
	}
	return f.performance(ctx, p)
}

func (f *fakeSource) GetActiveRobots(ctx context.Context) ([]domain.Robot, error) {
	if f.robots == nil {
		return []domain.Robot{{Name: "Trend Rider", Status: domain.RobotActive}}, nil
	}
	return f.robots(ctx)
}

var errUpstream = &client.Error{Kind: client.KindServer, StatusCode: 502, Message: "External service error"}

func TestLoadSuccess(t *testing.T) {
	a := New(&fakeSource{})
	vm, err := a.Load(context.Background(), domain.Period30D)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if vm.Period != domain.Period30D {
		t.Errorf("Period = %q, want %q", vm.Period, domain.Period30D)
	}
	if vm.Stats.AccountBalance != 150 {
		t.Errorf("AccountBalance = %v, want 150", vm.Stats.AccountBalance)
	}
	if vm.Metrics.TotalReturnPct != 50 || vm.Metrics.TotalPnL != 50 {
		t.Errorf("return = (%v, %v), want (50, 50)", vm.Metrics.TotalReturnPct, vm.Metrics.TotalPnL)
	}
	if len(vm.ActiveRobots) != 1 || len(vm.RecentTrades) != 3 {
		t.Errorf("robots/trades = %d/%d, want 1/3", len(vm.ActiveRobots), len(vm.RecentTrades))
	}
	snap := a.Snapshot()
	if snap.View != vm || snap.Loading || snap.Err != "" {
		t.Errorf("Snapshot() = %+v, want applied view", snap)
	}
}

func TestLoadNormalizesEmptyLists(t *testing.T) {
	a := New(&fakeSource{
		trades:      func(context.Context) ([]domain.Trade, error) { return nil, nil },
		performance: func(context.Context, domain.Period) ([]domain.PerformancePoint, error) { return nil, nil },
		robots:      func(context.Context) ([]domain.Robot, error) { return nil, nil },
	})
	vm, err := a.Load(context.Background(), domain.Period1D)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if vm.RecentTrades == nil || vm.Performance == nil || vm.ActiveRobots == nil {
		t.Error("empty reads should produce empty, non-nil lists")
	}
	if vm.Metrics.HasSeries || vm.Metrics.HasTrades {
		t.Error("HasSeries/HasTrades should be false for empty reads")
	}
}

func TestLoadPartialFailureKeepsPreviousView(t *testing.T) {
	src := &fakeSource{}
	a := New(src)
	before, err := a.Load(context.Background(), domain.Period7D)
	if err != nil {
		t.Fatalf("first Load() error: %v", err)
	}

	src.robots = func(context.Context) ([]domain.Robot, error) { return nil, errUpstream }
	src.performance = func(context.Context, domain.Period) ([]domain.PerformancePoint, error) {
		return points(1, 2, 3), nil
	}
	vm, err := a.Load(context.Background(), domain.Period7D)
	if err == nil {
		t.Fatal("Load() expected error when one read fails")
	}
	if vm != nil {
		t.Errorf("Load() view = %+v, want nil on failure", vm)
	}
	if client.KindOf(err) != client.KindServer {
		t.Errorf("KindOf() = %v, want %v", client.KindOf(err), client.KindServer)
	}

	snap := a.Snapshot()
	if snap.View != before {
		t.Error("failed load replaced the previous view-model")
	}
	if len(snap.View.Performance) != 2 {
		t.Errorf("Performance has %d points, want the previous 2", len(snap.View.Performance))
	}
	if snap.Err != "External service error" {
		t.Errorf("Err = %q, want %q", snap.Err, "External service error")
	}
	if snap.Loading {
		t.Error("Loading = true after the cycle settled")
	}

	src.robots = nil
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if a.Snapshot().Err != "" {
		t.Error("Err not cleared by a successful load")
	}
}

func TestFirstFailureCancelsSiblings(t *testing.T) {
	canceled := make(chan struct{})
	src := &fakeSource{
		stats: func(context.Context) (*domain.DashboardStats, error) { return nil, errUpstream },
		performance: func(ctx context.Context, _ domain.Period) ([]domain.PerformancePoint, error) {
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		},
	}
	a := New(src)

	done := make(chan error, 1)
	go func() {
		_, err := a.Load(context.Background(), domain.Period7D)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, errUpstream) {
			t.Errorf("Load() error = %v, want the first failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Load() did not return after a read failed")
	}
	select {
	case <-canceled:
	default:
		t.Error("sibling read was not canceled")
	}
}

func TestLastCycleWins(t *testing.T) {
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	var once sync.Once

	src := &fakeSource{
		performance: func(_ context.Context, p domain.Period) ([]domain.PerformancePoint, error) {
			if p == domain.Period1D {
				once.Do(func() { close(firstStarted) })
				<-release // resolves after the second cycle, ignoring cancellation
				return points(1, 1), nil
			}
			return points(100, 150), nil
		},
	}
	a := New(src)

	firstDone := make(chan error, 1)
	go func() {
		_, err := a.Load(context.Background(), domain.Period1D)
		firstDone <- err
	}()
	<-firstStarted

	vm, err := a.Load(context.Background(), domain.Period90D)
	if err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
	close(release)

	if err := <-firstDone; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first Load() error = %v, want ErrSuperseded", err)
	}
	snap := a.Snapshot()
	if snap.View != vm || snap.View.Period != domain.Period90D {
		t.Errorf("view period = %q, want %q", snap.View.Period, domain.Period90D)
	}
	if snap.Period != domain.Period90D {
		t.Errorf("Period = %q, want %q", snap.Period, domain.Period90D)
	}
	if snap.Loading {
		t.Error("Loading = true after the latest cycle settled")
	}
}

func TestSupersededCycleIsAborted(t *testing.T) {
	aborted := make(chan struct{})
	started := make(chan struct{})
	src := &fakeSource{
		robots: func(ctx context.Context) ([]domain.Robot, error) {
			select {
			case <-started:
				return nil, nil
			default:
			}
			close(started)
			<-ctx.Done()
			close(aborted)
			return nil, ctx.Err()
		},
	}
	a := New(src)

	firstDone := make(chan error, 1)
	go func() {
		_, err := a.Load(context.Background(), domain.Period7D)
		firstDone <- err
	}()
	<-started

	if _, err := a.Load(context.Background(), domain.Period30D); err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight read of the superseded cycle was not canceled")
	}
	if err := <-firstDone; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first Load() error = %v, want ErrSuperseded", err)
	}
	if a.Snapshot().Err != "" {
		t.Error("superseded cycle surfaced an error")
	}
}

func TestResetDropsViewAndDiscardsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	block := false
	src := &fakeSource{
		trades: func(context.Context) ([]domain.Trade, error) {
			if block {
				close(started)
				<-release // resolves after Reset, ignoring cancellation
			}
			return []domain.Trade{{Symbol: "SECRETSYM", ProfitLoss: pnl(5)}}, nil
		},
	}
	a := New(src)
	if _, err := a.Load(context.Background(), domain.Period7D); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	block = true
	lateDone := make(chan error, 1)
	go func() {
		_, err := a.Load(context.Background(), domain.Period30D)
		lateDone <- err
	}()
	<-started

	a.Reset()
	snap := a.Snapshot()
	if snap.View != nil {
		t.Errorf("View = %+v after Reset, want nil", snap.View)
	}
	if snap.Loading || snap.Err != "" {
		t.Errorf("Loading = %v, Err = %q after Reset; want false, empty", snap.Loading, snap.Err)
	}

	close(release)
	if err := <-lateDone; !errors.Is(err, ErrSuperseded) {
		t.Errorf("in-flight Load() error = %v, want ErrSuperseded", err)
	}
	if a.Snapshot().View != nil {
		t.Error("cycle started before Reset applied its result")
	}
}

func TestInvalidPeriod(t *testing.T) {
	a := New(&fakeSource{})
	if _, err := a.Load(context.Background(), domain.Period("2w")); err == nil {
		t.Error("Load(2w) expected error")
	}
	if _, err := a.SetPeriod(context.Background(), domain.Period("")); err == nil {
		t.Error("SetPeriod(\"\") expected error")
	}
	if a.Period() != DefaultPeriod {
		t.Errorf("Period = %q, want unchanged %q", a.Period(), DefaultPeriod)
	}
}

func TestSetPeriodAndRefresh(t *testing.T) {
	var asked []domain.Period
	var mu sync.Mutex
	src := &fakeSource{performance: func(_ context.Context, p domain.Period) ([]domain.PerformancePoint, error) {
		mu.Lock()
		asked = append(asked, p)
		mu.Unlock()
		return points(100, 110), nil
	}}
	a := New(src)

	if _, err := a.SetPeriod(context.Background(), domain.Period90D); err != nil {
		t.Fatalf("SetPeriod() error: %v", err)
	}
	if _, err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	want := []domain.Period{domain.Period90D, domain.Period90D}
	if len(asked) != len(want) || asked[0] != want[0] || asked[1] != want[1] {
		t.Errorf("performance periods = %v, want %v", asked, want)
	}
}

type loadRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *loadRecorder) RecordDashboardLoad(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestRecorder(t *testing.T) {
	src := &fakeSource{}
	rec := &loadRecorder{}
	a := New(src, WithRecorder(rec))

	a.Load(context.Background(), domain.Period7D) //nolint:errcheck
	src.stats = func(context.Context) (*domain.DashboardStats, error) { return nil, errUpstream }
	a.Load(context.Background(), domain.Period7D) //nolint:errcheck

	if len(rec.outcomes) != 2 || rec.outcomes[0] != metrics.LoadOK || rec.outcomes[1] != metrics.LoadError {
		t.Errorf("outcomes = %v, want [ok error]", rec.outcomes)
	}
}

func TestLoadedAt(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	a := New(&fakeSource{}, WithClock(func() time.Time { return fixed }))
	vm, err := a.Load(context.Background(), domain.Period7D)
	if err != nil {
		t.Fatal(err)
	}
	if !vm.LoadedAt.Equal(fixed) {
		t.Errorf("LoadedAt = %v, want %v", vm.LoadedAt, fixed)
	}
}
