package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/tradedesk/internal/dashboard"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

func float(v float64) *float64 { return &v }

func populatedView() *dashboard.ViewModel {
	series := []domain.PerformancePoint{
		{Timestamp: time.Now().Add(-2 * time.Hour), Balance: 100, ReturnPercentage: 0},
		{Timestamp: time.Now().Add(-time.Hour), Balance: 125, ReturnPercentage: 25},
		{Timestamp: time.Now(), Balance: 150, ReturnPercentage: 50},
	}
	trades := []domain.Trade{
		{Symbol: "EURUSD", TradeType: "buy", ProfitLoss: float(12.5), OpenedAt: time.Now().Add(-5 * time.Minute)},
		{Symbol: "XAUUSD", TradeType: "sell", ProfitLoss: float(-3), OpenedAt: time.Now().Add(-time.Hour)},
		{Symbol: "GBPUSD", TradeType: "buy", OpenedAt: time.Now()},
	}
	return &dashboard.ViewModel{
		Period:       domain.Period7D,
		Stats:        domain.DashboardStats{AccountBalance: 10250.75, TotalProfit: 250.75, TotalTrades: 42, WinRate: 61.9, ActiveRobots: 1},
		Performance:  series,
		RecentTrades: trades,
		ActiveRobots: []domain.Robot{{Name: "Gold Scalper", Symbol: "XAUUSD", Status: domain.RobotActive, TotalProfit: 80}},
		Metrics:      dashboard.Compute(series, trades),
		LoadedAt:     time.Now(),
	}
}

func renderDashboard(snap dashboard.Snapshot) string {
	m := newDashboardModel(&fakeDashboard{snap: snap})
	m.width = 100
	return m.View()
}

func TestDashboardViewStates(t *testing.T) {
	empty := &dashboard.ViewModel{Period: domain.Period1D, RecentTrades: []domain.Trade{}, ActiveRobots: []domain.Robot{}}

	tests := []struct {
		name    string
		snap    dashboard.Snapshot
		want    []string
		notWant []string
	}{
		{
			name:    "first load",
			snap:    dashboard.Snapshot{Period: domain.Period7D, Loading: true},
			want:    []string{"loading dashboard"},
			notWant: []string{"balance"},
		},
		{
			name:    "first load failed",
			snap:    dashboard.Snapshot{Period: domain.Period7D, Err: "server error"},
			want:    []string{"server error", "r to retry"},
			notWant: []string{"loading dashboard", "balance"},
		},
		{
			name: "failure keeps previous data",
			snap: dashboard.Snapshot{Period: domain.Period30D, View: populatedView(), Err: "network unavailable"},
			want: []string{"network unavailable", "$10,250.75", "Gold Scalper"},
		},
		{
			name: "empty account",
			snap: dashboard.Snapshot{Period: domain.Period1D, View: empty},
			want: []string{"no performance data", "no active robots", "no trades yet"},
		},
		{
			name: "populated",
			snap: dashboard.Snapshot{Period: domain.Period7D, View: populatedView()},
			want: []string{
				"$10,250.75", "+$250.75", "61.9%",
				"+50.0%", "+$50.00", "$150.00", "$100.00",
				"Gold Scalper", "EURUSD", "SELL", "open", "5m ago",
			},
			notWant: []string{"retry"},
		},
		{
			name: "refresh in flight",
			snap: dashboard.Snapshot{Period: domain.Period7D, View: populatedView(), Loading: true},
			want: []string{"loading...", "EURUSD"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := renderDashboard(tc.snap)
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("View() missing %q:\n%s", w, got)
				}
			}
			for _, w := range tc.notWant {
				if strings.Contains(got, w) {
					t.Errorf("View() should not contain %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestDashboardRobotOverflow(t *testing.T) {
	vm := populatedView()
	vm.ActiveRobots = nil
	for i := 0; i < maxRobotRows+2; i++ {
		vm.ActiveRobots = append(vm.ActiveRobots, domain.Robot{Name: "bot", Status: domain.RobotActive})
	}
	got := renderDashboard(dashboard.Snapshot{Period: domain.Period7D, View: vm})
	if !strings.Contains(got, "+2 more") {
		t.Errorf("View() missing overflow line:\n%s", got)
	}
}

func TestSummary(t *testing.T) {
	if summary(nil) != "" {
		t.Error("summary(nil) should be empty")
	}
	got := summary(populatedView())
	for _, w := range []string{"Balance $10,250.75", "Trades 42", "7d return +50.0%", "volatility 20.41"} {
		if !strings.Contains(got, w) {
			t.Errorf("summary missing %q:\n%s", w, got)
		}
	}
}
