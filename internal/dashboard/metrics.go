package dashboard

import (
	"math"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// Metrics are derived client-side from the performance series and recent trades.
// Empty inputs yield zero values with HasSeries or HasTrades false.
type Metrics struct {
	TotalReturnPct float64
	TotalPnL       float64
	MaxBalance     float64
	MinBalance     float64
	Volatility     float64 // population std-dev of ReturnPercentage
	WinRate        float64 // percent of trades with positive P&L
	HasSeries      bool
	HasTrades      bool
}

// Compute derives all metrics.
func Compute(series []domain.PerformancePoint, trades []domain.Trade) Metrics {
	m := Metrics{
		HasSeries: len(series) > 0,
		HasTrades: len(trades) > 0,
	}
	m.TotalReturnPct, m.TotalPnL = TotalReturn(series)
	m.MaxBalance, m.MinBalance = BalanceRange(series)
	m.Volatility = Volatility(series)
	m.WinRate = WinRate(trades)
	return m
}

// TotalReturn returns the percent and absolute change from the first to the
// last balance. The percent is 0 when the first balance is 0.
func TotalReturn(series []domain.PerformancePoint) (pct, pnl float64) {
	if len(series) == 0 {
		return 0, 0
	}
	first, last := series[0].Balance, series[len(series)-1].Balance
	pnl = last - first
	if first == 0 {
		return 0, pnl
	}
	return pnl / first * 100, pnl
}

// BalanceRange returns the highest and lowest balance in the series.
func BalanceRange(series []domain.PerformancePoint) (maxBal, minBal float64) {
	if len(series) == 0 {
		return 0, 0
	}
	maxBal, minBal = series[0].Balance, series[0].Balance
	for _, p := range series[1:] {
		maxBal = math.Max(maxBal, p.Balance)
		minBal = math.Min(minBal, p.Balance)
	}
	return maxBal, minBal
}

// Volatility is the population standard deviation of the per-point return
// percentage.
func Volatility(series []domain.PerformancePoint) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, p := range series {
		sum += p.ReturnPercentage
	}
	mean := sum / float64(len(series))

	var variance float64
	for _, p := range series {
		diff := p.ReturnPercentage - mean
		variance += diff * diff
	}
	variance /= float64(len(series)) // population variance

	return math.Sqrt(variance)
}

// WinRate returns the percentage of trades with positive P&L, 0 with no trades.
func WinRate(trades []domain.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL() > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}
