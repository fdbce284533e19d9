package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/tradedesk/internal/dashboard"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

// dashboardLoadedMsg carries the result of a load cycle.
type dashboardLoadedMsg struct {
	view *dashboard.ViewModel
	err  error
}

const (
	maxRobotRows = 5
	maxTradeRows = 8
)

type dashboardModel struct {
	dash   Dashboard
	width  int
	height int
}

func newDashboardModel(d Dashboard) dashboardModel {
	return dashboardModel{dash: d}
}

func (m dashboardModel) load(period domain.Period) tea.Cmd {
	d := m.dash
	return func() tea.Msg {
		vm, err := d.Load(context.Background(), period)
		return dashboardLoadedMsg{view: vm, err: err}
	}
}

func (m dashboardModel) refresh() tea.Cmd {
	d := m.dash
	return func() tea.Msg {
		vm, err := d.Refresh(context.Background())
		return dashboardLoadedMsg{view: vm, err: err}
	}
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "1", "2", "3", "4":
			p := domain.Periods[msg.String()[0]-'1']
			return m, m.load(p)
		case "r":
			return m, m.refresh()
		}
	}
	return m, nil
}

func (m dashboardModel) periodTabs(current domain.Period) string {
	var parts []string
	for i, p := range domain.Periods {
		key := fmt.Sprintf("%d", i+1)
		if p == current {
			parts = append(parts, accentStyle.Render(key)+" "+selectedStyle.Underline(true).Render(string(p)))
		} else {
			parts = append(parts, metaStyle.Render(key)+" "+dimStyle.Render(string(p)))
		}
	}
	return strings.Join(parts, "   ")
}

func (m dashboardModel) View() string {
	snap := m.dash.Snapshot()

	var b strings.Builder
	b.WriteString(" " + m.periodTabs(snap.Period))
	if snap.Loading {
		b.WriteString("  " + dimStyle.Render("loading..."))
	}
	b.WriteString("\n")

	if snap.Err != "" {
		b.WriteString(" " + errorStyle.Render(snap.Err) + "  " + metaStyle.Render("(r to retry)") + "\n")
	}

	vm := snap.View
	if vm == nil {
		if snap.Err == "" {
			b.WriteString("\n " + dimStyle.Render("loading dashboard..."))
		}
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(m.kpis(vm))
	b.WriteString("\n")
	b.WriteString(m.performance(vm))
	b.WriteString("\n")
	b.WriteString(m.robots(vm.ActiveRobots))
	b.WriteString("\n")
	b.WriteString(m.trades(vm.RecentTrades))
	return b.String()
}

func kpi(label, value string) string {
	return metaStyle.Render(label) + " " + value
}

func (m dashboardModel) kpis(vm *dashboard.ViewModel) string {
	s := vm.Stats
	row1 := []string{
		kpi("balance", kpiValueStyle.Render(formatMoney(s.AccountBalance))),
		kpi("total", pnlStyle(s.TotalProfit).Render(formatSignedMoney(s.TotalProfit))),
		kpi("today", pnlStyle(s.TodayProfit).Render(formatSignedMoney(s.TodayProfit))),
		kpi("week", pnlStyle(s.WeekProfit).Render(formatSignedMoney(s.WeekProfit))),
		kpi("month", pnlStyle(s.MonthProfit).Render(formatSignedMoney(s.MonthProfit))),
	}
	row2 := []string{
		kpi("trades", normalStyle.Render(fmt.Sprintf("%d", s.TotalTrades))),
		kpi("win rate", normalStyle.Render(fmt.Sprintf("%.1f%%", s.WinRate))),
		kpi("avg", pnlStyle(s.AvgProfit).Render(formatSignedMoney(s.AvgProfit))),
		kpi("robots", normalStyle.Render(fmt.Sprintf("%d", s.ActiveRobots))),
	}
	return " " + strings.Join(row1, "  ") + "\n " + strings.Join(row2, "  ") + "\n"
}

func (m dashboardModel) performance(vm *dashboard.ViewModel) string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("PERFORMANCE "+strings.ToUpper(string(vm.Period))) + "\n")

	mt := vm.Metrics
	if !mt.HasSeries {
		b.WriteString(" " + dimStyle.Render("no performance data for this period") + "\n")
		return b.String()
	}

	balances := make([]float64, len(vm.Performance))
	for i, p := range vm.Performance {
		balances[i] = p.Balance
	}
	width := m.width - 2
	if width < 10 {
		width = 40
	}
	b.WriteString(" " + pnlStyle(mt.TotalPnL).Render(sparkline(balances, width)) + "\n")

	parts := []string{
		kpi("return", pnlStyle(mt.TotalReturnPct).Render(formatPct(mt.TotalReturnPct))),
		kpi("p&l", pnlStyle(mt.TotalPnL).Render(formatSignedMoney(mt.TotalPnL))),
		kpi("high", normalStyle.Render(formatMoney(mt.MaxBalance))),
		kpi("low", normalStyle.Render(formatMoney(mt.MinBalance))),
		kpi("vol", normalStyle.Render(fmt.Sprintf("%.2f", mt.Volatility))),
	}
	if mt.HasTrades {
		parts = append(parts, kpi("recent wins", normalStyle.Render(fmt.Sprintf("%.1f%%", mt.WinRate))))
	}
	b.WriteString(" " + strings.Join(parts, "  ") + "\n")
	return b.String()
}

func (m dashboardModel) robots(robots []domain.Robot) string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("ACTIVE ROBOTS") + "\n")
	if len(robots) == 0 {
		b.WriteString(" " + dimStyle.Render("no active robots") + "\n")
		return b.String()
	}
	for i, r := range robots {
		if i == maxRobotRows {
			b.WriteString(" " + metaStyle.Render(fmt.Sprintf("+%d more", len(robots)-maxRobotRows)) + "\n")
			break
		}
		status := robotStatusStyle(r.Status).Render("●")
		name := normalStyle.Render(padRight(truncStr(r.Name, 20), 20))
		sym := dimStyle.Render(padRight(truncStr(r.Symbol, 10), 10))
		profit := pnlStyle(r.TotalProfit).Render(formatSignedMoney(r.TotalProfit))
		fmt.Fprintf(&b, " %s %s %s %s  %s\n", status, name, sym, profit,
			metaStyle.Render(fmt.Sprintf("%d trades, %.0f%% wins", r.TotalTrades, r.WinRate)))
	}
	return b.String()
}

func (m dashboardModel) trades(trades []domain.Trade) string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("RECENT TRADES") + "\n")
	if len(trades) == 0 {
		b.WriteString(" " + dimStyle.Render("no trades yet") + "\n")
		return b.String()
	}
	for i, t := range trades {
		if i == maxTradeRows {
			break
		}
		side := strings.ToUpper(t.TradeType)
		sideStyle := profitStyle
		if side == "SELL" {
			sideStyle = lossStyle
		}
		pnl := metaStyle.Render("open")
		if t.ProfitLoss != nil {
			pnl = pnlStyle(t.PnL()).Render(formatSignedMoney(t.PnL()))
		}
		fmt.Fprintf(&b, " %s %s %s %s\n",
			normalStyle.Render(padRight(truncStr(t.Symbol, 10), 10)),
			sideStyle.Render(padRight(side, 4)),
			pnl,
			metaStyle.Render(formatTime(t.OpenedAt)),
		)
	}
	return b.String()
}

// summary is the plain-text dashboard copied with "y".
func summary(vm *dashboard.ViewModel) string {
	if vm == nil {
		return ""
	}
	s := vm.Stats
	mt := vm.Metrics
	var b strings.Builder
	fmt.Fprintf(&b, "Balance %s | Total %s | Today %s\n",
		formatMoney(s.AccountBalance), formatSignedMoney(s.TotalProfit), formatSignedMoney(s.TodayProfit))
	fmt.Fprintf(&b, "Trades %d | Win rate %.1f%% | Active robots %d\n",
		s.TotalTrades, s.WinRate, s.ActiveRobots)
	if mt.HasSeries {
		fmt.Fprintf(&b, "%s return %s (%s), range %s - %s, volatility %.2f\n",
			vm.Period, formatPct(mt.TotalReturnPct), formatSignedMoney(mt.TotalPnL),
			formatMoney(mt.MinBalance), formatMoney(mt.MaxBalance), mt.Volatility)
	}
	return b.String()
}
