package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

// Shimmer animation for the TRADEDESK logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "TRADEDESK" as a wave of light moving across the
// letters, deep teal (#123a3a) to bright cyan-green (#2dd4bf).
func renderShimmerLogo(frame int) string {
	const text = "TRADEDESK"
	n := len(text)

	var out strings.Builder
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(18 + b*(45-18))
		g := clampByte(58 + b*(212-58))
		bl := clampByte(58 + b*(191-58))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)
		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out.WriteString(s.Render(string(text[i])))

		if i < n-1 {
			out.WriteString(" ")
		}
	}

	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2dd4bf"))

	// P&L
	profitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45555"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878")).
				Bold(true)

	kpiValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	planColors = map[string]lipgloss.Color{
		"free":      lipgloss.Color("#8890a0"),
		"essential": lipgloss.Color("#60a0e0"),
		"pro":       lipgloss.Color("#c084e0"),
		"elite":     lipgloss.Color("#d4a844"),
	}

	robotStatusColors = map[string]lipgloss.Color{
		domain.RobotActive:  lipgloss.Color("#4ade80"),
		domain.RobotPaused:  lipgloss.Color("#d4a844"),
		domain.RobotStopped: lipgloss.Color("#606878"),
	}
)

// PlanStyle returns a bold style colored for a subscription plan.
func PlanStyle(plan string) lipgloss.Style {
	if c, ok := planColors[plan]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
}

// PlanBadge renders a plan as "[PRO]".
func PlanBadge(plan string) string {
	if plan == "" {
		return ""
	}
	return PlanStyle(plan).Render("[" + strings.ToUpper(plan) + "]")
}

func robotStatusStyle(status string) lipgloss.Style {
	if c, ok := robotStatusColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return dimStyle
}

// pnlStyle colors a value green when positive and red when negative.
func pnlStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return profitStyle
	case v < 0:
		return lossStyle
	default:
		return normalStyle
	}
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpItem is a selectable link in the help overlay.
type helpItem struct {
	label string
	path  string
}

var helpItems = []helpItem{
	{"Dashboard", "/dashboard"},
	{"Robots", "/robots"},
	{"Brokers", "/brokers"},
	{"Subscription", "/subscription"},
}

// helpView renders the help overlay. Links open under webURL.
func helpView(cursor int, webURL string) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#2dd4bf")).
		Bold(true).
		Render("T R A D E D E S K")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2dd4bf"))
	linkDescStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	commands := []struct{ cmd, desc string }{
		{"tradedesk", "Open the dashboard (interactive TUI)"},
		{"tradedesk login", "Sign in with email and password"},
		{"tradedesk login --google", "Sign in with Google in the browser"},
		{"tradedesk logout", "Sign out and forget the session"},
		{"tradedesk dashboard", "Print the dashboard summary"},
		{"tradedesk robots", "List, start and stop robots"},
		{"tradedesk trades", "List trades and statistics"},
	}

	keys := []struct{ key, desc string }{
		{"1-4", "period 1d / 7d / 30d / 90d"},
		{"r", "refresh"},
		{"y", "copy summary to clipboard"},
		{"L", "sign out"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n", title)

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.cmd)), descStyle.Render(c.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", k.key)), descStyle.Render(k.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Web (enter to open)"))
	for i, item := range helpItems {
		label := cmdStyle.Render(fmt.Sprintf("%-26s", item.label))
		prefix := "    "
		if i == cursor {
			label = cursorStyle.Render(fmt.Sprintf("%-26s", item.label))
			prefix = "  > "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", prefix, label, linkDescStyle.Render(webURL+item.path))
	}
	return b.String()
}
