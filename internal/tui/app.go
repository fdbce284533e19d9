package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/tradedesk/internal/browser"
	"github.com/naveenspark/tradedesk/internal/dashboard"
	"github.com/naveenspark/tradedesk/internal/session"
	"github.com/naveenspark/tradedesk/pkg/domain"
)

// Session is the part of the session store the TUI drives.
type Session interface {
	State() session.State
	Login(ctx context.Context, creds domain.Credentials) error
	Register(ctx context.Context, reg domain.Registration) error
	Revalidate(ctx context.Context) error
	Logout(ctx context.Context)
	ClearError()
}

// Dashboard is the part of the aggregator the TUI drives.
type Dashboard interface {
	Load(ctx context.Context, period domain.Period) (*dashboard.ViewModel, error)
	Refresh(ctx context.Context) (*dashboard.ViewModel, error)
	Snapshot() dashboard.Snapshot
	Reset()
}

// SessionChangedMsg is sent into the program whenever the session store
// publishes a new state.
type SessionChangedMsg struct {
	State session.State
}

type revalidatedMsg struct {
	err error
}

type logoutDoneMsg struct{}

type clipboardMsg struct {
	err error
}

// Options configures NewApp.
type Options struct {
	WebURL string
	Google GoogleFunc
}

// App is the root Bubbletea model.
type App struct {
	sess       Session
	dash       Dashboard
	webURL     string
	state      session.State
	login      loginModel
	dashboard  dashboardModel
	helpOpen   bool
	helpCursor int
	notice     string
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates a new TUI application.
func NewApp(s Session, d Dashboard, opts Options) App {
	return App{
		sess:      s,
		dash:      d,
		webURL:    strings.TrimRight(opts.WebURL, "/"),
		state:     s.State(),
		login:     newLoginModel(s, opts.Google),
		dashboard: newDashboardModel(d),
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{shimmerTickCmd()}
	if a.state.IsAuthenticated() {
		cmds = append(cmds, a.revalidate(), a.dashboard.load(a.dash.Snapshot().Period))
	}
	return tea.Batch(cmds...)
}

func (a App) revalidate() tea.Cmd {
	s := a.sess
	return func() tea.Msg {
		return revalidatedMsg{err: s.Revalidate(context.Background())}
	}
}

func (a App) logout() tea.Cmd {
	s := a.sess
	return func() tea.Msg {
		s.Logout(context.Background())
		return logoutDoneMsg{}
	}
}

func (a App) copySummary() tea.Cmd {
	text := summary(a.dash.Snapshot().View)
	if text == "" {
		return nil
	}
	return func() tea.Msg {
		return clipboardMsg{err: clipboard.WriteAll(text)}
	}
}

// applySession adopts st. Signing in starts a dashboard load; signing out
// drops the previous account's dashboard.
func (a App) applySession(st session.State) (App, tea.Cmd) {
	was := a.state.IsAuthenticated()
	a.state = st
	if was && !st.IsAuthenticated() {
		a.dash.Reset()
		return a, nil
	}
	if !was && st.IsAuthenticated() {
		a.notice = ""
		return a, a.dashboard.load(a.dash.Snapshot().Period)
	}
	return a, nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + help(1) = 3 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 3}
		a.login, _ = a.login.Update(bodyMsg)
		a.dashboard, _ = a.dashboard.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case SessionChangedMsg:
		return a.applySession(msg.State)

	case loginDoneMsg:
		a.login, _ = a.login.Update(msg)
		return a.applySession(a.sess.State())

	case revalidatedMsg, logoutDoneMsg:
		return a.applySession(a.sess.State())

	case dashboardLoadedMsg:
		// The view reads the aggregator snapshot; this only triggers a redraw.
		return a, nil

	case clipboardMsg:
		if msg.err != nil {
			a.notice = "copy failed: " + msg.err.Error()
		} else {
			a.notice = "summary copied"
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// Help overlay captures all keys when open
	if a.helpOpen {
		switch msg.String() {
		case "h", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		case "j", "down":
			if a.helpCursor < len(helpItems)-1 {
				a.helpCursor++
			}
		case "k", "up":
			if a.helpCursor > 0 {
				a.helpCursor--
			}
		case "enter":
			if a.webURL != "" {
				browser.Open(a.webURL + helpItems[a.helpCursor].path) //nolint:errcheck // best-effort browser open
			}
		}
		return a, nil
	}

	// The login form takes every printable key.
	if !a.state.IsAuthenticated() {
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}

	a.notice = ""
	switch msg.String() {
	case "h":
		a.helpOpen = true
		a.helpCursor = 0
		return a, nil
	case "q":
		return a, tea.Quit
	case "L":
		return a, a.logout()
	case "y":
		return a, a.copySummary()
	}

	var cmd tea.Cmd
	a.dashboard, cmd = a.dashboard.Update(msg)
	return a, cmd
}

func (a App) userLine() string {
	u := a.state.User
	if u == nil {
		return ""
	}
	parts := []string{normalStyle.Render(u.DisplayName())}
	if badge := PlanBadge(u.SubscriptionPlan); badge != "" {
		parts = append(parts, badge)
	}
	if u.IsAdmin() {
		parts = append(parts, noticeStyle.Render("admin"))
	}
	return strings.Join(parts, " ")
}

func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

func (a App) View() string {
	header := center(renderShimmerLogo(a.frame), a.width) + "\n"
	if line := a.userLine(); line != "" {
		header += center(line, a.width)
	}

	var body, help string
	if a.state.IsAuthenticated() {
		body = a.dashboard.View()
		help = " " + helpEntry("1-4", "period") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("y", "copy") + "  " +
			helpEntry("L", "sign out") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
	} else {
		body = a.login.View()
		help = " " + a.login.helpKeys()
	}

	if a.helpOpen {
		body = helpView(a.helpCursor, a.webURL)
		help = " " + helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("esc", "close")
	}

	if a.notice != "" {
		help = " " + noticeStyle.Render(a.notice) + "  " + help
	}

	// Chrome budget: header(2) + help(1) = 3 lines + body
	body = strings.TrimRight(truncateToHeight(body, a.height-3), "\n")

	return fmt.Sprintf("%s\n%s\n%s", header, body, help)
}
