package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/tradedesk/pkg/domain"
)

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	fieldFullName
)

// loginDoneMsg carries the result of a sign-in attempt.
type loginDoneMsg struct {
	err error
}

// GoogleFunc runs the browser-based Google sign-in.
type GoogleFunc func(ctx context.Context) error

type loginModel struct {
	sess      Session
	google    GoogleFunc
	register  bool
	fields    [3]string
	focus     loginField
	statusMsg string
	width     int
	height    int
}

func newLoginModel(s Session, google GoogleFunc) loginModel {
	return loginModel{sess: s, google: google}
}

func (m loginModel) numFields() loginField {
	if m.register {
		return 3
	}
	return 2
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case loginDoneMsg:
		switch {
		case msg.err == nil:
			m.fields = [3]string{}
			m.focus = fieldEmail
			m.statusMsg = ""
		case m.sess.State().Err == "":
			// Failures before the store was reached, e.g. the browser flow.
			m.statusMsg = msg.err.Error()
		}

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m loginModel) updateKeys(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	m.statusMsg = ""
	n := m.numFields()

	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % n
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + n) % n
	case "enter":
		if m.focus < n-1 {
			m.focus++
			return m, nil
		}
		return m.submit()
	case "ctrl+r":
		m.register = !m.register
		if m.focus >= m.numFields() {
			m.focus = fieldEmail
		}
	case "ctrl+g":
		if m.google == nil {
			m.statusMsg = "google sign-in is not available here, run: tradedesk login --google"
			return m, nil
		}
		if m.sess.State().IsLoading() {
			return m, nil
		}
		g := m.google
		return m, func() tea.Msg {
			return loginDoneMsg{err: g(context.Background())}
		}
	case "esc":
		m.sess.ClearError()
	default:
		f := &m.fields[m.focus]
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			*f = insertText(*f, msg.Runes)
		} else {
			*f = editRune(*f, msg.String())
		}
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]
	if email == "" || password == "" {
		m.statusMsg = "email and password are required"
		return m, nil
	}
	if m.sess.State().IsLoading() {
		return m, nil
	}

	s := m.sess
	if m.register {
		reg := domain.Registration{
			Email:    email,
			Password: password,
			FullName: strings.TrimSpace(m.fields[fieldFullName]),
		}
		return m, func() tea.Msg {
			return loginDoneMsg{err: s.Register(context.Background(), reg)}
		}
	}
	creds := domain.Credentials{Email: email, Password: password}
	return m, func() tea.Msg {
		return loginDoneMsg{err: s.Login(context.Background(), creds)}
	}
}

func (m loginModel) helpKeys() string {
	toggle := "register"
	if m.register {
		toggle = "sign in"
	}
	return helpEntry("tab", "next") + "  " + helpEntry("enter", "submit") + "  " +
		helpEntry("ctrl+r", toggle) + "  " + helpEntry("ctrl+g", "google") + "  " + helpEntry("ctrl+c", "quit")
}

func (m loginModel) View() string {
	var b strings.Builder

	title := "Sign in"
	if m.register {
		title = "Create an account"
	}
	fmt.Fprintf(&b, "\n %s\n\n", sectionHeaderStyle.Render(title))

	labels := []string{"email", "password", "full name"}
	for i := loginField(0); i < m.numFields(); i++ {
		value := m.fields[i]
		if i == fieldPassword {
			value = mask(value)
		}
		cursor := " "
		style := metaStyle
		if i == m.focus {
			cursor = accentStyle.Render(">")
			style = selectedStyle
			value += "█"
		}
		fmt.Fprintf(&b, " %s %s %s\n", cursor, style.Render(padRight(labels[i], 10)), normalStyle.Render(value))
	}

	b.WriteString("\n")
	st := m.sess.State()
	switch {
	case st.IsLoading():
		b.WriteString(" " + dimStyle.Render("signing in..."))
	case st.Err != "":
		b.WriteString(" " + errorStyle.Render(st.Err) + "  " + metaStyle.Render("(esc to dismiss)"))
	case m.statusMsg != "":
		b.WriteString(" " + noticeStyle.Render(m.statusMsg))
	}
	return b.String()
}
