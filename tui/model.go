package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/frontend"
	"github.com/ngtracker/ngt-desktop/history"
)

type page int

const (
	pageLoading page = iota
	pageLogin
	pageRegister
	pageDashboard
)

// Login form focus positions. The remember-me toggle follows the inputs.
const (
	loginIdentifier = iota
	loginPassword
	loginRemember
)

// Messages sent by Program to the model.
type (
	bindMsg      struct{ actions frontend.Actions }
	pageMsg      page
	loginBusyMsg bool
	regBusyMsg   bool
	loginErrMsg  string
	regErrMsg    string
	fillMsg      account.LoginForm
	profileMsg   struct{ profile *common.UserProfile }
	telemetryMsg bool
	jobsMsg      []history.Entry
)

type updateMsg struct {
	version    string
	downloaded bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("25")).Padding(0, 1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2)
)

type model struct {
	page    page
	actions frontend.Actions
	bound   bool
	spinner spinner.Model

	login    []textinput.Model
	remember bool
	register []textinput.Model
	focus    int

	loginBusy    bool
	registerBusy bool
	loginErr     string
	registerErr  string

	profile   *common.UserProfile
	jobs      []history.Entry
	connected bool

	updateVersion string
	updateReady   bool
}

func newInput(placeholder string, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.Width = 32
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func newModel() model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		page:    pageLoading,
		spinner: s,
		login: []textinput.Model{
			newInput("Email or username", false),
			newInput("Password", true),
		},
		register: []textinput.Model{
			newInput("Username", false),
			newInput("Email", false),
			newInput("Password", true),
			newInput("Confirm password", true),
		},
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case bindMsg:
		m.actions = msg.actions
		m.bound = true
		return m, nil

	case pageMsg:
		m.page = page(msg)
		cmd := m.setFocus(0)
		return m, cmd

	case loginBusyMsg:
		m.loginBusy = bool(msg)
	case regBusyMsg:
		m.registerBusy = bool(msg)
	case loginErrMsg:
		m.loginErr = string(msg)
	case regErrMsg:
		m.registerErr = string(msg)

	case fillMsg:
		m.login[loginIdentifier].SetValue(msg.Identifier)
		m.login[loginPassword].SetValue(msg.Password)
		m.remember = msg.RememberMe

	case profileMsg:
		m.profile = msg.profile
	case telemetryMsg:
		m.connected = bool(msg)
	case jobsMsg:
		m.jobs = msg
	case updateMsg:
		m.updateVersion = msg.version
		m.updateReady = msg.downloaded

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+u":
		if m.updateReady && m.bound && m.actions.InstallUpdate != nil {
			m.updateReady = false
			m.actions.InstallUpdate()
		}
		return m, nil
	}

	switch m.page {
	case pageLogin:
		return m.loginKey(msg)
	case pageRegister:
		return m.registerKey(msg)
	case pageDashboard:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "l":
			if m.bound && m.actions.Logout != nil {
				m.actions.Logout()
			}
		}
	}
	return m, nil
}

func (m model) loginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		cmd := m.setFocus((m.focus + 1) % (loginRemember + 1))
		return m, cmd
	case "shift+tab", "up":
		cmd := m.setFocus((m.focus + loginRemember) % (loginRemember + 1))
		return m, cmd
	case "ctrl+r":
		if m.bound && m.actions.ShowRegister != nil {
			m.actions.ShowRegister()
		}
		return m, nil
	case " ", "space":
		if m.focus == loginRemember {
			m.remember = !m.remember
			return m, nil
		}
	case "enter":
		if m.focus == loginRemember {
			m.remember = !m.remember
			return m, nil
		}
		if m.bound && !m.loginBusy && m.actions.Login != nil {
			m.actions.Login(account.LoginForm{
				Identifier: m.login[loginIdentifier].Value(),
				Password:   m.login[loginPassword].Value(),
				RememberMe: m.remember,
			})
		}
		return m, nil
	}

	if m.focus >= len(m.login) {
		return m, nil
	}
	var cmd tea.Cmd
	m.login[m.focus], cmd = m.login[m.focus].Update(msg)
	return m, cmd
}

func (m model) registerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.register)
	switch msg.String() {
	case "tab", "down":
		cmd := m.setFocus((m.focus + 1) % n)
		return m, cmd
	case "shift+tab", "up":
		cmd := m.setFocus((m.focus + n - 1) % n)
		return m, cmd
	case "esc":
		if m.bound && m.actions.ShowLogin != nil {
			m.actions.ShowLogin()
		}
		return m, nil
	case "enter":
		if m.bound && !m.registerBusy && m.actions.Register != nil {
			m.actions.Register(account.RegisterForm{
				Username:        m.register[0].Value(),
				Email:           m.register[1].Value(),
				Password:        m.register[2].Value(),
				ConfirmPassword: m.register[3].Value(),
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.register[m.focus], cmd = m.register[m.focus].Update(msg)
	return m, cmd
}

// setFocus focuses position i of the current form and blurs the rest.
func (m *model) setFocus(i int) tea.Cmd {
	m.focus = i
	var cmds []tea.Cmd
	for j := range m.login {
		if m.page == pageLogin && j == i {
			cmds = append(cmds, m.login[j].Focus())
		} else {
			m.login[j].Blur()
		}
	}
	for j := range m.register {
		if m.page == pageRegister && j == i {
			cmds = append(cmds, m.register[j].Focus())
		} else {
			m.register[j].Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m model) View() string {
	var b strings.Builder

	if m.updateVersion != "" {
		if m.updateReady {
			b.WriteString(bannerStyle.Render(fmt.Sprintf("Version %s is ready. Press ctrl+u to restart and install.", m.updateVersion)))
		} else {
			b.WriteString(bannerStyle.Render(fmt.Sprintf("Downloading version %s…", m.updateVersion)))
		}
		b.WriteString("\n\n")
	}

	switch m.page {
	case pageLoading:
		b.WriteString(fmt.Sprintf("\n  %s Loading…\n", m.spinner.View()))
	case pageLogin:
		b.WriteString(boxStyle.Render(m.loginView()))
	case pageRegister:
		b.WriteString(boxStyle.Render(m.registerView()))
	case pageDashboard:
		b.WriteString(m.dashboardView())
	}

	b.WriteString("\n\n")
	if m.connected {
		b.WriteString(okStyle.Render("● Game connected"))
	} else {
		b.WriteString(dimStyle.Render("○ Game not running"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Log in") + "\n\n")
	for _, in := range m.login {
		b.WriteString(in.View() + "\n")
	}

	box := "[ ]"
	if m.remember {
		box = "[x]"
	}
	line := box + " Remember me"
	if m.focus == loginRemember {
		line = titleStyle.Render(line)
	}
	b.WriteString(line + "\n")

	if m.loginErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.loginErr) + "\n")
	}
	if m.loginBusy {
		b.WriteString("\n" + m.spinner.View() + " Logging in…\n")
	}
	b.WriteString("\n" + dimStyle.Render("enter: log in • tab: next field • ctrl+r: create an account • ctrl+c: quit"))
	return b.String()
}

func (m model) registerView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create an account") + "\n\n")
	for _, in := range m.register {
		b.WriteString(in.View() + "\n")
	}
	if m.registerErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.registerErr) + "\n")
	}
	if m.registerBusy {
		b.WriteString("\n" + m.spinner.View() + " Registering…\n")
	}
	b.WriteString("\n" + dimStyle.Render("enter: register • tab: next field • esc: back to log in"))
	return b.String()
}

func (m model) dashboardView() string {
	var b strings.Builder
	name := ""
	if m.profile != nil {
		name = m.profile.Username
	}
	b.WriteString(titleStyle.Render("Hello, "+name) + "\n\n")

	for _, stat := range frontend.ProfileStats(m.profile) {
		b.WriteString(fmt.Sprintf("  %-18s %s\n", stat.Label, stat.Value))
	}

	b.WriteString("\n" + titleStyle.Render("Recent jobs") + "\n")
	if len(m.jobs) == 0 {
		b.WriteString(dimStyle.Render("  No jobs recorded yet. Start a delivery in game.") + "\n")
	}
	for _, entry := range m.jobs {
		line := "  " + frontend.EntryLine(entry)
		if !entry.Submitted {
			line = errorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("l: log out • q: quit"))
	return b.String()
}
