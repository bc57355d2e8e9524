// Package tui is the terminal front-end. Program implements frontend.View
// and host.Window on top of a Bubble Tea program, for machines without a
// desktop session.
package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/frontend"
	"github.com/ngtracker/ngt-desktop/history"
)

// Program drives the terminal UI.
type Program struct {
	program *tea.Program

	ready      chan struct{}
	closed     chan struct{}
	readyOnce  sync.Once
	closedOnce sync.Once
}

// New creates a program. Extra options are passed to Bubble Tea.
func New(opts ...tea.ProgramOption) *Program {
	p := &Program{
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p.program = tea.NewProgram(readyModel{model: newModel(), started: p.markReady}, opts...)
	return p
}

// Run runs the program on the calling goroutine until the user quits or
// Quit is called.
func (p *Program) Run() error {
	defer p.markClosed()
	_, err := p.program.Run()
	if err != nil {
		common.LogError("Terminal UI failed: %v", err)
	}
	return err
}

func (p *Program) markReady() {
	p.readyOnce.Do(func() { close(p.ready) })
}

func (p *Program) markClosed() {
	p.closedOnce.Do(func() { close(p.closed) })
}

// send delivers msg unless the program already exited.
func (p *Program) send(msg tea.Msg) {
	select {
	case <-p.closed:
	default:
		p.program.Send(msg)
	}
}

// readyModel reports the first Init call, which happens once the program
// owns the terminal.
type readyModel struct {
	model
	started func()
}

func (r readyModel) Init() tea.Cmd {
	r.started()
	return r.model.Init()
}

// host.Window

// Load blocks until the program has started.
func (p *Program) Load(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-p.closed:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed is closed once the program exits.
func (p *Program) Closed() <-chan struct{} {
	return p.closed
}

// Quit stops the program.
func (p *Program) Quit() {
	p.program.Quit()
}

// frontend.View

// Ready is closed once the program has started.
func (p *Program) Ready() <-chan struct{} {
	return p.ready
}

// Bind connects key bindings to actions.
func (p *Program) Bind(actions frontend.Actions) {
	p.send(bindMsg{actions: actions})
}

func (p *Program) ShowLoading()                           { p.send(pageMsg(pageLoading)) }
func (p *Program) ShowLoginForm()                         { p.send(pageMsg(pageLogin)) }
func (p *Program) ShowRegisterForm()                      { p.send(pageMsg(pageRegister)) }
func (p *Program) ShowDashboard()                         { p.send(pageMsg(pageDashboard)) }
func (p *Program) SetLoginBusy(busy bool)                 { p.send(loginBusyMsg(busy)) }
func (p *Program) SetRegisterBusy(busy bool)              { p.send(regBusyMsg(busy)) }
func (p *Program) SetLoginError(message string)           { p.send(loginErrMsg(message)) }
func (p *Program) SetRegisterError(message string)        { p.send(regErrMsg(message)) }
func (p *Program) FillLogin(form account.LoginForm)       { p.send(fillMsg(form)) }
func (p *Program) SetProfile(profile *common.UserProfile) { p.send(profileMsg{profile: profile}) }
func (p *Program) SetTelemetryConnected(connected bool)   { p.send(telemetryMsg(connected)) }
func (p *Program) SetRecentJobs(entries []history.Entry)  { p.send(jobsMsg(entries)) }
func (p *Program) ShowUpdateAvailable(version string)     { p.send(updateMsg{version: version}) }
func (p *Program) ShowUpdateDownloaded(version string)    { p.send(updateMsg{version: version, downloaded: true}) }
