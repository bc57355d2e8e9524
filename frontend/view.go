// Package frontend runs the UI context: it completes the startup handshake
// with the host, then wires the account flows and telemetry bridge to a
// View.
package frontend

import (
	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/history"
)

// Actions are the user intents a View forwards. They may be called from
// any goroutine.
type Actions struct {
	Login         func(form account.LoginForm)
	Register      func(form account.RegisterForm)
	ShowRegister  func()
	ShowLogin     func()
	Logout        func()
	InstallUpdate func()
}

// View is a front-end able to show the account forms and the dashboard.
// Methods other than Ready and Bind are called from the event loop; an
// implementation must marshal them onto its own UI thread.
type View interface {
	account.View

	// Ready is closed once the content is built and can be driven.
	Ready() <-chan struct{}
	// Bind connects form controls to actions.
	Bind(actions Actions)

	SetTelemetryConnected(connected bool)
	SetRecentJobs(entries []history.Entry)
	ShowUpdateAvailable(version string)
	ShowUpdateDownloaded(version string)
}
