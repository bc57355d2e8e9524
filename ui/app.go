package ui

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/frontend"
	"github.com/ngtracker/ngt-desktop/history"
	"github.com/ngtracker/ngt-desktop/notify"
)

// Application represents the GTK application.
type Application struct {
	app      *gtk.Application
	settings *config.Settings
	notifier *notify.Notifier
	version  string
	window   *MainWindow
	tray     *TrayIndicator

	ready      chan struct{}
	loaded     chan struct{}
	closed     chan struct{}
	readyOnce  sync.Once
	loadedOnce sync.Once
	closedOnce sync.Once

	mu      sync.Mutex
	actions frontend.Actions
}

// NewApplication creates the application. notifier may be nil.
func NewApplication(appID, version string, settings *config.Settings, notifier *notify.Notifier) *Application {
	app := gtk.NewApplication(appID, gio.ApplicationFlagsNone)

	a := &Application{
		app:      app,
		settings: settings,
		notifier: notifier,
		version:  version,
		ready:    make(chan struct{}),
		loaded:   make(chan struct{}),
		closed:   make(chan struct{}),
	}

	a.tray = NewTrayIndicator(a)

	app.ConnectActivate(a.onActivate)
	app.ConnectShutdown(a.onShutdown)

	return a
}

// Run runs the GTK main loop on the calling goroutine and returns the exit
// code.
func (a *Application) Run(args []string) int {
	code := a.app.Run(args)
	a.markClosed()
	return code
}

// onActivate is called when the application is activated.
func (a *Application) onActivate() {
	if a.window != nil {
		a.window.window.Present()
		return
	}

	a.ApplyTheme(a.settings.Theme)
	a.setupAppIcon()
	LoadStyles()

	a.window = NewMainWindow(a)
	a.window.window.ConnectMap(func() {
		a.loadedOnce.Do(func() { close(a.loaded) })
	})
	a.readyOnce.Do(func() { close(a.ready) })
	a.window.Show()

	go a.tray.Run()
}

func (a *Application) onShutdown() {
	a.tray.Stop()
	a.markClosed()
}

func (a *Application) markClosed() {
	a.closedOnce.Do(func() { close(a.closed) })
}

// setupAppIcon sets up the application icon.
func (a *Application) setupAppIcon() {
	display := gdk.DisplayGetDefault()
	if display == nil {
		return
	}

	iconTheme := gtk.IconThemeGetForDisplay(display)
	if iconTheme == nil {
		return
	}

	if execPath, err := os.Executable(); err == nil {
		iconTheme.AddSearchPath(filepath.Join(filepath.Dir(execPath), "assets", "icons"))
	}
	if cwd, err := os.Getwd(); err == nil {
		iconTheme.AddSearchPath(filepath.Join(cwd, "assets", "icons"))
	}

	gtk.WindowSetDefaultIconName(common.ServiceName)
}

// ApplyTheme applies the specified theme to the application.
// Supported values: "auto" (system default), "light", "dark".
func (a *Application) ApplyTheme(theme string) {
	settings := gtk.SettingsGetDefault()
	if settings == nil {
		return
	}

	switch theme {
	case common.ThemeLight:
		settings.SetObjectProperty("gtk-application-prefer-dark-theme", false)
	case common.ThemeDark:
		settings.SetObjectProperty("gtk-application-prefer-dark-theme", true)
	}
}

// showWindow presents the main window. Safe from any goroutine.
func (a *Application) showWindow() {
	a.idle(func(w *MainWindow) { w.window.Present() })
}

// boundActions returns the actions registered by the UI context.
func (a *Application) boundActions() frontend.Actions {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.actions
}

// idle runs fn with the main window on the GTK thread.
func (a *Application) idle(fn func(w *MainWindow)) {
	glib.IdleAdd(func() {
		if a.window != nil {
			fn(a.window)
		}
	})
}

// host.Window

// Load blocks until the main window is mapped.
func (a *Application) Load(ctx context.Context) error {
	select {
	case <-a.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed is closed once the application shuts down.
func (a *Application) Closed() <-chan struct{} {
	return a.closed
}

// Quit closes the application. Safe from any goroutine.
func (a *Application) Quit() {
	glib.IdleAdd(func() { a.app.Quit() })
}

// frontend.View

// Ready is closed once the window content is built.
func (a *Application) Ready() <-chan struct{} {
	return a.ready
}

// Bind connects the window controls to actions.
func (a *Application) Bind(actions frontend.Actions) {
	a.mu.Lock()
	a.actions = actions
	a.mu.Unlock()
	a.idle(func(w *MainWindow) { w.setBound(true) })
}

func (a *Application) ShowLoading() {
	a.idle(func(w *MainWindow) { w.showPage(pageLoading) })
}

func (a *Application) ShowLoginForm() {
	a.idle(func(w *MainWindow) { w.showPage(pageLogin) })
}

func (a *Application) ShowRegisterForm() {
	a.idle(func(w *MainWindow) { w.showPage(pageRegister) })
}

func (a *Application) ShowDashboard() {
	a.idle(func(w *MainWindow) { w.showPage(pageDashboard) })
	a.tray.SetLoggedIn(true)
}

func (a *Application) SetLoginBusy(busy bool) {
	a.idle(func(w *MainWindow) { w.login.setBusy(busy) })
}

func (a *Application) SetRegisterBusy(busy bool) {
	a.idle(func(w *MainWindow) { w.register.setBusy(busy) })
}

func (a *Application) SetLoginError(message string) {
	a.idle(func(w *MainWindow) { setError(w.login.errorLabel, message) })
}

func (a *Application) SetRegisterError(message string) {
	a.idle(func(w *MainWindow) { setError(w.register.errorLabel, message) })
}

func (a *Application) FillLogin(form account.LoginForm) {
	a.idle(func(w *MainWindow) { w.login.fill(form) })
}

func (a *Application) SetProfile(profile *common.UserProfile) {
	a.idle(func(w *MainWindow) { w.dashboard.setProfile(profile) })
	a.tray.SetProfile(profile)
}

func (a *Application) SetTelemetryConnected(connected bool) {
	a.idle(func(w *MainWindow) { w.setTelemetryConnected(connected) })
	a.tray.SetTelemetryConnected(connected)
}

func (a *Application) SetRecentJobs(entries []history.Entry) {
	a.idle(func(w *MainWindow) { w.dashboard.setJobs(entries) })
}

func (a *Application) ShowUpdateAvailable(version string) {
	a.idle(func(w *MainWindow) { w.showUpdate(version, false) })
}

func (a *Application) ShowUpdateDownloaded(version string) {
	a.idle(func(w *MainWindow) { w.showUpdate(version, true) })
}
