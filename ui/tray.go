package ui

import (
	"fmt"
	"sync"

	"fyne.io/systray"

	"github.com/ngtracker/ngt-desktop/common"
)

// Pre-generated icons for performance.
var (
	iconConnected    = GenerateConnectedIcon()
	iconDisconnected = GenerateDisconnectedIcon()
)

// TrayIndicator manages the system tray icon and menu.
// State setters may be called from any goroutine, before or after the tray
// is ready; the menu picks up the latest state in onReady.
type TrayIndicator struct {
	app *Application

	mu        sync.Mutex
	ready     bool
	connected bool
	loggedIn  bool
	profile   *common.UserProfile

	statusItem  *systray.MenuItem
	profileItem *systray.MenuItem
	logoutItem  *systray.MenuItem
}

// NewTrayIndicator creates a new system tray indicator.
func NewTrayIndicator(app *Application) *TrayIndicator {
	return &TrayIndicator{app: app}
}

// Run starts the system tray indicator.
// This should be called from a goroutine as it blocks.
func (t *TrayIndicator) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Stop removes the tray icon.
func (t *TrayIndicator) Stop() {
	t.mu.Lock()
	ready := t.ready
	t.mu.Unlock()
	if ready {
		systray.Quit()
	}
}

func (t *TrayIndicator) onReady() {
	systray.SetTitle(common.AppName)

	t.statusItem = systray.AddMenuItem("", "Game telemetry")
	t.statusItem.Disable()

	t.profileItem = systray.AddMenuItem("", "Signed-in account")
	t.profileItem.Disable()

	systray.AddSeparator()

	showItem := systray.AddMenuItem("Open "+common.AppName, "Show main window")
	go func() {
		for range showItem.ClickedCh {
			t.app.showWindow()
		}
	}()

	t.logoutItem = systray.AddMenuItem("Log out", "Log out of your account")
	go func() {
		for range t.logoutItem.ClickedCh {
			if logout := t.app.boundActions().Logout; logout != nil {
				logout()
			}
		}
	}()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Close "+common.AppName)
	go func() {
		for range quitItem.ClickedCh {
			t.app.Quit()
			systray.Quit()
		}
	}()

	t.mu.Lock()
	t.ready = true
	t.apply()
	t.mu.Unlock()
}

func (t *TrayIndicator) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
	common.LogInfo("Tray indicator cleanup completed")
}

// SetTelemetryConnected switches the icon between the connected and
// disconnected badge.
func (t *TrayIndicator) SetTelemetryConnected(connected bool) {
	t.update(func() { t.connected = connected })
}

// SetLoggedIn shows or hides the account entries.
func (t *TrayIndicator) SetLoggedIn(loggedIn bool) {
	t.update(func() { t.loggedIn = loggedIn })
}

// SetProfile updates the account summary.
func (t *TrayIndicator) SetProfile(profile *common.UserProfile) {
	t.update(func() { t.profile = profile })
}

func (t *TrayIndicator) update(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
	if t.ready {
		t.apply()
	}
}

// apply pushes the current state to the menu. Callers hold t.mu.
func (t *TrayIndicator) apply() {
	if t.connected {
		systray.SetIcon(iconConnected)
		systray.SetTooltip(common.AppName + " - Game connected")
		t.statusItem.SetTitle("●  Game connected")
	} else {
		systray.SetIcon(iconDisconnected)
		systray.SetTooltip(common.AppName + " - Game not running")
		t.statusItem.SetTitle("○  Game not running")
	}

	if !t.loggedIn {
		t.profileItem.Hide()
		t.logoutItem.Hide()
		return
	}

	if t.profile != nil {
		t.profileItem.SetTitle(fmt.Sprintf("%s · %d jobs", t.profile.Username, t.profile.JobsCompleted))
		t.profileItem.Show()
	} else {
		t.profileItem.Hide()
	}
	t.logoutItem.Show()
}
