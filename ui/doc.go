// Package ui provides the GTK4 front-end of the tracker client.
//
// Application implements both frontend.View, driven by the UI context,
// and host.Window, driven by the host:
//
//   - MainWindow: a stack of login, register, loading and dashboard pages
//     with a status bar showing whether the game is running
//   - TrayIndicator: system tray icon reflecting the telemetry connection,
//     with the account summary, log out and quit
//   - PreferencesDialog: edits settings.yaml
//
// # Thread Safety
//
// GTK operations must execute on the main thread. View methods are called
// from the UI context's event loop, so every one of them schedules its work
// with glib.IdleAdd:
//
//	func (a *Application) ShowDashboard() {
//	    a.idle(func(w *MainWindow) { w.showPage(pageDashboard) })
//	}
//
// # File Organization
//
//   - app.go: application lifecycle, host.Window and frontend.View
//   - main_window.go: window layout, pages and menu
//   - tray.go: system tray indicator
//   - icons.go: tray icon generation
//   - styles.go: CSS styling
//   - preferences.go: settings dialog
package ui
