// Package main provides the entry point for the Next Generation Tracker
// desktop client. The client reads job events from the truck simulator's
// telemetry server and reports finished and cancelled jobs to the player's
// Next Generation Tracker account.
//
// Features:
//   - Login, registration and remembered sessions
//   - Automatic job reporting while the game is running
//   - Local job history with a dashboard of recent deliveries
//   - Optional session token storage in the system keyring
//   - Background update checks
//   - GTK4 window with a tray icon, or a terminal UI (--tui)
//
// Usage:
//
//	ngt-tracker [options]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ngtracker/ngt-desktop/api"
	"github.com/ngtracker/ngt-desktop/cli"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/frontend"
	"github.com/ngtracker/ngt-desktop/history"
	"github.com/ngtracker/ngt-desktop/host"
	"github.com/ngtracker/ngt-desktop/ipc"
	"github.com/ngtracker/ngt-desktop/keyring"
	"github.com/ngtracker/ngt-desktop/notify"
	"github.com/ngtracker/ngt-desktop/telemetry"
	"github.com/ngtracker/ngt-desktop/tracing"
	"github.com/ngtracker/ngt-desktop/tui"
	"github.com/ngtracker/ngt-desktop/ui"
	"github.com/ngtracker/ngt-desktop/update"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

var (
	// General flags
	showVersion = flag.Bool("version", false, "Show version and exit")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showHelp    = flag.Bool("help", false, "Show help message")
	useTUI      = flag.Bool("tui", false, "Run the terminal UI instead of the window")

	// CLI flags
	showStatus    = flag.Bool("status", false, "Show the remembered session and cached profile")
	showHistory   = flag.Bool("history", false, "Show recently recorded jobs")
	loginAs       = flag.String("login", "", "Log in with an email or username")
	logout        = flag.Bool("logout", false, "Forget the remembered session")
	checkUpdate   = flag.Bool("check-update", false, "Check for a newer release")
	installUpdate = flag.Bool("install-update", false, "Download and install a newer release")
)

func main() {
	code, relaunch := run()
	if relaunch != nil {
		if err := relaunch(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: restart failed: %v\n", err)
			os.Exit(1)
		}
	}
	os.Exit(code)
}

// run returns the exit code and, when the UI context asked for a restart,
// the function that starts the new instance. It runs after every deferred
// cleanup here has completed.
func run() (int, func() error) {
	flag.Parse()

	if *showHelp {
		cli.PrintHelp()
		return 0, nil
	}

	if *showVersion {
		fmt.Printf("%s %s\n", common.AppName, appVersion)
		if buildTime != "unknown" {
			fmt.Printf("  Build:  %s\n", buildTime)
			fmt.Printf("  Commit: %s\n", commitSHA)
		}
		return 0, nil
	}

	logLevel := common.LevelInfo
	if *verbose {
		logLevel = common.LevelDebug
	}
	if err := common.InitLogger(common.LogConfig{
		Level:       logLevel,
		EnableFile:  true,
		MaxFileSize: 5 * 1024 * 1024, // 5MB
		MaxBackups:  5,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
	defer common.CloseLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := common.GetDataDir()
	if err != nil {
		common.LogError("Failed to open data directory: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1, nil
	}

	settings, err := config.LoadSettings(dataDir)
	if err != nil {
		common.LogWarn("Using default settings: %v", err)
		settings = config.DefaultSettings()
	}

	var vault common.TokenVault
	if settings.SecureTokenStorage {
		vault = keyring.New(common.ServiceName, dataDir)
	}

	app := &application{
		dataDir:  dataDir,
		settings: settings,
		sessions: config.NewSessionStore(dataDir, vault),
		profiles: config.NewProfileStore(dataDir),
		client:   api.NewClient(settings.APIBaseURL),
	}
	if settings.CheckUpdates || *checkUpdate || *installUpdate {
		app.checker = update.NewChecker(settings.ReleaseRepo, appVersion, dataDir)
	}

	if *showStatus || *showHistory || *loginAs != "" || *logout || *checkUpdate || *installUpdate {
		return app.runCLI(ctx), nil
	}

	shutdown, err := tracing.Setup(ctx, common.ServiceName, appVersion, settings.OTLPEndpoint)
	if err != nil {
		common.LogWarn("Tracing disabled: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			common.LogWarn("Failed to flush traces: %v", err)
		}
	}()

	common.LogInfo("Starting %s %s", common.AppName, appVersion)
	return app.runFrontEnd(ctx, *useTUI)
}

// application holds what both the CLI and the front-ends share.
type application struct {
	dataDir  string
	settings *config.Settings
	sessions *config.SessionStore
	profiles *config.ProfileStore
	client   *api.Client
	checker  *update.Checker
}

// runCLI handles command-line interface operations.
func (a *application) runCLI(ctx context.Context) int {
	deps := cli.Deps{
		Backend:     a.client,
		Sessions:    a.sessions,
		Profiles:    a.profiles,
		HistoryPath: filepath.Join(a.dataDir, common.HistoryFileName),
	}
	if a.checker != nil {
		deps.Updater = a.checker
	}
	c := cli.New(deps)

	var err error
	switch {
	case *showStatus:
		err = c.Status()
	case *showHistory:
		err = c.History(ctx, common.HistoryDisplayLimit)
	case *loginAs != "":
		err = c.Login(ctx, *loginAs)
	case *logout:
		err = c.Logout()
	case *checkUpdate, *installUpdate:
		var exe string
		if exe, err = os.Executable(); err == nil {
			err = c.CheckUpdate(ctx, *installUpdate, exe)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// window is a front-end: the host drives it as a window while the UI
// context drives it as a view.
type window interface {
	host.Window
	frontend.View
}

// runFrontEnd starts the host and UI contexts around a GTK or terminal
// front-end. The front-end owns the calling goroutine until it exits.
// The returned relaunch is non-nil when a restart was requested.
func (a *application) runFrontEnd(ctx context.Context, terminal bool) (int, func() error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := notify.New(common.AppName, a.settings.ShowNotifications)
	defer notifier.Close()

	store, err := history.Open(filepath.Join(a.dataDir, common.HistoryFileName))
	if err != nil {
		common.LogWarn("Job history disabled: %v", err)
	}
	defer store.Close()

	hub := telemetry.NewHub()
	defer hub.Stop()

	var (
		win     window
		runLoop func() int
	)
	if terminal {
		p := tui.New()
		win = p
		runLoop = func() int {
			if err := p.Run(); err != nil {
				return 1
			}
			return 0
		}
	} else {
		gtkApp := ui.NewApplication(common.AppID, appVersion, a.settings, notifier)
		win = gtkApp
		// GTK parses its own arguments; ours were consumed by flag.
		runLoop = func() int { return gtkApp.Run(os.Args[:1]) }
	}

	hostSignals, uiSignals := ipc.Pipe()
	defer hostSignals.Close()
	defer uiSignals.Close()

	settings := a.settings
	renderer := frontend.NewRenderer(ctx, frontend.Deps{
		Signals:  uiSignals,
		View:     win,
		Sessions: a.sessions,
		Profiles: a.profiles,
		Client:   a.client,
		Hub:      hub,
		NewFeed: func() telemetry.Feed {
			return telemetry.NewFeed(settings.TelemetryFeed, settings.TelemetryURL, settings.PollInterval)
		},
		History:  store,
		Notifier: notifier,
	})

	opts := host.Options{Notifier: notifier}
	if a.checker != nil {
		opts.Updater = a.checker
	}
	h := host.New(hostSignals, win, opts)

	hostErr := make(chan error, 1)
	go func() {
		err := h.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			common.LogError("Host failed: %v", err)
			win.Quit()
		}
		hostErr <- err
	}()

	rendererErr := make(chan error, 1)
	go func() {
		err := renderer.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			common.LogError("UI context failed: %v", err)
			win.Quit()
		}
		rendererErr <- err
	}()

	code := runLoop()
	cancel()

	if err := <-hostErr; err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, host.ErrClosedPrematurely) {
			common.LogError("Window closed before startup completed")
		}
		code = 1
	}
	if err := <-rendererErr; err != nil && !errors.Is(err, context.Canceled) {
		code = 1
	}

	if code != 0 {
		common.LogWarn("Application exited with code %d", code)
	}
	if h.RestartRequested() {
		return code, h.Relaunch
	}
	return code, nil
}
