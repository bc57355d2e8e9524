// Package host owns the window lifecycle. It completes the startup
// handshake with the UI context, then serves restart requests and relays
// update notices until the window closes.
package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/ipc"
	"github.com/ngtracker/ngt-desktop/update"
)

// ErrClosedPrematurely is returned when the window closes before both
// contexts are ready.
var ErrClosedPrematurely = common.ErrClosedPrematurely

// Window is the top-level window managed by the host.
type Window interface {
	// Load blocks until the window content has loaded.
	Load(ctx context.Context) error
	// Closed is closed once the window is gone.
	Closed() <-chan struct{}
	// Quit closes the window.
	Quit()
}

// Signals is the host end of the ipc channel.
type Signals interface {
	Send(sig ipc.Signal, payload interface{}) error
	Wait(ctx context.Context, sig ipc.Signal) (ipc.Message, error)
	On(sig ipc.Signal, fn func(ipc.Message)) func()
}

// Updater finds and fetches newer releases.
type Updater interface {
	Check(ctx context.Context) (*update.Release, error)
	Download(ctx context.Context, rel *update.Release, progress func(total int64) io.Writer) error
}

// Options tune a Host. Every field is optional.
type Options struct {
	Updater  Updater
	Notifier common.Notifier
	// Executable is relaunched on restart. Defaults to the running binary.
	Executable string
	// Args are passed to the relaunched process. Defaults to os.Args[1:].
	Args []string
	// Relaunch replaces the process with a fresh instance. Defaults to
	// exec on Unix.
	Relaunch func(exe string, args []string) error
	// Install swaps in a downloaded build. Defaults to update.Install.
	Install func(path, target string) error
}

// Host drives the host side of the application.
type Host struct {
	signals Signals
	window  Window
	opts    Options

	mu         sync.Mutex
	downloaded *update.Release
	restart    bool
}

// New creates a host for window talking over signals.
func New(signals Signals, window Window, opts Options) *Host {
	if opts.Relaunch == nil {
		opts.Relaunch = relaunch
	}
	if opts.Install == nil {
		opts.Install = update.Install
	}
	if opts.Args == nil && len(os.Args) > 1 {
		opts.Args = os.Args[1:]
	}
	return &Host{signals: signals, window: window, opts: opts}
}

// Run performs the startup handshake, then serves the UI context until the
// window closes. It returns nil on a normal close.
func (h *Host) Run(ctx context.Context) error {
	if err := h.handshake(ctx); err != nil {
		return err
	}

	if err := h.signals.Send(ipc.MainReady, nil); err != nil {
		return fmt.Errorf("announce main ready: %w", err)
	}
	common.LogInfo("Startup handshake complete")

	h.signals.On(ipc.Restart, func(ipc.Message) { h.requestRestart() })
	h.signals.On(ipc.RestartApp, func(ipc.Message) { h.installAndRestart() })

	if h.opts.Updater != nil {
		go h.checkUpdates(ctx)
	}

	select {
	case <-h.window.Closed():
		common.LogInfo("Window closed")
		return nil
	case <-ctx.Done():
		h.window.Quit()
		return ctx.Err()
	}
}

// handshake waits for the window to load and the UI context to report
// ready. Closing the window first fails startup.
func (h *Host) handshake(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.window.Load(gctx); err != nil {
			return fmt.Errorf("load window: %w", err)
		}
		common.LogDebug("Window content loaded")
		return nil
	})
	g.Go(func() error {
		if _, err := h.signals.Wait(gctx, ipc.RendererReady); err != nil {
			return fmt.Errorf("wait for renderer: %w", err)
		}
		common.LogDebug("Renderer reported ready")
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-h.window.Closed():
		cancel()
		<-done
		return ErrClosedPrematurely
	}
}

func (h *Host) checkUpdates(ctx context.Context) {
	rel, err := h.opts.Updater.Check(ctx)
	if err != nil {
		common.LogWarn("Update check failed: %v", err)
		return
	}
	if rel == nil {
		return
	}

	common.LogInfo("Update %s available", rel.Version)
	if err := h.signals.Send(ipc.UpdateAvailable, rel); err != nil {
		common.LogWarn("Failed to relay update notice: %v", err)
	}
	h.notify("Update available", fmt.Sprintf("Version %s is downloading", rel.Version))

	if err := h.opts.Updater.Download(ctx, rel, nil); err != nil {
		common.LogWarn("Update download failed: %v", err)
		return
	}

	h.mu.Lock()
	h.downloaded = rel
	h.mu.Unlock()

	if err := h.signals.Send(ipc.UpdateDownloaded, rel); err != nil {
		common.LogWarn("Failed to relay update notice: %v", err)
	}
	h.notify("Update ready", fmt.Sprintf("Restart to install version %s", rel.Version))
}

func (h *Host) notify(title, message string) {
	if h.opts.Notifier == nil {
		return
	}
	if err := h.opts.Notifier.Notify(title, message); err != nil {
		common.LogDebug("Notification failed: %v", err)
	}
}

func (h *Host) executable() (string, error) {
	if h.opts.Executable != "" {
		return h.opts.Executable, nil
	}
	return os.Executable()
}

// requestRestart marks the application for relaunch and closes the
// window. Relaunch starts the new instance once the window loop is gone.
func (h *Host) requestRestart() {
	h.mu.Lock()
	if h.restart {
		h.mu.Unlock()
		return
	}
	h.restart = true
	h.mu.Unlock()

	common.LogInfo("Restart requested")
	h.window.Quit()
}

// RestartRequested reports whether the UI context asked for a restart.
func (h *Host) RestartRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.restart
}

// Relaunch starts the new instance if a restart was requested. Call it
// after the window loop has returned and cleanup has run. With the default
// relaunch it does not return on success.
func (h *Host) Relaunch() error {
	if !h.RestartRequested() {
		return nil
	}
	exe, err := h.executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	common.LogInfo("Relaunching %s", exe)
	if err := h.opts.Relaunch(exe, h.opts.Args); err != nil {
		return fmt.Errorf("relaunch %s: %w", exe, err)
	}
	return nil
}

// installAndRestart installs a downloaded update, if any, then restarts.
func (h *Host) installAndRestart() {
	h.mu.Lock()
	rel := h.downloaded
	h.mu.Unlock()

	if rel != nil && rel.Path != "" {
		exe, err := h.executable()
		if err == nil {
			err = h.opts.Install(rel.Path, exe)
		}
		if err != nil {
			common.LogError("Failed to install update %s: %v", rel.Version, err)
		}
	}
	h.requestRestart()
}
