package host

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ngtracker/ngt-desktop/ipc"
	"github.com/ngtracker/ngt-desktop/update"
)

type fakeWindow struct {
	loaded  chan struct{}
	loadErr error
	closed  chan struct{}
	once    sync.Once
	quits   int
	mu      sync.Mutex
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{loaded: make(chan struct{}), closed: make(chan struct{})}
}

func (w *fakeWindow) Load(ctx context.Context) error {
	select {
	case <-w.loaded:
		return w.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *fakeWindow) Closed() <-chan struct{} { return w.closed }

func (w *fakeWindow) Quit() {
	w.mu.Lock()
	w.quits++
	w.mu.Unlock()
	w.close()
}

func (w *fakeWindow) close() { w.once.Do(func() { close(w.closed) }) }

func (w *fakeWindow) quitCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quits
}

type fakeUpdater struct {
	rel *update.Release
}

func (u *fakeUpdater) Check(context.Context) (*update.Release, error) {
	return u.rel, nil
}

func (u *fakeUpdater) Download(_ context.Context, rel *update.Release, _ func(int64) io.Writer) error {
	rel.Path = "/tmp/ngt-tracker-new"
	return nil
}

type relaunches struct {
	mu       sync.Mutex
	exes     []string
	installs [][2]string
}

func (r *relaunches) relaunch(exe string, _ []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exes = append(r.exes, exe)
	return nil
}

func (r *relaunches) install(path, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installs = append(r.installs, [2]string{path, target})
	return nil
}

func (r *relaunches) counts() (int, [][2]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exes), append([][2]string(nil), r.installs...)
}

func startHost(t *testing.T, window *fakeWindow, opts Options) (*ipc.Channel, chan error, *Host) {
	t.Helper()
	hostSide, ui := ipc.Pipe()
	t.Cleanup(func() {
		window.close()
		hostSide.Close()
		ui.Close()
	})

	h := New(hostSide, window, opts)
	errc := make(chan error, 1)
	go func() { errc <- h.Run(context.Background()) }()
	return ui, errc, h
}

func waitErr(t *testing.T, errc chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return")
		return nil
	}
}

func TestHost_HandshakeSendsMainReady(t *testing.T) {
	window := newFakeWindow()
	ui, errc, _ := startHost(t, window, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// The renderer is ready first; main_ready still waits for the window.
	if err := ui.Send(ipc.RendererReady, nil); err != nil {
		t.Fatal(err)
	}
	short, stop := context.WithTimeout(ctx, 100*time.Millisecond)
	if _, err := ui.Wait(short, ipc.MainReady); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("main_ready before window load: err = %v", err)
	}
	stop()

	close(window.loaded)
	if _, err := ui.Wait(ctx, ipc.MainReady); err != nil {
		t.Fatalf("Wait(main_ready) error = %v", err)
	}

	window.close()
	if err := waitErr(t, errc); err != nil {
		t.Errorf("Run() error = %v, want nil on normal close", err)
	}
}

func TestHost_ClosedPrematurely(t *testing.T) {
	window := newFakeWindow()
	close(window.loaded)
	_, errc, _ := startHost(t, window, Options{})

	window.close()
	if err := waitErr(t, errc); !errors.Is(err, ErrClosedPrematurely) {
		t.Errorf("Run() error = %v, want ErrClosedPrematurely", err)
	}
}

func TestHost_LoadFailure(t *testing.T) {
	window := newFakeWindow()
	window.loadErr = errors.New("broken markup")
	close(window.loaded)
	_, errc, _ := startHost(t, window, Options{})

	err := waitErr(t, errc)
	if err == nil || errors.Is(err, ErrClosedPrematurely) {
		t.Errorf("Run() error = %v, want load failure", err)
	}
}

func TestHost_RestartRelaunchesAfterWindowCloses(t *testing.T) {
	window := newFakeWindow()
	close(window.loaded)
	r := &relaunches{}
	ui, errc, h := startHost(t, window, Options{
		Executable: "/opt/ngt/ngt-tracker",
		Relaunch:   r.relaunch,
		Install:    r.install,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := ui.Send(ipc.RendererReady, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ui.Wait(ctx, ipc.MainReady); err != nil {
		t.Fatal(err)
	}

	if err := ui.Send(ipc.Restart, nil); err != nil {
		t.Fatal(err)
	}
	if err := waitErr(t, errc); err != nil {
		t.Errorf("Run() error = %v", err)
	}

	if window.quitCount() != 1 {
		t.Errorf("quits = %d, want 1", window.quitCount())
	}
	if n, _ := r.counts(); n != 0 {
		t.Fatalf("relaunches = %d before the window loop returned, want 0", n)
	}
	if !h.RestartRequested() {
		t.Fatal("RestartRequested() = false after restart signal")
	}

	if err := h.Relaunch(); err != nil {
		t.Fatalf("Relaunch() error = %v", err)
	}
	n, installs := r.counts()
	if n != 1 || len(installs) != 0 {
		t.Errorf("relaunches = %d, installs = %v", n, installs)
	}
}

func TestHost_RelaunchWithoutRestartRequest(t *testing.T) {
	window := newFakeWindow()
	r := &relaunches{}
	h := New(nil, window, Options{Executable: "/opt/ngt/ngt-tracker", Relaunch: r.relaunch})

	if err := h.Relaunch(); err != nil {
		t.Fatalf("Relaunch() error = %v", err)
	}
	if n, _ := r.counts(); n != 0 {
		t.Errorf("relaunches = %d, want 0 on a normal close", n)
	}
}

func TestHost_RelaunchError(t *testing.T) {
	window := newFakeWindow()
	h := New(nil, window, Options{
		Executable: "/opt/ngt/ngt-tracker",
		Relaunch:   func(string, []string) error { return errors.New("exec format error") },
	})
	h.requestRestart()

	if err := h.Relaunch(); err == nil {
		t.Error("Relaunch() should report a failed exec")
	}
	if window.quitCount() != 1 {
		t.Errorf("quits = %d, want 1", window.quitCount())
	}
}

func TestHost_UpdateRelayAndInstall(t *testing.T) {
	window := newFakeWindow()
	close(window.loaded)
	r := &relaunches{}
	ui, errc, h := startHost(t, window, Options{
		Updater:    &fakeUpdater{rel: &update.Release{Version: "v2.0.0"}},
		Executable: "/opt/ngt/ngt-tracker",
		Relaunch:   r.relaunch,
		Install:    r.install,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := ui.Send(ipc.RendererReady, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ui.Wait(ctx, ipc.MainReady); err != nil {
		t.Fatal(err)
	}

	msg, err := ui.Wait(ctx, ipc.UpdateAvailable)
	if err != nil {
		t.Fatalf("Wait(update_available) error = %v", err)
	}
	var rel update.Release
	if err := msg.Decode(&rel); err != nil || rel.Version != "v2.0.0" {
		t.Errorf("update_available payload = %+v, %v", rel, err)
	}
	if _, err := ui.Wait(ctx, ipc.UpdateDownloaded); err != nil {
		t.Fatalf("Wait(update_downloaded) error = %v", err)
	}

	if err := ui.Send(ipc.RestartApp, nil); err != nil {
		t.Fatal(err)
	}
	if err := waitErr(t, errc); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if err := h.Relaunch(); err != nil {
		t.Fatalf("Relaunch() error = %v", err)
	}

	n, installs := r.counts()
	if n != 1 {
		t.Errorf("relaunches = %d, want 1", n)
	}
	want := [2]string{"/tmp/ngt-tracker-new", "/opt/ngt/ngt-tracker"}
	if len(installs) != 1 || installs[0] != want {
		t.Errorf("installs = %v, want %v", installs, want)
	}
}
