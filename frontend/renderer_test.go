package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/api"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/history"
	"github.com/ngtracker/ngt-desktop/ipc"
	"github.com/ngtracker/ngt-desktop/telemetry"
	"github.com/ngtracker/ngt-desktop/update"
)

type fakeView struct {
	mu         sync.Mutex
	ready      chan struct{}
	actions    *Actions
	calls      []string
	filled     account.LoginForm
	profile    *common.UserProfile
	available  string
	downloaded string
	jobs       []history.Entry
	jobsShown  int
}

func newFakeView() *fakeView {
	return &fakeView{ready: make(chan struct{})}
}

func (v *fakeView) record(call string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, call)
}

func (v *fakeView) ShowLoading()      { v.record("loading") }
func (v *fakeView) ShowLoginForm()    { v.record("login") }
func (v *fakeView) ShowRegisterForm() { v.record("register") }
func (v *fakeView) ShowDashboard()    { v.record("dashboard") }

func (v *fakeView) SetLoginBusy(bool)          {}
func (v *fakeView) SetRegisterBusy(bool)       {}
func (v *fakeView) SetLoginError(string)       {}
func (v *fakeView) SetRegisterError(string)    {}
func (v *fakeView) SetTelemetryConnected(bool) {}

func (v *fakeView) FillLogin(form account.LoginForm) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filled = form
}

func (v *fakeView) SetProfile(profile *common.UserProfile) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile = profile
}

func (v *fakeView) Ready() <-chan struct{} { return v.ready }

func (v *fakeView) Bind(actions Actions) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.actions = &actions
}

func (v *fakeView) SetRecentJobs(entries []history.Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.jobs = entries
	v.jobsShown++
}

func (v *fakeView) ShowUpdateAvailable(version string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.available = version
}

func (v *fakeView) ShowUpdateDownloaded(version string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.downloaded = version
}

func (v *fakeView) bound() *Actions {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.actions
}

func (v *fakeView) last() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.calls) == 0 {
		return ""
	}
	return v.calls[len(v.calls)-1]
}

func (v *fakeView) snapshot(fn func(v *fakeView) bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(v)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// idleFeed never produces a frame.
type idleFeed struct{}

func (idleFeed) Next(ctx context.Context) (telemetry.Frame, error) {
	<-ctx.Done()
	return telemetry.Frame{}, ctx.Err()
}

func (idleFeed) Close() error { return nil }

type rendererHarness struct {
	host     *ipc.Channel
	view     *fakeView
	renderer *Renderer
	hub      *telemetry.Hub
	dir      string
	errc     chan error
	cancel   context.CancelFunc
}

func newRendererHarness(t *testing.T, baseURL string, store *history.Store, dir string) *rendererHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	host, ui := ipc.Pipe()
	h := &rendererHarness{
		host:   host,
		view:   newFakeView(),
		hub:    telemetry.NewHub(),
		dir:    dir,
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	h.renderer = NewRenderer(ctx, Deps{
		Signals:  ui,
		View:     h.view,
		Sessions: config.NewSessionStore(dir, nil),
		Profiles: config.NewProfileStore(dir),
		Client:   api.NewClient(baseURL),
		Hub:      h.hub,
		NewFeed:  func() telemetry.Feed { return idleFeed{} },
		History:  store,
	})

	go func() { h.errc <- h.renderer.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		h.hub.Stop()
		host.Close()
		ui.Close()
	})
	return h
}

// handshake completes the startup exchange from the host side.
func (h *rendererHarness) handshake(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	close(h.view.ready)
	if _, err := h.host.Wait(ctx, ipc.RendererReady); err != nil {
		t.Fatalf("Wait(renderer_ready) error = %v", err)
	}
	if h.view.bound() != nil {
		t.Fatal("view bound before main_ready")
	}
	if err := h.host.Send(ipc.MainReady, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRenderer_NoSignalBeforeViewReady(t *testing.T) {
	h := newRendererHarness(t, "http://127.0.0.1:1/", nil, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := h.host.Wait(ctx, ipc.RendererReady); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}

	h.cancel()
	select {
	case err := <-h.errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRenderer_HandshakeShowsLoginForm(t *testing.T) {
	dir := t.TempDir()
	cached := &common.UserProfile{Username: "alice", Email: "alice@example.com"}
	if err := config.NewProfileStore(dir).Save(cached); err != nil {
		t.Fatal(err)
	}

	h := newRendererHarness(t, "http://127.0.0.1:1/", nil, dir)
	h.handshake(t)

	eventually(t, "login form", func() bool {
		return h.view.last() == "login" && h.view.bound() != nil
	})
	if !h.view.snapshot(func(v *fakeView) bool { return v.filled.Identifier == "alice@example.com" }) {
		t.Error("login form should be prefilled with the cached email")
	}
}

func TestRenderer_RelaysUpdateSignals(t *testing.T) {
	h := newRendererHarness(t, "http://127.0.0.1:1/", nil, t.TempDir())
	h.handshake(t)
	eventually(t, "bind", func() bool { return h.view.bound() != nil })

	if err := h.host.Send(ipc.UpdateAvailable, update.Release{Version: "v2.0.0"}); err != nil {
		t.Fatal(err)
	}
	if err := h.host.Send(ipc.UpdateDownloaded, update.Release{Version: "v2.0.0", Path: "/tmp/x"}); err != nil {
		t.Fatal(err)
	}
	eventually(t, "update notices", func() bool {
		return h.view.snapshot(func(v *fakeView) bool {
			return v.available == "v2.0.0" && v.downloaded == "v2.0.0"
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	h.view.bound().InstallUpdate()
	if _, err := h.host.Wait(ctx, ipc.RestartApp); err != nil {
		t.Errorf("Wait(restart_app) error = %v", err)
	}
}

func TestRenderer_SilentLoginAndLogout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/self" || r.Header.Get("Authorization") != "Bearer tok123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"username":"alice","email":"alice@example.com","jobsCompleted":2}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	if err := config.NewSessionStore(dir, nil).Save(&config.Session{RememberMe: true, Token: "tok123"}); err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(filepath.Join(dir, common.HistoryFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	h := newRendererHarness(t, server.URL, store, dir)
	h.handshake(t)

	eventually(t, "dashboard", func() bool { return h.view.last() == "dashboard" })
	eventually(t, "recent jobs", func() bool {
		return h.view.snapshot(func(v *fakeView) bool { return v.jobsShown > 0 })
	})
	if !h.hub.IsRunning() {
		t.Error("telemetry watcher should run once logged in")
	}
	if !h.view.snapshot(func(v *fakeView) bool { return v.profile != nil && v.profile.Username == "alice" }) {
		t.Error("profile was not shown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	h.view.bound().Logout()
	if _, err := h.host.Wait(ctx, ipc.Restart); err != nil {
		t.Fatalf("Wait(restart) error = %v", err)
	}
	if h.hub.IsRunning() {
		t.Error("telemetry watcher should stop on logout")
	}

	data, err := os.ReadFile(filepath.Join(dir, common.SessionFileName))
	if err != nil {
		t.Fatal(err)
	}
	var saved config.Session
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.RememberMe || saved.Token != "tok123" {
		t.Errorf("saved session = %+v, want remember-me cleared and token kept", saved)
	}
}
