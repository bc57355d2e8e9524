package account

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ngtracker/ngt-desktop/api"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/session"
)

type fakeView struct {
	calls         []string
	loginBusy     bool
	registerBusy  bool
	loginError    string
	registerError string
	filled        LoginForm
	profile       *common.UserProfile
}

func (v *fakeView) ShowLoading()      { v.calls = append(v.calls, "loading") }
func (v *fakeView) ShowLoginForm()    { v.calls = append(v.calls, "login") }
func (v *fakeView) ShowRegisterForm() { v.calls = append(v.calls, "register") }
func (v *fakeView) ShowDashboard()    { v.calls = append(v.calls, "dashboard") }

func (v *fakeView) SetLoginBusy(busy bool) {
	if busy {
		v.calls = append(v.calls, "login-busy")
	}
	v.loginBusy = busy
}

func (v *fakeView) SetRegisterBusy(busy bool)       { v.registerBusy = busy }
func (v *fakeView) SetLoginError(message string)    { v.loginError = message }
func (v *fakeView) SetRegisterError(message string) { v.registerError = message }
func (v *fakeView) FillLogin(form LoginForm)        { v.filled = form }

func (v *fakeView) SetProfile(profile *common.UserProfile) { v.profile = profile }

func (v *fakeView) last() string {
	if len(v.calls) == 0 {
		return ""
	}
	return v.calls[len(v.calls)-1]
}

// backend is a fake REST server counting calls per route.
type backend struct {
	server   *httptest.Server
	logins   atomic.Int32
	register atomic.Int32
	selfs    atomic.Int32
	lastAuth atomic.Value
}

func newBackend(t *testing.T) *backend {
	b := &backend{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			b.logins.Add(1)
			var creds api.Credentials
			json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password == "hunter2" {
				w.Write([]byte(`{"success":true,"data":"tok123"}`))
				return
			}
			w.Write([]byte(`{"success":false,"message":"Wrong password"}`))
		case "/api/auth/register":
			b.register.Add(1)
			var reg api.Registration
			json.NewDecoder(r.Body).Decode(&reg)
			if reg.Username == "taken" {
				w.Write([]byte(`{"success":false,"message":"Username already in use"}`))
				return
			}
			w.Write([]byte(`{"success":true,"message":"Registered"}`))
		case "/api/users/self":
			b.selfs.Add(1)
			b.lastAuth.Store(r.Header.Get("Authorization"))
			if r.Header.Get("Authorization") != "Bearer tok123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"username":"alice","email":"alice@example.com","jobsCompleted":4}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

type harness struct {
	loop       *session.Loop
	state      *session.State
	view       *fakeView
	ctrl       *Controller
	syncer     *Syncer
	sessions   *config.SessionStore
	dir        string
	loggedIn   int
	loggingOut int
	restarts   int
}

func newHarness(t *testing.T, baseURL string) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{
		loop:  session.NewLoop(),
		state: session.NewState(),
		view:  &fakeView{},
		dir:   t.TempDir(),
	}
	go h.loop.Run(ctx)

	client := api.NewClient(baseURL)
	h.sessions = config.NewSessionStore(h.dir, nil)
	h.syncer = NewSyncer(ctx, h.loop, h.state, client, config.NewProfileStore(h.dir), h.view)
	h.ctrl = NewController(ctx, h.loop, h.state, client, h.sessions, h.syncer, h.view, Hooks{
		LoggedIn:   func() { h.loggedIn++ },
		LoggingOut: func() { h.loggingOut++ },
		Restart: func() error {
			h.restarts++
			return nil
		},
	})
	return h
}

// do runs fn on the loop and waits for every follow-up to settle.
func (h *harness) do(fn func()) {
	h.loop.Post(fn)
	h.loop.Wait()
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusLoggedOut, "Logged out"},
		{StatusAuthenticating, "Authenticating..."},
		{StatusLoggedIn, "Logged in"},
		{Status(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("Status.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLogin_ValidationSendsNoRequest(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(func() { h.ctrl.Login(LoginForm{}) })

	if h.view.loginError != "Missing email/username\nMissing password" {
		t.Errorf("login error = %q", h.view.loginError)
	}
	if h.view.loginBusy {
		t.Error("login button should stay enabled")
	}
	if b.logins.Load() != 0 {
		t.Errorf("login requests = %d, want 0", b.logins.Load())
	}

	h.do(func() { h.ctrl.Login(LoginForm{Identifier: "alice"}) })
	if h.view.loginError != "Missing password" {
		t.Errorf("login error = %q", h.view.loginError)
	}
}

func TestLogin_Success(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(func() {
		h.ctrl.Login(LoginForm{Identifier: "alice", Password: "hunter2", RememberMe: true})
	})

	data, err := os.ReadFile(h.sessions.Path())
	if err != nil {
		t.Fatal(err)
	}
	var saved map[string]interface{}
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved["rememberMe"] != true || saved["token"] != "tok123" {
		t.Errorf("config.json = %s", data)
	}

	if b.selfs.Load() != 1 {
		t.Errorf("profile requests = %d, want exactly 1", b.selfs.Load())
	}
	if auth, _ := b.lastAuth.Load().(string); auth != "Bearer tok123" {
		t.Errorf("Authorization = %q", auth)
	}

	if h.ctrl.Status() != StatusLoggedIn || !h.state.LoggedIn {
		t.Errorf("status = %v, loggedIn = %v", h.ctrl.Status(), h.state.LoggedIn)
	}
	if h.view.last() != "dashboard" || h.view.loginBusy {
		t.Errorf("view calls = %v, busy = %v", h.view.calls, h.view.loginBusy)
	}
	if h.view.profile == nil || h.view.profile.Username != "alice" {
		t.Errorf("displayed profile = %+v", h.view.profile)
	}
	if h.loggedIn != 1 {
		t.Errorf("LoggedIn hook ran %d times", h.loggedIn)
	}

	cached, err := config.NewProfileStore(h.dir).Load()
	if err != nil || cached == nil || cached.Email != "alice@example.com" {
		t.Errorf("userData.json = %+v, %v", cached, err)
	}
}

func TestLogin_BusinessFailure(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(func() { h.ctrl.Login(LoginForm{Identifier: "alice", Password: "nope"}) })

	if h.view.loginError != "Wrong password" {
		t.Errorf("login error = %q, want server message verbatim", h.view.loginError)
	}
	if h.view.loginBusy {
		t.Error("login button should be re-enabled")
	}
	if h.ctrl.Status() != StatusLoggedOut {
		t.Errorf("status = %v", h.ctrl.Status())
	}
	if b.selfs.Load() != 0 {
		t.Error("no profile fetch should follow a failed login")
	}
}

func TestLogin_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	h := newHarness(t, "http://"+addr)
	h.do(func() { h.ctrl.Login(LoginForm{Identifier: "alice", Password: "hunter2"}) })

	if h.view.loginError != common.MsgConnectionRefused {
		t.Errorf("login error = %q", h.view.loginError)
	}
	if h.view.loginBusy {
		t.Error("login button should be re-enabled")
	}
}

func TestRegister_PasswordMismatchSendsNoRequest(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(func() {
		h.ctrl.Register(RegisterForm{
			Username:        "bob",
			Email:           "bob@example.com",
			Password:        "a",
			ConfirmPassword: "b",
		})
	})

	if h.view.registerError != common.MsgPasswordMismatch {
		t.Errorf("register error = %q", h.view.registerError)
	}
	if b.register.Load() != 0 {
		t.Error("no request should be sent")
	}
}

func TestRegister_AllFieldsMissing(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")

	h.do(func() { h.ctrl.Register(RegisterForm{ConfirmPassword: "x"}) })

	want := strings.Join([]string{
		common.MsgMissingUsername,
		common.MsgMissingEmail,
		common.MsgMissingPassword,
		common.MsgPasswordMismatch,
	}, "\n")
	if h.view.registerError != want {
		t.Errorf("register error = %q, want %q", h.view.registerError, want)
	}
}

func TestRegister_SuccessLogsIn(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(func() {
		h.ctrl.Register(RegisterForm{
			Username:        "alice",
			Email:           "alice@example.com",
			Password:        "hunter2",
			ConfirmPassword: "hunter2",
		})
	})

	want := LoginForm{Identifier: "alice@example.com", Password: "hunter2", RememberMe: true}
	if h.view.filled != want {
		t.Errorf("filled login = %+v, want %+v", h.view.filled, want)
	}
	if b.logins.Load() != 1 {
		t.Errorf("login requests = %d, want 1", b.logins.Load())
	}
	if h.ctrl.Status() != StatusLoggedIn || h.view.last() != "dashboard" {
		t.Errorf("status = %v, calls = %v", h.ctrl.Status(), h.view.calls)
	}
}

func TestRegister_ServerFailure(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(func() {
		h.ctrl.Register(RegisterForm{
			Username:        "taken",
			Email:           "t@example.com",
			Password:        "pw",
			ConfirmPassword: "pw",
		})
	})

	if h.view.registerError != "Username already in use" {
		t.Errorf("register error = %q", h.view.registerError)
	}
	if h.view.registerBusy {
		t.Error("register button should be re-enabled")
	}
	if b.logins.Load() != 0 {
		t.Error("failed registration must not log in")
	}
}

func TestStart_WithoutRememberMe(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(h.ctrl.Start)

	if h.view.last() != "login" {
		t.Errorf("view calls = %v", h.view.calls)
	}
	if b.selfs.Load() != 0 {
		t.Error("no profile fetch without remember-me")
	}
}

func TestStart_SilentLogin(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)
	h.state.Session = &config.Session{RememberMe: true, Token: "tok123"}

	h.do(h.ctrl.Start)

	if h.view.calls[0] != "loading" || h.view.last() != "dashboard" {
		t.Errorf("view calls = %v", h.view.calls)
	}
	if !h.state.LoggedIn || h.loggedIn != 1 {
		t.Errorf("loggedIn = %v, hook = %d", h.state.LoggedIn, h.loggedIn)
	}
}

func TestStart_SilentLoginRejected(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)
	h.state.Session = &config.Session{RememberMe: true, Token: "revoked"}

	h.do(h.ctrl.Start)

	if h.view.last() != "login" {
		t.Errorf("view calls = %v", h.view.calls)
	}
	if h.state.LoggedIn || h.loggedIn != 0 {
		t.Error("rejected token must not log in")
	}
	if h.view.loginError != "" {
		t.Errorf("login error = %q, want none for a rejected token", h.view.loginError)
	}
}

func TestStart_ExpiredTokenSkipsRequest(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	h.state.Session = &config.Session{RememberMe: true, Token: token}

	h.do(h.ctrl.Start)

	if b.selfs.Load() != 0 {
		t.Error("expired token should not be sent")
	}
	if h.view.last() != "login" {
		t.Errorf("view calls = %v", h.view.calls)
	}
}

func TestLogout(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)

	h.do(func() {
		h.ctrl.Login(LoginForm{Identifier: "alice", Password: "hunter2", RememberMe: true})
	})
	h.do(h.ctrl.Logout)

	if h.loggingOut != 1 || h.restarts != 1 {
		t.Errorf("hooks: loggingOut = %d, restarts = %d", h.loggingOut, h.restarts)
	}
	if h.state.LoggedIn || h.ctrl.Status() != StatusLoggedOut {
		t.Error("state should be logged out")
	}

	saved, err := h.sessions.Load()
	if err != nil {
		t.Fatal(err)
	}
	if saved.RememberMe {
		t.Error("remember-me should be cleared on disk")
	}
}

func TestSyncer_RefreshFailureKeepsProfile(t *testing.T) {
	b := newBackend(t)
	h := newHarness(t, b.server.URL)
	previous := &common.UserProfile{Username: "alice", JobsCompleted: 1}
	h.state.Profile = previous
	h.state.Session.Token = "revoked"

	h.do(h.syncer.Refresh)

	if h.state.Profile != previous {
		t.Error("a failed refresh must not replace the cached profile")
	}
	if b.selfs.Load() != 1 {
		t.Errorf("profile requests = %d", b.selfs.Load())
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	sign := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		if err != nil {
			t.Fatal(err)
		}
		return token
	}

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"opaque", "tok123", false},
		{"no exp", sign(jwt.MapClaims{"sub": "alice"}), false},
		{"future", sign(jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), false},
		{"past", sign(jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenExpired(tt.token, now); got != tt.want {
				t.Errorf("tokenExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
