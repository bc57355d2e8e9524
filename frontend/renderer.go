package frontend

import (
	"context"
	"fmt"

	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/api"
	"github.com/ngtracker/ngt-desktop/bridge"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/history"
	"github.com/ngtracker/ngt-desktop/ipc"
	"github.com/ngtracker/ngt-desktop/session"
	"github.com/ngtracker/ngt-desktop/telemetry"
	"github.com/ngtracker/ngt-desktop/update"
)

// Signals is the UI end of the ipc channel.
type Signals interface {
	Send(sig ipc.Signal, payload interface{}) error
	Wait(ctx context.Context, sig ipc.Signal) (ipc.Message, error)
	On(sig ipc.Signal, fn func(ipc.Message)) func()
}

// SessionStore loads and saves config.json.
type SessionStore interface {
	Load() (*config.Session, error)
	Save(session *config.Session) error
}

// ProfileStore loads and saves userData.json.
type ProfileStore interface {
	Load() (*common.UserProfile, error)
	Save(profile *common.UserProfile) error
}

// Deps are the collaborators of a Renderer. History and Notifier are
// optional.
type Deps struct {
	Signals  Signals
	View     View
	Sessions SessionStore
	Profiles ProfileStore
	Client   *api.Client
	Hub      *telemetry.Hub
	// NewFeed opens a telemetry feed each time watching starts.
	NewFeed  func() telemetry.Feed
	History  *history.Store
	Notifier common.Notifier
}

// Renderer is the UI context.
type Renderer struct {
	deps  Deps
	loop  *session.Loop
	state *session.State

	syncer     *account.Syncer
	controller *account.Controller
	bridge     *bridge.Bridge
}

// NewRenderer creates a UI context bound to ctx.
func NewRenderer(ctx context.Context, deps Deps) *Renderer {
	r := &Renderer{
		deps:  deps,
		loop:  session.NewLoop(),
		state: session.NewState(),
	}

	r.syncer = account.NewSyncer(ctx, r.loop, r.state, deps.Client, deps.Profiles, deps.View)
	r.controller = account.NewController(ctx, r.loop, r.state, deps.Client, deps.Sessions,
		r.syncer, deps.View, account.Hooks{
			LoggedIn:   r.loggedIn,
			LoggingOut: r.loggingOut,
			Restart:    func() error { return deps.Signals.Send(ipc.Restart, nil) },
		})

	bridgeDeps := bridge.Deps{
		Loop:      r.loop,
		State:     r.state,
		Hub:       deps.Hub,
		Submitter: deps.Client,
		Refresher: r.syncer,
		Indicator: deps.View,
		Notifier:  deps.Notifier,
	}
	if deps.History != nil {
		bridgeDeps.History = deps.History
	}
	r.bridge = bridge.New(ctx, bridgeDeps)
	r.bridge.Recorded = func(history.Entry) { r.showRecentJobs() }

	return r
}

// Loop returns the event loop that owns the UI state.
func (r *Renderer) Loop() *session.Loop {
	return r.loop
}

// Run performs the handshake, initializes the UI and then runs the event
// loop until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	select {
	case <-r.deps.View.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := r.deps.Signals.Send(ipc.RendererReady, nil); err != nil {
		return fmt.Errorf("announce renderer ready: %w", err)
	}
	common.LogDebug("Renderer ready, waiting for host")

	if _, err := r.deps.Signals.Wait(ctx, ipc.MainReady); err != nil {
		return fmt.Errorf("wait for host: %w", err)
	}
	common.LogDebug("Host ready")

	r.loop.Post(r.initialize)
	return r.loop.Run(ctx)
}

// initialize runs on the loop once both contexts are ready.
func (r *Renderer) initialize() {
	sess, err := r.deps.Sessions.Load()
	if err != nil {
		common.LogError("Failed to read config: %v", err)
		sess = &config.Session{}
	}
	r.state.Session = sess

	cached, err := r.deps.Profiles.Load()
	if err != nil {
		common.LogWarn("Failed to read userData: %v", err)
	}
	if cached != nil {
		r.state.Profile = cached
		r.deps.View.FillLogin(account.LoginForm{Identifier: cached.Email})
	}

	r.bridge.Subscribe()
	r.listenForUpdates()
	r.deps.View.Bind(r.actions())

	r.controller.Start()
}

func (r *Renderer) actions() Actions {
	post := r.loop.Post
	return Actions{
		Login: func(form account.LoginForm) {
			post(func() { r.controller.Login(form) })
		},
		Register: func(form account.RegisterForm) {
			post(func() { r.controller.Register(form) })
		},
		ShowRegister: func() { post(r.controller.ShowRegister) },
		ShowLogin:    func() { post(r.controller.ShowLogin) },
		Logout:       func() { post(r.controller.Logout) },
		InstallUpdate: func() {
			if err := r.deps.Signals.Send(ipc.RestartApp, nil); err != nil {
				common.LogError("Failed to request update install: %v", err)
			}
		},
	}
}

func (r *Renderer) listenForUpdates() {
	r.deps.Signals.On(ipc.UpdateAvailable, func(msg ipc.Message) {
		var release update.Release
		if err := msg.Decode(&release); err != nil {
			common.LogWarn("Malformed update notice: %v", err)
			return
		}
		r.loop.Post(func() { r.deps.View.ShowUpdateAvailable(release.Version) })
	})
	r.deps.Signals.On(ipc.UpdateDownloaded, func(msg ipc.Message) {
		var release update.Release
		if err := msg.Decode(&release); err != nil {
			common.LogWarn("Malformed update notice: %v", err)
			return
		}
		r.loop.Post(func() { r.deps.View.ShowUpdateDownloaded(release.Version) })
	})
}

func (r *Renderer) loggedIn() {
	if r.deps.NewFeed != nil {
		r.deps.Hub.Start(r.deps.NewFeed())
	}
	r.showRecentJobs()
}

func (r *Renderer) loggingOut() {
	r.bridge.Dispose()
	r.deps.Hub.Stop()
}

// showRecentJobs loads history off the loop and displays it.
func (r *Renderer) showRecentJobs() {
	store := r.deps.History
	if store == nil {
		return
	}
	r.loop.Go(func() func() {
		entries, err := store.Recent(context.Background(), common.HistoryDisplayLimit)
		if err != nil {
			common.LogWarn("Failed to load job history: %v", err)
			return nil
		}
		return func() { r.deps.View.SetRecentJobs(entries) }
	})
}
