package account

import (
	"context"
	"errors"
	"time"

	"github.com/ngtracker/ngt-desktop/api"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
	"github.com/ngtracker/ngt-desktop/session"
)

// View is what the controller drives on screen.
type View interface {
	ProfileView
	ShowLoading()
	ShowLoginForm()
	ShowRegisterForm()
	ShowDashboard()
	SetLoginBusy(busy bool)
	SetRegisterBusy(busy bool)
	SetLoginError(message string)
	SetRegisterError(message string)
	FillLogin(form LoginForm)
}

// SessionSaver persists the session config.
type SessionSaver interface {
	Save(session *config.Session) error
}

// Hooks are side effects the controller triggers at state transitions.
type Hooks struct {
	// LoggedIn runs once the dashboard is shown.
	LoggedIn func()
	// LoggingOut runs before the session is cleared.
	LoggingOut func()
	// Restart asks the host to relaunch the process.
	Restart func() error
}

// Controller implements the account flows. Every method must be called
// from a loop task.
type Controller struct {
	ctx      context.Context
	loop     *session.Loop
	state    *session.State
	backend  Backend
	sessions SessionSaver
	syncer   *Syncer
	view     View
	hooks    Hooks
	status   Status
	now      func() time.Time
}

// NewController creates a controller in the logged-out state.
func NewController(ctx context.Context, loop *session.Loop, state *session.State,
	backend Backend, sessions SessionSaver, syncer *Syncer, view View, hooks Hooks) *Controller {
	return &Controller{
		ctx:      ctx,
		loop:     loop,
		state:    state,
		backend:  backend,
		sessions: sessions,
		syncer:   syncer,
		view:     view,
		hooks:    hooks,
		status:   StatusLoggedOut,
		now:      time.Now,
	}
}

// Status returns the current authentication state.
func (c *Controller) Status() Status {
	return c.status
}

// Start either re-authenticates silently from the remembered session or
// shows the login form.
func (c *Controller) Start() {
	if !c.state.Session.RememberMe {
		c.view.ShowLoginForm()
		return
	}

	if tokenExpired(c.state.Token(), c.now()) {
		common.LogInfo("Stored session token expired, skipping silent login")
		c.view.ShowLoginForm()
		return
	}

	common.LogInfo("Attempting silent login")
	c.status = StatusAuthenticating
	c.view.ShowLoading()
	c.syncer.Sync(c.profileFetched)
}

// Login validates form and authenticates against the backend.
func (c *Controller) Login(form LoginForm) {
	c.view.SetLoginError("")
	if err := form.Validate(); err != nil {
		c.view.SetLoginError(common.UserMessage(err))
		return
	}

	c.status = StatusAuthenticating
	c.view.SetLoginBusy(true)

	creds := api.Credentials{
		Login:      form.Identifier,
		Password:   form.Password,
		RememberMe: form.RememberMe,
	}
	c.loop.Go(func() func() {
		token, err := c.backend.Login(c.ctx, creds)
		return func() { c.loginFinished(form, token, err) }
	})
}

func (c *Controller) loginFinished(form LoginForm, token string, err error) {
	if err != nil {
		common.LogWarn("Login failed: %v", err)
		c.status = StatusLoggedOut
		c.view.SetLoginBusy(false)
		c.view.SetLoginError(common.UserMessage(err))
		return
	}

	c.state.Session.RememberMe = form.RememberMe
	c.state.Session.Token = token
	if err := c.sessions.Save(c.state.Session); err != nil {
		common.LogError("Failed to save config: %v", err)
	}

	c.syncer.Sync(c.profileFetched)
}

// profileFetched completes both the post-login and the silent login paths.
func (c *Controller) profileFetched(_ *common.UserProfile, err error) {
	if err != nil {
		common.LogWarn("Could not load profile: %v", err)
		c.status = StatusLoggedOut
		c.state.LoggedIn = false
		c.view.SetLoginBusy(false)
		c.view.ShowLoginForm()

		var classified *common.Error
		if errors.As(err, &classified) && classified.Kind != common.KindServerBusiness {
			c.view.SetLoginError(common.UserMessage(err))
		}
		return
	}

	c.status = StatusLoggedIn
	c.state.LoggedIn = true
	c.view.SetLoginBusy(false)
	c.view.ShowDashboard()
	common.LogInfo("Logged in as %s", c.state.Profile.Username)

	if c.hooks.LoggedIn != nil {
		c.hooks.LoggedIn()
	}
}

// Register validates form, creates the account and logs in with it.
func (c *Controller) Register(form RegisterForm) {
	c.view.SetRegisterError("")
	if err := form.Validate(); err != nil {
		c.view.SetRegisterError(common.UserMessage(err))
		return
	}

	c.view.SetRegisterBusy(true)

	reg := api.Registration{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	}
	c.loop.Go(func() func() {
		err := c.backend.Register(c.ctx, reg)
		return func() { c.registerFinished(form, err) }
	})
}

func (c *Controller) registerFinished(form RegisterForm, err error) {
	c.view.SetRegisterBusy(false)
	if err != nil {
		common.LogWarn("Registration failed: %v", err)
		c.view.SetRegisterError(common.UserMessage(err))
		return
	}

	common.LogInfo("Registered account %s", form.Username)
	login := LoginForm{
		Identifier: form.Email,
		Password:   form.Password,
		RememberMe: true,
	}
	c.view.FillLogin(login)
	c.view.ShowLoginForm()
	c.Login(login)
}

// ShowRegister switches to the registration form.
func (c *Controller) ShowRegister() {
	c.view.ShowRegisterForm()
}

// ShowLogin switches to the login form.
func (c *Controller) ShowLogin() {
	c.view.ShowLoginForm()
}

// Logout stops telemetry, forgets the remembered session and asks the host
// to relaunch.
func (c *Controller) Logout() {
	if c.hooks.LoggingOut != nil {
		c.hooks.LoggingOut()
	}

	c.state.Session.RememberMe = false
	c.state.LoggedIn = false
	c.status = StatusLoggedOut
	if err := c.sessions.Save(c.state.Session); err != nil {
		common.LogError("Failed to save config: %v", err)
	}
	common.LogInfo("Logged out")

	if c.hooks.Restart != nil {
		if err := c.hooks.Restart(); err != nil {
			common.LogError("Failed to request restart: %v", err)
		}
	}
}
