package ui

import (
	"fmt"

	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/ngtracker/ngt-desktop/account"
	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/frontend"
	"github.com/ngtracker/ngt-desktop/history"
)

// Stack page names.
const (
	pageLoading   = "loading"
	pageLogin     = "login"
	pageRegister  = "register"
	pageDashboard = "dashboard"
)

// MainWindow represents the main application window.
type MainWindow struct {
	app       *Application
	window    *gtk.ApplicationWindow
	headerBar *gtk.HeaderBar
	stack     *gtk.Stack

	login     *loginPage
	register  *registerPage
	dashboard *dashboardPage

	updateRevealer *gtk.Revealer
	updateLabel    *gtk.Label
	updateButton   *gtk.Button

	statusLabel    *gtk.Label
	telemetryIcon  *gtk.Image
	telemetryLabel *gtk.Label
}

// NewMainWindow creates a new main window.
func NewMainWindow(app *Application) *MainWindow {
	mw := &MainWindow{app: app}

	mw.window = gtk.NewApplicationWindow(app.app)
	mw.window.SetTitle(common.AppName)
	mw.window.SetDefaultSize(common.DefaultWindowWidth, common.DefaultWindowHeight)
	mw.window.SetSizeRequest(common.MinWindowWidth, common.MinWindowHeight)
	mw.window.SetIconName(common.ServiceName)

	// With the tray enabled, closing the window keeps the tracker running.
	mw.window.SetHideOnClose(app.settings.MinimizeToTray)

	mw.createLayout()
	return mw
}

// createLayout creates the window layout.
func (mw *MainWindow) createLayout() {
	mw.headerBar = gtk.NewHeaderBar()

	menuButton := gtk.NewMenuButton()
	menuButton.SetIconName("open-menu-symbolic")
	menuButton.SetTooltipText("Menu")
	menuButton.SetMenuModel(mw.createMenu())
	mw.headerBar.PackEnd(menuButton)

	mw.window.SetTitlebar(mw.headerBar)

	mainBox := gtk.NewBox(gtk.OrientationVertical, 0)
	mainBox.Append(mw.createUpdateBanner())

	mw.login = newLoginPage(mw)
	mw.register = newRegisterPage(mw)
	mw.dashboard = newDashboardPage(mw)

	spinner := gtk.NewSpinner()
	spinner.SetSizeRequest(48, 48)
	spinner.SetHAlign(gtk.AlignCenter)
	spinner.SetVAlign(gtk.AlignCenter)
	spinner.Start()

	mw.stack = gtk.NewStack()
	mw.stack.SetVExpand(true)
	mw.stack.SetTransitionType(gtk.StackTransitionTypeCrossfade)
	mw.stack.AddNamed(spinner, pageLoading)
	mw.stack.AddNamed(mw.login.box, pageLogin)
	mw.stack.AddNamed(mw.register.box, pageRegister)
	mw.stack.AddNamed(mw.dashboard.box, pageDashboard)
	mw.stack.SetVisibleChildName(pageLoading)
	mainBox.Append(mw.stack)

	mainBox.Append(mw.createStatusBar())

	mw.window.SetChild(mainBox)
	mw.setBound(false)
}

// createMenu creates the application menu.
func (mw *MainWindow) createMenu() *gio.Menu {
	menu := gio.NewMenu()

	settingsSection := gio.NewMenu()
	settingsSection.Append("Preferences", "app.preferences")
	menu.AppendSection("", &settingsSection.MenuModel)

	appSection := gio.NewMenu()
	appSection.Append("About", "app.about")
	appSection.Append("Quit", "app.quit")
	menu.AppendSection("", &appSection.MenuModel)

	mw.setupActions()
	return menu
}

// setupActions configures menu actions.
func (mw *MainWindow) setupActions() {
	app := mw.app.app

	preferencesAction := gio.NewSimpleAction("preferences", nil)
	preferencesAction.ConnectActivate(func(_ *glib.Variant) {
		NewPreferencesDialog(mw).Show()
	})
	app.AddAction(preferencesAction)
	app.SetAccelsForAction("app.preferences", []string{"<Control>comma"})

	aboutAction := gio.NewSimpleAction("about", nil)
	aboutAction.ConnectActivate(func(_ *glib.Variant) {
		mw.onAbout()
	})
	app.AddAction(aboutAction)

	quitAction := gio.NewSimpleAction("quit", nil)
	quitAction.ConnectActivate(func(_ *glib.Variant) {
		app.Quit()
	})
	app.AddAction(quitAction)
	app.SetAccelsForAction("app.quit", []string{"<Control>q"})
}

// createUpdateBanner creates the hidden bar announcing updates.
func (mw *MainWindow) createUpdateBanner() *gtk.Revealer {
	box := gtk.NewBox(gtk.OrientationHorizontal, 12)
	box.AddCSSClass("update-banner")

	mw.updateLabel = gtk.NewLabel("")
	mw.updateLabel.SetXAlign(0)
	mw.updateLabel.SetHExpand(true)
	box.Append(mw.updateLabel)

	mw.updateButton = gtk.NewButtonWithLabel("Restart and install")
	mw.updateButton.AddCSSClass("suggested-action")
	mw.updateButton.SetVisible(false)
	mw.updateButton.ConnectClicked(func() {
		if install := mw.app.boundActions().InstallUpdate; install != nil {
			mw.updateButton.SetSensitive(false)
			install()
		}
	})
	box.Append(mw.updateButton)

	mw.updateRevealer = gtk.NewRevealer()
	mw.updateRevealer.SetChild(box)
	mw.updateRevealer.SetRevealChild(false)
	return mw.updateRevealer
}

// createStatusBar creates the status bar.
func (mw *MainWindow) createStatusBar() *gtk.Box {
	statusBar := gtk.NewBox(gtk.OrientationHorizontal, 8)
	statusBar.AddCSSClass("status-bar")

	mw.statusLabel = gtk.NewLabel(fmt.Sprintf("%s %s", common.AppName, mw.app.version))
	mw.statusLabel.SetXAlign(0)
	mw.statusLabel.SetHExpand(true)
	statusBar.Append(mw.statusLabel)

	mw.telemetryIcon = gtk.NewImage()
	mw.telemetryIcon.SetPixelSize(16)
	statusBar.Append(mw.telemetryIcon)

	mw.telemetryLabel = gtk.NewLabel("")
	statusBar.Append(mw.telemetryLabel)

	mw.setTelemetryConnected(false)
	return statusBar
}

// Show displays the window.
func (mw *MainWindow) Show() {
	mw.window.Show()
}

// SetStatus updates the status text.
func (mw *MainWindow) SetStatus(text string) {
	mw.statusLabel.SetText(text)
}

func (mw *MainWindow) showPage(name string) {
	mw.stack.SetVisibleChildName(name)
}

// setBound enables the form controls once actions are connected.
func (mw *MainWindow) setBound(bound bool) {
	mw.login.submit.SetSensitive(bound)
	mw.login.toRegister.SetSensitive(bound)
	mw.register.submit.SetSensitive(bound)
	mw.register.toLogin.SetSensitive(bound)
	mw.dashboard.logout.SetSensitive(bound)
}

func (mw *MainWindow) setTelemetryConnected(connected bool) {
	mw.telemetryIcon.RemoveCSSClass("telemetry-connected")
	mw.telemetryIcon.RemoveCSSClass("telemetry-disconnected")
	if connected {
		mw.telemetryIcon.SetFromIconName("emblem-ok-symbolic")
		mw.telemetryIcon.AddCSSClass("telemetry-connected")
		mw.telemetryLabel.SetText("Game connected")
	} else {
		mw.telemetryIcon.SetFromIconName("network-offline-symbolic")
		mw.telemetryIcon.AddCSSClass("telemetry-disconnected")
		mw.telemetryLabel.SetText("Game not running")
	}
}

func (mw *MainWindow) showUpdate(version string, downloaded bool) {
	if downloaded {
		mw.updateLabel.SetText(fmt.Sprintf("Version %s is ready to install.", version))
	} else {
		mw.updateLabel.SetText(fmt.Sprintf("Downloading version %s…", version))
	}
	mw.updateButton.SetVisible(downloaded)
	mw.updateButton.SetSensitive(downloaded)
	mw.updateRevealer.SetRevealChild(true)
}

func (mw *MainWindow) onAbout() {
	about := gtk.NewAboutDialog()
	about.SetTransientFor(&mw.window.Window)
	about.SetModal(true)

	about.SetProgramName(common.AppName)
	about.SetLogoIconName(common.ServiceName)
	about.SetVersion(mw.app.version)
	about.SetComments("Tracks your truck simulator jobs and keeps your\nNext Generation Tracker profile up to date.")
	about.SetWebsite("https://github.com/" + common.DefaultReleaseRepo)
	about.SetWebsiteLabel("GitHub Repository")

	about.Show()
}

// showError displays an error dialog.
func (mw *MainWindow) showError(title, message string) {
	window := gtk.NewWindow()
	window.SetTitle(title)
	window.SetTransientFor(&mw.window.Window)
	window.SetModal(true)
	window.SetDefaultSize(350, 150)
	window.SetResizable(false)

	mainBox := newPaddedBox(gtk.OrientationVertical, 12, 24)
	mainBox.SetHAlign(gtk.AlignCenter)

	icon := gtk.NewImage()
	icon.SetFromIconName("dialog-error-symbolic")
	icon.SetPixelSize(48)
	mainBox.Append(icon)

	titleLabel := gtk.NewLabel(title)
	titleLabel.AddCSSClass("heading")
	mainBox.Append(titleLabel)

	msgLabel := gtk.NewLabel(message)
	msgLabel.SetWrap(true)
	msgLabel.SetMaxWidthChars(40)
	mainBox.Append(msgLabel)

	okBtn := gtk.NewButtonWithLabel("OK")
	okBtn.SetHAlign(gtk.AlignCenter)
	okBtn.SetMarginTop(12)
	okBtn.ConnectClicked(func() {
		window.Close()
	})
	mainBox.Append(okBtn)

	window.SetChild(mainBox)
	window.Show()
}

// Pages

type loginPage struct {
	box        *gtk.Box
	identifier *gtk.Entry
	password   *gtk.PasswordEntry
	remember   *gtk.CheckButton
	errorLabel *gtk.Label
	submit     *gtk.Button
	toRegister *gtk.Button
}

func newLoginPage(mw *MainWindow) *loginPage {
	p := &loginPage{}
	p.box = newFormCard("Log in")

	p.identifier = gtk.NewEntry()
	p.identifier.SetPlaceholderText("Email or username")
	p.box.Append(p.identifier)

	p.password = gtk.NewPasswordEntry()
	p.password.SetShowPeekIcon(true)
	p.box.Append(p.password)

	p.remember = gtk.NewCheckButtonWithLabel("Remember me")
	p.box.Append(p.remember)

	p.errorLabel = newErrorLabel()
	p.box.Append(p.errorLabel)

	p.submit = gtk.NewButtonWithLabel("Log in")
	p.submit.AddCSSClass("suggested-action")
	p.box.Append(p.submit)

	p.toRegister = gtk.NewButtonWithLabel("Create an account")
	p.toRegister.AddCSSClass("flat")
	p.box.Append(p.toRegister)

	submit := func() {
		if login := mw.app.boundActions().Login; login != nil {
			login(p.form())
		}
	}
	p.submit.ConnectClicked(submit)
	p.password.ConnectActivate(submit)
	p.toRegister.ConnectClicked(func() {
		if show := mw.app.boundActions().ShowRegister; show != nil {
			show()
		}
	})

	return p
}

func (p *loginPage) form() account.LoginForm {
	return account.LoginForm{
		Identifier: p.identifier.Text(),
		Password:   p.password.Text(),
		RememberMe: p.remember.Active(),
	}
}

func (p *loginPage) fill(form account.LoginForm) {
	p.identifier.SetText(form.Identifier)
	p.password.SetText(form.Password)
	p.remember.SetActive(form.RememberMe)
}

func (p *loginPage) setBusy(busy bool) {
	p.submit.SetSensitive(!busy)
	if busy {
		p.submit.SetLabel("Logging in…")
	} else {
		p.submit.SetLabel("Log in")
	}
}

type registerPage struct {
	box        *gtk.Box
	username   *gtk.Entry
	email      *gtk.Entry
	password   *gtk.PasswordEntry
	confirm    *gtk.PasswordEntry
	errorLabel *gtk.Label
	submit     *gtk.Button
	toLogin    *gtk.Button
}

func newRegisterPage(mw *MainWindow) *registerPage {
	p := &registerPage{}
	p.box = newFormCard("Create an account")

	p.username = gtk.NewEntry()
	p.username.SetPlaceholderText("Username")
	p.box.Append(p.username)

	p.email = gtk.NewEntry()
	p.email.SetPlaceholderText("Email")
	p.box.Append(p.email)

	p.password = gtk.NewPasswordEntry()
	p.password.SetShowPeekIcon(true)
	p.box.Append(p.password)

	p.confirm = gtk.NewPasswordEntry()
	p.box.Append(p.confirm)

	p.errorLabel = newErrorLabel()
	p.box.Append(p.errorLabel)

	p.submit = gtk.NewButtonWithLabel("Register")
	p.submit.AddCSSClass("suggested-action")
	p.box.Append(p.submit)

	p.toLogin = gtk.NewButtonWithLabel("Back to log in")
	p.toLogin.AddCSSClass("flat")
	p.box.Append(p.toLogin)

	submit := func() {
		if register := mw.app.boundActions().Register; register != nil {
			register(p.form())
		}
	}
	p.submit.ConnectClicked(submit)
	p.confirm.ConnectActivate(submit)
	p.toLogin.ConnectClicked(func() {
		if show := mw.app.boundActions().ShowLogin; show != nil {
			show()
		}
	})

	return p
}

func (p *registerPage) form() account.RegisterForm {
	return account.RegisterForm{
		Username:        p.username.Text(),
		Email:           p.email.Text(),
		Password:        p.password.Text(),
		ConfirmPassword: p.confirm.Text(),
	}
}

func (p *registerPage) setBusy(busy bool) {
	p.submit.SetSensitive(!busy)
	if busy {
		p.submit.SetLabel("Registering…")
	} else {
		p.submit.SetLabel("Register")
	}
}

type dashboardPage struct {
	box      *gtk.Box
	greeting *gtk.Label
	stats    *gtk.Grid
	jobs     *gtk.ListBox
	logout   *gtk.Button
}

func newDashboardPage(mw *MainWindow) *dashboardPage {
	p := &dashboardPage{}
	p.box = newPaddedBox(gtk.OrientationVertical, 16, 24)

	header := gtk.NewBox(gtk.OrientationHorizontal, 12)
	p.greeting = gtk.NewLabel("")
	p.greeting.SetXAlign(0)
	p.greeting.SetHExpand(true)
	p.greeting.AddCSSClass("title-2")
	header.Append(p.greeting)

	p.logout = gtk.NewButtonWithLabel("Log out")
	p.logout.ConnectClicked(func() {
		if logout := mw.app.boundActions().Logout; logout != nil {
			logout()
		}
	})
	header.Append(p.logout)
	p.box.Append(header)

	p.stats = gtk.NewGrid()
	p.stats.SetColumnSpacing(24)
	p.stats.SetRowSpacing(8)
	p.box.Append(p.stats)

	jobsTitle := gtk.NewLabel("Recent jobs")
	jobsTitle.SetXAlign(0)
	jobsTitle.AddCSSClass("heading")
	p.box.Append(jobsTitle)

	p.jobs = gtk.NewListBox()
	p.jobs.SetSelectionMode(gtk.SelectionNone)

	scrolled := gtk.NewScrolledWindow()
	scrolled.SetVExpand(true)
	scrolled.SetPolicy(gtk.PolicyNever, gtk.PolicyAutomatic)
	scrolled.SetChild(p.jobs)
	p.box.Append(scrolled)

	p.setJobs(nil)
	return p
}

func (p *dashboardPage) setProfile(profile *common.UserProfile) {
	if profile == nil {
		return
	}
	p.greeting.SetText("Hello, " + profile.Username)

	for p.stats.FirstChild() != nil {
		p.stats.Remove(p.stats.FirstChild())
	}
	for i, stat := range frontend.ProfileStats(profile) {
		label := gtk.NewLabel(stat.Label)
		label.SetXAlign(0)
		label.AddCSSClass("stat-label")
		p.stats.Attach(label, 0, i, 1, 1)

		value := gtk.NewLabel(stat.Value)
		value.SetXAlign(1)
		value.AddCSSClass("stat-value")
		p.stats.Attach(value, 1, i, 1, 1)
	}
}

func (p *dashboardPage) setJobs(entries []history.Entry) {
	for p.jobs.FirstChild() != nil {
		p.jobs.Remove(p.jobs.FirstChild())
	}

	if len(entries) == 0 {
		empty := gtk.NewLabel("No jobs recorded yet. Start a delivery in game.")
		empty.AddCSSClass("dim-label")
		empty.SetMarginTop(12)
		p.jobs.Append(empty)
		return
	}

	for _, entry := range entries {
		label := gtk.NewLabel(frontend.EntryLine(entry))
		label.SetXAlign(0)
		label.AddCSSClass("job-row")
		if !entry.Submitted {
			label.AddCSSClass("job-failed")
			label.SetTooltipText(entry.Error)
		}
		p.jobs.Append(label)
	}
}

// Widgets

func newPaddedBox(orientation gtk.Orientation, spacing, margin int) *gtk.Box {
	box := gtk.NewBox(orientation, spacing)
	box.SetMarginTop(margin)
	box.SetMarginBottom(margin)
	box.SetMarginStart(margin)
	box.SetMarginEnd(margin)
	return box
}

func newFormCard(title string) *gtk.Box {
	box := newPaddedBox(gtk.OrientationVertical, 12, 32)
	box.SetHAlign(gtk.AlignCenter)
	box.SetVAlign(gtk.AlignCenter)
	box.SetSizeRequest(360, -1)
	box.AddCSSClass("form-card")

	heading := gtk.NewLabel(title)
	heading.AddCSSClass("title-2")
	box.Append(heading)
	return box
}

func newErrorLabel() *gtk.Label {
	label := gtk.NewLabel("")
	label.SetWrap(true)
	label.SetXAlign(0)
	label.AddCSSClass("form-error")
	label.SetVisible(false)
	return label
}

func setError(label *gtk.Label, message string) {
	label.SetText(message)
	label.SetVisible(message != "")
}
