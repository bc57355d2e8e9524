package ui

import (
	"strings"

	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/config"
)

var (
	feedChoices  = []choice{{common.FeedPoll, "Polling"}, {common.FeedStream, "WebSocket stream"}}
	themeChoices = []choice{{common.ThemeAuto, "System Default"}, {common.ThemeLight, "Light"}, {common.ThemeDark, "Dark"}}
)

// choice is one entry of a settings drop-down.
type choice struct {
	id    string
	label string
}

// settingRow is a titled control inside a preferences group.
type settingRow struct {
	title  string
	hint   string
	widget gtk.Widgetter
}

type settingGroup struct {
	title string
	icon  string
	rows  []settingRow
}

// PreferencesDialog edits settings.yaml. The telemetry source, API address
// and token storage apply on the next launch.
type PreferencesDialog struct {
	window   *gtk.Window
	owner    *MainWindow
	settings *config.Settings

	minimize      *gtk.Switch
	updates       *gtk.Switch
	notifications *gtk.Switch
	keyring       *gtk.Switch
	feed          *gtk.DropDown
	telemetryURL  *gtk.Entry
	apiURL        *gtk.Entry
	theme         *gtk.DropDown
}

// NewPreferencesDialog builds the dialog from the current settings.
func NewPreferencesDialog(owner *MainWindow) *PreferencesDialog {
	s := owner.app.settings
	pd := &PreferencesDialog{
		owner:         owner,
		settings:      s,
		minimize:      newSwitch(s.MinimizeToTray),
		updates:       newSwitch(s.CheckUpdates),
		notifications: newSwitch(s.ShowNotifications),
		keyring:       newSwitch(s.SecureTokenStorage),
		feed:          newChoiceDropDown(feedChoices, s.TelemetryFeed),
		telemetryURL:  newURLEntry(s.TelemetryURL, common.DefaultTelemetryURL),
		apiURL:        newURLEntry(s.APIBaseURL, common.DefaultAPIBaseURL),
		theme:         newChoiceDropDown(themeChoices, s.Theme),
	}

	groups := []settingGroup{
		{"General", "system-run-symbolic", []settingRow{
			{"Minimize to Tray", "Keep tracking jobs from the system tray when the window is closed", pd.minimize},
			{"Check for Updates", "Download new releases in the background at startup", pd.updates},
		}},
		{"Game Telemetry", "input-gaming-symbolic", []settingRow{
			{"Telemetry Source", "How the tracker reads job events from the game", pd.feed},
			{"Telemetry Server", "Address of the telemetry server plugin", pd.telemetryURL},
		}},
		{"Account", "dialog-password-symbolic", []settingRow{
			{"Tracker Server", "Address of the Next Generation Tracker service", pd.apiURL},
			{"Store Token in Keyring", "Keep your session token in the system keyring instead of config.json", pd.keyring},
		}},
		{"Notifications", "preferences-system-notifications-symbolic", []settingRow{
			{"Job Alerts", "Show a notification when a delivery is submitted or fails", pd.notifications},
		}},
		{"Appearance", "preferences-desktop-theme-symbolic", []settingRow{
			{"Theme", "Light, dark or follow the desktop", pd.theme},
		}},
	}

	pd.window = gtk.NewWindow()
	pd.window.SetTitle("Settings")
	pd.window.SetTransientFor(&owner.window.Window)
	pd.window.SetModal(true)
	pd.window.SetDefaultSize(520, 640)
	pd.window.SetResizable(false)

	content := newPaddedBox(gtk.OrientationVertical, 20, 24)
	for _, g := range groups {
		content.Append(newSettingGroup(g))
	}

	scroller := gtk.NewScrolledWindow()
	scroller.SetVExpand(true)
	scroller.SetPolicy(gtk.PolicyNever, gtk.PolicyAutomatic)
	scroller.SetChild(content)

	root := gtk.NewBox(gtk.OrientationVertical, 0)
	root.Append(scroller)
	root.Append(pd.actionBar())
	pd.window.SetChild(root)
	return pd
}

func (pd *PreferencesDialog) actionBar() *gtk.Box {
	bar := newPaddedBox(gtk.OrientationHorizontal, 12, 0)
	bar.SetHAlign(gtk.AlignEnd)
	bar.SetMarginTop(12)
	bar.SetMarginBottom(16)
	bar.SetMarginStart(24)
	bar.SetMarginEnd(24)

	cancel := gtk.NewButtonWithLabel("Cancel")
	cancel.ConnectClicked(pd.window.Close)
	bar.Append(cancel)

	save := gtk.NewButtonWithLabel("Save")
	save.AddCSSClass("suggested-action")
	save.ConnectClicked(func() {
		if pd.save() {
			pd.window.Close()
		}
	})
	bar.Append(save)
	return bar
}

// save writes the dialog state to settings.yaml and applies what can
// change at runtime. It reports whether the dialog may close.
func (pd *PreferencesDialog) save() bool {
	s := pd.settings
	s.MinimizeToTray = pd.minimize.Active()
	s.CheckUpdates = pd.updates.Active()
	s.ShowNotifications = pd.notifications.Active()
	s.SecureTokenStorage = pd.keyring.Active()
	s.TelemetryFeed = selectedChoice(feedChoices, pd.feed)
	s.Theme = selectedChoice(themeChoices, pd.theme)
	if u := strings.TrimSpace(pd.telemetryURL.Text()); u != "" {
		s.TelemetryURL = u
	}
	if u := strings.TrimSpace(pd.apiURL.Text()); u != "" {
		s.APIBaseURL = u
	}

	if err := s.Save(); err != nil {
		common.LogError("Failed to save settings: %v", err)
		pd.owner.showError("Could not save settings", err.Error())
		return false
	}

	app := pd.owner.app
	if app.notifier != nil {
		app.notifier.SetEnabled(s.ShowNotifications)
	}
	pd.owner.window.SetHideOnClose(s.MinimizeToTray)
	app.ApplyTheme(s.Theme)
	pd.owner.SetStatus("Settings saved")
	return true
}

// Show presents the dialog.
func (pd *PreferencesDialog) Show() {
	pd.window.Show()
}

func newSettingGroup(g settingGroup) *gtk.Box {
	group := gtk.NewBox(gtk.OrientationVertical, 8)

	header := gtk.NewBox(gtk.OrientationHorizontal, 8)
	icon := gtk.NewImageFromIconName(g.icon)
	icon.AddCSSClass("dim-label")
	header.Append(icon)
	title := gtk.NewLabel(g.title)
	title.SetXAlign(0)
	title.AddCSSClass("heading")
	header.Append(title)
	group.Append(header)

	card := gtk.NewBox(gtk.OrientationVertical, 0)
	card.AddCSSClass("card")
	card.AddCSSClass("preferences-card")
	for i, r := range g.rows {
		if i > 0 {
			card.Append(gtk.NewSeparator(gtk.OrientationHorizontal))
		}
		card.Append(newSettingRow(r))
	}
	group.Append(card)
	return group
}

func newSettingRow(r settingRow) *gtk.Box {
	row := newPaddedBox(gtk.OrientationHorizontal, 12, 14)

	text := gtk.NewBox(gtk.OrientationVertical, 4)
	text.SetHExpand(true)
	title := gtk.NewLabel(r.title)
	title.SetXAlign(0)
	title.AddCSSClass("settings-title")
	text.Append(title)
	hint := gtk.NewLabel(r.hint)
	hint.SetXAlign(0)
	hint.SetWrap(true)
	hint.AddCSSClass("dim-label")
	hint.AddCSSClass("caption")
	text.Append(hint)

	row.Append(text)
	row.Append(r.widget)
	return row
}

func newSwitch(active bool) *gtk.Switch {
	sw := gtk.NewSwitch()
	sw.SetActive(active)
	sw.SetVAlign(gtk.AlignCenter)
	return sw
}

func newURLEntry(value, placeholder string) *gtk.Entry {
	e := gtk.NewEntry()
	e.SetText(value)
	e.SetPlaceholderText(placeholder)
	e.SetInputPurpose(gtk.InputPurposeURL)
	e.SetWidthChars(24)
	e.SetVAlign(gtk.AlignCenter)
	return e
}

func newChoiceDropDown(choices []choice, selected string) *gtk.DropDown {
	labels := make([]string, len(choices))
	var index uint
	for i, c := range choices {
		labels[i] = c.label
		if c.id == selected {
			index = uint(i)
		}
	}
	dd := gtk.NewDropDown(gtk.NewStringList(labels), nil)
	dd.SetSelected(index)
	dd.SetVAlign(gtk.AlignCenter)
	return dd
}

func selectedChoice(choices []choice, dd *gtk.DropDown) string {
	if i := int(dd.Selected()); i < len(choices) {
		return choices[i].id
	}
	return choices[0].id
}
