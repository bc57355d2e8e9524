package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ngtracker/ngt-desktop/common"
)

func TestLoadSettings_CreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	settings, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.APIBaseURL != common.DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %v, want %v", settings.APIBaseURL, common.DefaultAPIBaseURL)
	}
	if settings.TelemetryFeed != common.FeedPoll {
		t.Errorf("TelemetryFeed = %v, want %v", settings.TelemetryFeed, common.FeedPoll)
	}
	if !settings.ShowNotifications {
		t.Error("ShowNotifications should be true by default")
	}
	if !common.FileExists(filepath.Join(dir, common.SettingsFileName)) {
		t.Error("LoadSettings should write the default file")
	}
}

func TestLoadSettings_RoundTripAndValidate(t *testing.T) {
	dir := t.TempDir()
	content := `api_base_url: http://localhost:3000
telemetry_feed: carrier-pigeon
telemetry_url: ws://127.0.0.1:9000/frames
poll_interval: 1s
show_notifications: false
secure_token_storage: true
check_updates: false
release_repo: someone/fork
minimize_to_tray: true
theme: neon
`
	if err := os.WriteFile(filepath.Join(dir, common.SettingsFileName), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.APIBaseURL != "http://localhost:3000/" {
		t.Errorf("APIBaseURL = %q, want a trailing slash", settings.APIBaseURL)
	}
	if settings.TelemetryFeed != common.FeedPoll {
		t.Errorf("unknown feed should fall back to poll, got %q", settings.TelemetryFeed)
	}
	if settings.Theme != common.ThemeAuto {
		t.Errorf("unknown theme should fall back to auto, got %q", settings.Theme)
	}
	if settings.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", settings.PollInterval)
	}
	if !settings.SecureTokenStorage || settings.CheckUpdates || !settings.MinimizeToTray {
		t.Errorf("boolean settings not decoded: %+v", settings)
	}
}

func TestLoadSettings_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, common.SettingsFileName), []byte("colour: red\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSettings(dir); err == nil {
		t.Error("LoadSettings should reject unknown fields")
	}
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NGT_API_URL", "http://127.0.0.1:8080")
	t.Setenv("NGT_TELEMETRY_FEED", "stream")

	settings, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.APIBaseURL != "http://127.0.0.1:8080/" {
		t.Errorf("APIBaseURL = %q", settings.APIBaseURL)
	}
	if settings.TelemetryFeed != common.FeedStream {
		t.Errorf("TelemetryFeed = %q, want stream", settings.TelemetryFeed)
	}

	data, err := os.ReadFile(filepath.Join(dir, common.SettingsFileName))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "8080") {
		t.Error("environment overrides must not be written back")
	}
}

func TestSettings_SaveKeepsEnvOverridesOffDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, common.SettingsFileName)
	if err := os.WriteFile(path, []byte("theme: light\ntelemetry_feed: poll\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NGT_THEME", "dark")
	t.Setenv("NGT_API_URL", "http://127.0.0.1:8080")
	t.Setenv("NGT_TELEMETRY_FEED", "stream")

	settings, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.Theme != common.ThemeDark {
		t.Fatalf("Theme = %q, want the env override", settings.Theme)
	}

	settings.ShowNotifications = false
	settings.TelemetryFeed = common.FeedPoll
	if err := settings.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"theme: light", "show_notifications: false", "telemetry_feed: poll", "herokuapp.com"} {
		if !strings.Contains(content, want) {
			t.Errorf("settings.yaml missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "8080") || strings.Contains(content, "dark") {
		t.Errorf("environment overrides leaked into settings.yaml:\n%s", content)
	}
	if settings.Theme != common.ThemeDark {
		t.Error("Save() must not change the effective settings")
	}
}

func TestSettings_SaveWithoutPath(t *testing.T) {
	if err := DefaultSettings().Save(); !errors.Is(err, common.ErrConfigSave) {
		t.Errorf("Save() error = %v, want ErrConfigSave", err)
	}
}
