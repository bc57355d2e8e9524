// Package config provides configuration management for the tracker client.
// It handles user settings (settings.yaml), the session file (config.json)
// and the cached account profile (userData.json).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ngtracker/ngt-desktop/common"
)

// Settings represents the user preferences.
// All settings are persisted to a YAML file in the data directory and may be
// overridden per run through NGT_* environment variables.
type Settings struct {
	// APIBaseURL is the backend root, with a trailing slash.
	APIBaseURL string `yaml:"api_base_url" env:"NGT_API_URL"`
	// TelemetryFeed selects how frames are read: "poll" or "stream".
	TelemetryFeed string `yaml:"telemetry_feed" env:"NGT_TELEMETRY_FEED"`
	// TelemetryURL is the local telemetry bridge endpoint.
	TelemetryURL string `yaml:"telemetry_url" env:"NGT_TELEMETRY_URL"`
	// PollInterval is how often the polling feed requests a frame.
	PollInterval time.Duration `yaml:"poll_interval" env:"NGT_POLL_INTERVAL"`
	// ShowNotifications enables desktop notifications for job and update events.
	ShowNotifications bool `yaml:"show_notifications" env:"NGT_NOTIFICATIONS"`
	// SecureTokenStorage keeps the session token in the system keyring
	// instead of config.json.
	SecureTokenStorage bool `yaml:"secure_token_storage" env:"NGT_SECURE_TOKEN"`
	// CheckUpdates enables release checks at startup.
	CheckUpdates bool `yaml:"check_updates" env:"NGT_CHECK_UPDATES"`
	// ReleaseRepo is the owner/name of the repository publishing releases.
	ReleaseRepo string `yaml:"release_repo" env:"NGT_RELEASE_REPO"`
	// MinimizeToTray keeps the tray icon alive when the window is hidden.
	MinimizeToTray bool `yaml:"minimize_to_tray" env:"NGT_MINIMIZE_TO_TRAY"`
	// Theme sets the color theme: "light", "dark", or "auto".
	Theme string `yaml:"theme" env:"NGT_THEME"`
	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty" env:"NGT_OTLP_ENDPOINT"`

	path string
	// file and applied hold the values read from disk and the values after
	// environment overrides, so Save can keep overrides out of the file.
	file    *Settings
	applied *Settings
}

// DefaultSettings returns the default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		APIBaseURL:        common.DefaultAPIBaseURL,
		TelemetryFeed:     common.FeedPoll,
		TelemetryURL:      common.DefaultTelemetryURL,
		PollInterval:      common.TelemetryPollInterval,
		ShowNotifications: true,
		CheckUpdates:      true,
		ReleaseRepo:       common.DefaultReleaseRepo,
		MinimizeToTray:    false,
		Theme:             common.ThemeAuto,
	}
}

// LoadSettings loads settings from dir. If the file doesn't exist, it
// creates one with default values. Environment overrides are applied last
// and never written back.
func LoadSettings(dir string) (*Settings, error) {
	path := filepath.Join(dir, common.SettingsFileName)

	var settings *Settings
	if _, err := os.Stat(path); os.IsNotExist(err) {
		settings = DefaultSettings()
		settings.path = path
		if err := settings.Save(); err != nil {
			return settings, err
		}
	} else {
		settings, err = readSettings(path)
		if err != nil {
			return nil, err
		}
	}

	fromFile := *settings
	fromFile.validate()

	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	settings.validate()

	applied := *settings
	settings.file, settings.applied = &fromFile, &applied
	return settings, nil
}

func readSettings(path string) (*Settings, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening settings: %w", err)
	}
	defer file.Close()

	settings := DefaultSettings()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("error parsing settings: %w", err)
	}
	settings.path = path
	return settings, nil
}

// validate replaces out-of-range values with defaults.
func (s *Settings) validate() {
	switch s.Theme {
	case common.ThemeAuto, common.ThemeLight, common.ThemeDark:
	default:
		s.Theme = common.ThemeAuto
	}

	switch s.TelemetryFeed {
	case common.FeedPoll, common.FeedStream:
	default:
		s.TelemetryFeed = common.FeedPoll
	}

	if s.APIBaseURL == "" {
		s.APIBaseURL = common.DefaultAPIBaseURL
	}
	if s.APIBaseURL[len(s.APIBaseURL)-1] != '/' {
		s.APIBaseURL += "/"
	}

	if s.PollInterval <= 0 {
		s.PollInterval = common.TelemetryPollInterval
	}
}

// Save writes the settings back to the file they were loaded from.
func (s *Settings) Save() error {
	if s.path == "" {
		return fmt.Errorf("%w: settings have no backing file", common.ErrConfigSave)
	}

	out := s.persisted()
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("error serializing settings: %w", err)
	}

	if err := common.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}

	if s.file != nil {
		*s.file = *out
	}
	return nil
}

// persisted returns the values to write: a field still holding the value
// its NGT_* variable set keeps the value it had on disk.
func (s *Settings) persisted() *Settings {
	out := *s
	if s.file == nil || s.applied == nil {
		return &out
	}

	cur := reflect.ValueOf(&out).Elem()
	file := reflect.ValueOf(s.file).Elem()
	applied := reflect.ValueOf(s.applied).Elem()
	fields := cur.Type()
	for i := 0; i < fields.NumField(); i++ {
		key, ok := fields.Field(i).Tag.Lookup("env")
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); !set {
			continue
		}
		if reflect.DeepEqual(cur.Field(i).Interface(), applied.Field(i).Interface()) {
			cur.Field(i).Set(file.Field(i))
		}
	}
	return &out
}

// Path returns the backing file of the settings.
func (s *Settings) Path() string {
	return s.path
}
