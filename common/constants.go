// Package common provides shared constants, types, and utilities
// used across the Next Generation Tracker client.
package common

import "time"

// Application metadata.
const (
	// AppID is the unique identifier for the application.
	AppID = "com.ngtracker.desktop"
	// AppName is the display name of the application.
	AppName = "Next Generation Tracker"
	// ConfigDirName is the name of the per-user data directory.
	ConfigDirName = "Next Generation Tracker"
	// ServiceName is the identifier used for the keyring and tracing.
	ServiceName = "ngt-tracker"
)

// File names used by the application.
const (
	SessionFileName     = "config.json"
	ProfileFileName     = "userData.json"
	SettingsFileName    = "settings.yaml"
	HistoryFileName     = "history.db"
	CredentialsFileName = ".credentials"
	LogFileName         = "ngt-tracker.log"
)

// Remote endpoints.
const (
	// DefaultAPIBaseURL is the backend the client talks to unless overridden.
	DefaultAPIBaseURL = "https://next-generation-tracker.herokuapp.com/"
	// DefaultTelemetryURL is the local telemetry bridge endpoint.
	DefaultTelemetryURL = "http://127.0.0.1:25555/api/telemetry"
	// DefaultReleaseRepo is the GitHub repository that publishes releases.
	DefaultReleaseRepo = "ngtracker/ngt-desktop"
)

// API routes, relative to the base URL.
const (
	RouteLogin    = "api/auth/login"
	RouteRegister = "api/auth/register"
	RouteSelf     = "api/users/self"
	RouteJobs     = "api/jobs"
)

// Default timeouts and intervals.
const (
	// TelemetryPollInterval is how often the polling feed asks for a frame.
	TelemetryPollInterval = 250 * time.Millisecond
	// TelemetryReconnectDelay is the pause before re-opening a dropped feed.
	TelemetryReconnectDelay = 2 * time.Second
	// UpdateCheckTimeout bounds a single release lookup.
	UpdateCheckTimeout = 30 * time.Second
	// HistoryDisplayLimit is the number of jobs shown on the dashboard.
	HistoryDisplayLimit = 10
)

// UI constants.
const (
	// DefaultWindowWidth is the default main window width.
	DefaultWindowWidth = 1280
	// DefaultWindowHeight is the default main window height.
	DefaultWindowHeight = 720
	// MinWindowWidth is the minimum window width.
	MinWindowWidth = 800
	// MinWindowHeight is the minimum window height.
	MinWindowHeight = 600
	// TrayIconSize is the size of the system tray icon.
	TrayIconSize = 22
)

// User-facing messages.
const (
	MsgMissingIdentifier = "Missing email/username"
	MsgMissingUsername   = "Missing username"
	MsgMissingEmail      = "Missing email"
	MsgMissingPassword   = "Missing password"
	MsgPasswordMismatch  = "Passwords don't match"
	MsgConnectionRefused = "Couldn't connect to the server"
	MsgUnknownError      = "Unknown error"
)

// Theme values.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Telemetry feed kinds.
const (
	FeedPoll   = "poll"
	FeedStream = "stream"
)
