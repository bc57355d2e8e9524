package ui

import (
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Theme-aware styles for light and dark mode.
const appCSS = `
/* Account forms */
.form-card {
    border-radius: 12px;
    padding: 8px;
    border: 1px solid alpha(currentColor, 0.15);
}

.form-error {
    color: #e01b24;
    font-size: 12px;
}

entry {
    border-radius: 6px;
    min-height: 34px;
}

/* Dashboard */
.stat-label {
    opacity: 0.7;
}

.stat-value {
    font-weight: 600;
    font-family: monospace;
}

.job-row {
    padding: 6px 4px;
    font-size: 13px;
}

.job-failed {
    color: #e5a50a;
}

list {
    background-color: transparent;
}

list > row {
    background-color: transparent;
    border-bottom: 1px solid alpha(currentColor, 0.08);
}

/* Update banner */
.update-banner {
    padding: 8px 12px;
    background-color: alpha(#3584e4, 0.15);
    border-bottom: 1px solid alpha(#3584e4, 0.3);
}

/* Status bar */
.status-bar {
    border-top: 1px solid alpha(currentColor, 0.15);
    padding: 6px 12px;
    opacity: 0.8;
}

.telemetry-connected {
    color: #2ec27e;
}

.telemetry-disconnected {
    opacity: 0.6;
}

/* Preferences */
.preferences-card {
    border-radius: 12px;
}

.settings-title {
    font-weight: 600;
}

button.flat {
    background-color: transparent;
}

button.flat:hover {
    background-color: alpha(currentColor, 0.1);
}
`

// LoadStyles loads the custom CSS styles for the application.
// Should be called during application startup.
func LoadStyles() {
	display := gdk.DisplayGetDefault()
	if display == nil {
		return
	}

	provider := gtk.NewCSSProvider()
	provider.LoadFromString(appCSS)

	gtk.StyleContextAddProviderForDisplay(
		display,
		provider,
		gtk.STYLE_PROVIDER_PRIORITY_APPLICATION,
	)
}
