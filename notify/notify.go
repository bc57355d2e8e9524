// Package notify sends desktop notifications through the freedesktop
// notification service, falling back to notify-send.
package notify

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/ngtracker/ngt-desktop/common"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = busName + ".Notify"
)

// Urgency is the freedesktop urgency level.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// String returns the notify-send name of the level.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Notification is a single desktop notification.
type Notification struct {
	Title   string
	Message string
	Urgency Urgency
	Icon    string
}

// caller is the part of a D-Bus object used to post notifications.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier posts notifications when enabled.
type Notifier struct {
	appName string

	mu      sync.Mutex
	enabled bool
	conn    *dbus.Conn
	object  caller

	// connect and command are replaced in tests.
	connect func() (*dbus.Conn, caller, error)
	command func(name string, args ...string) error
}

// New creates a notifier. A disabled notifier drops every notification.
func New(appName string, enabled bool) *Notifier {
	return &Notifier{
		appName: appName,
		enabled: enabled,
		connect: sessionBus,
		command: run,
	}
}

func sessionBus() (*dbus.Conn, caller, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Object(busName, objectPath), nil
}

func run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// SetEnabled turns notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Notify posts a normal-urgency notification.
func (n *Notifier) Notify(title, message string) error {
	return n.Send(Notification{Title: title, Message: message, Urgency: UrgencyNormal})
}

// Send posts note over D-Bus, or through notify-send when the session bus
// is unavailable.
func (n *Notifier) Send(note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return nil
	}
	if note.Icon == "" {
		note.Icon = iconFor(note.Urgency)
	}

	if err := n.sendBus(note); err != nil {
		common.LogDebug("D-Bus notification failed, using notify-send: %v", err)
		return n.sendCommand(note)
	}
	return nil
}

func (n *Notifier) sendBus(note Notification) error {
	if n.object == nil {
		conn, object, err := n.connect()
		if err != nil {
			return err
		}
		n.conn, n.object = conn, object
	}

	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(note.Urgency))}
	call := n.object.Call(method, 0,
		n.appName, uint32(0), note.Icon, note.Title, note.Message,
		[]string{}, hints, int32(-1))
	if call.Err != nil {
		// Drop the connection so the next notification reconnects.
		n.closeLocked()
		return call.Err
	}
	return nil
}

func (n *Notifier) sendCommand(note Notification) error {
	err := n.command("notify-send",
		"--app-name="+n.appName,
		"--icon="+note.Icon,
		"--urgency="+note.Urgency.String(),
		note.Title,
		note.Message,
	)
	if err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

func iconFor(u Urgency) string {
	if u == UrgencyCritical {
		return "dialog-error"
	}
	return "dialog-information"
}

// Close releases the session bus connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closeLocked()
}

func (n *Notifier) closeLocked() error {
	n.object = nil
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}
