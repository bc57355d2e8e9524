// Package telemetry turns the game's telemetry feed into connection,
// time and job events.
// This file contains the Hub, which diffs incoming frames and dispatches
// events to subscribers.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/ngtracker/ngt-desktop/common"
)

// Kind identifies the type of a hub event.
type Kind int

const (
	KindConnected Kind = iota
	KindDisconnected
	KindTimeChange
	KindJobStarted
	KindJobDelivered
	KindJobCancelled
)

// String returns a human-readable representation of the event kind.
func (k Kind) String() string {
	switch k {
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	case KindTimeChange:
		return "time-change"
	case KindJobStarted:
		return "job-started"
	case KindJobDelivered:
		return "job-delivered"
	case KindJobCancelled:
		return "job-cancelled"
	default:
		return "unknown"
	}
}

// Subscription is the handle returned by every On* method.
type Subscription struct {
	hub  *Hub
	kind Kind
	fn   func(current, previous Timestamp)
}

// Dispose removes the subscription. It is safe to call more than once.
func (s *Subscription) Dispose() {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.remove(s)
}

// Hub holds the latest frame and the subscribers for each event kind.
type Hub struct {
	mu        sync.RWMutex
	data      Frame
	hasData   bool
	connected bool
	subs      map[Kind][]*Subscription

	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	reconnectDelay time.Duration
}

// NewHub creates an idle hub.
func NewHub() *Hub {
	return &Hub{
		subs:           make(map[Kind][]*Subscription),
		reconnectDelay: common.TelemetryReconnectDelay,
	}
}

// SetReconnectDelay changes how long Watch waits after a feed error.
func (h *Hub) SetReconnectDelay(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reconnectDelay = d
}

func (h *Hub) subscribe(kind Kind, fn func(current, previous Timestamp)) *Subscription {
	sub := &Subscription{hub: h, kind: kind, fn: fn}
	h.mu.Lock()
	h.subs[kind] = append(h.subs[kind], sub)
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.subs[sub.kind]
	for i, existing := range list {
		if existing == sub {
			h.subs[sub.kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// OnConnected subscribes to the game connecting.
func (h *Hub) OnConnected(fn func()) *Subscription {
	return h.subscribe(KindConnected, func(_, _ Timestamp) { fn() })
}

// OnDisconnected subscribes to the game disconnecting.
func (h *Hub) OnDisconnected(fn func()) *Subscription {
	return h.subscribe(KindDisconnected, func(_, _ Timestamp) { fn() })
}

// OnTimeChange subscribes to in-game clock ticks.
func (h *Hub) OnTimeChange(fn func(current, previous Timestamp)) *Subscription {
	return h.subscribe(KindTimeChange, fn)
}

// OnJobStarted subscribes to new jobs.
func (h *Hub) OnJobStarted(fn func()) *Subscription {
	return h.subscribe(KindJobStarted, func(_, _ Timestamp) { fn() })
}

// OnJobDelivered subscribes to job deliveries.
func (h *Hub) OnJobDelivered(fn func()) *Subscription {
	return h.subscribe(KindJobDelivered, func(_, _ Timestamp) { fn() })
}

// OnJobCancelled subscribes to job cancellations.
func (h *Hub) OnJobCancelled(fn func()) *Subscription {
	return h.subscribe(KindJobCancelled, func(_, _ Timestamp) { fn() })
}

// Data returns the most recent frame.
func (h *Hub) Data() Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data
}

// Connected reports whether the game is currently connected.
func (h *Hub) Connected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connected
}

type dispatch struct {
	kind              Kind
	current, previous Timestamp
}

// Apply stores frame as the current state and dispatches the events it
// implies. Handlers run on the caller's goroutine after Data reflects frame.
func (h *Hub) Apply(frame Frame) {
	var events []dispatch

	h.mu.Lock()
	previous := h.data
	hadData := h.hasData

	events = append(events, h.connectionChange(frame.Game.SDKActive)...)

	// Job events close or open the job the previous samples describe, so
	// they run before this frame's time-change.
	for _, ev := range frame.Events {
		switch ev.Type {
		case EventJobStarted:
			events = append(events, dispatch{kind: KindJobStarted})
		case EventJobDelivered:
			events = append(events, dispatch{kind: KindJobDelivered})
		case EventJobCancelled:
			events = append(events, dispatch{kind: KindJobCancelled})
		default:
			common.LogDebug("telemetry: ignoring event %q", ev.Type)
		}
	}

	if hadData && frame.Game.Time.Value != previous.Game.Time.Value {
		events = append(events, dispatch{
			kind:     KindTimeChange,
			current:  frame.Game.Time,
			previous: previous.Game.Time,
		})
	}

	frame.Events = nil
	h.data = frame
	h.hasData = true
	h.mu.Unlock()

	h.fire(events)
}

// connectionChange must be called with h.mu held.
func (h *Hub) connectionChange(connected bool) []dispatch {
	if connected == h.connected {
		return nil
	}
	h.connected = connected
	if connected {
		common.LogInfo("Connected to telemetry")
		return []dispatch{{kind: KindConnected}}
	}
	common.LogInfo("Disconnected from telemetry")
	return []dispatch{{kind: KindDisconnected}}
}

func (h *Hub) markDisconnected() {
	h.mu.Lock()
	events := h.connectionChange(false)
	h.mu.Unlock()
	h.fire(events)
}

func (h *Hub) fire(events []dispatch) {
	for _, ev := range events {
		h.mu.RLock()
		subs := append([]*Subscription(nil), h.subs[ev.kind]...)
		h.mu.RUnlock()

		for _, sub := range subs {
			sub.fn(ev.current, ev.previous)
		}
	}
}

// Start begins reading frames from feed in the background.
func (h *Hub) Start(feed Feed) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.cancel = cancel
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	common.LogInfo("Telemetry watcher started")

	go func() {
		defer close(done)
		h.Watch(ctx, feed)
	}()
}

// Stop ends a watcher begun with Start and waits for it to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	cancel()
	<-done
	common.LogInfo("Telemetry watcher stopped")
}

// IsRunning returns whether a watcher is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Watch applies frames from feed until ctx is done. Feed errors mark the
// game disconnected and are retried after the reconnect delay.
func (h *Hub) Watch(ctx context.Context, feed Feed) {
	defer feed.Close()

	for {
		frame, err := feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			common.LogDebug("Telemetry feed error: %v", err)
			h.markDisconnected()

			h.mu.RLock()
			delay := h.reconnectDelay
			h.mu.RUnlock()

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		h.Apply(frame)
	}
}
