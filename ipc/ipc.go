// Package ipc carries named signals between the host process and the UI
// context. Messages are line-delimited JSON, so the same channel works over
// an in-process pipe or the stdio of a child process.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ngtracker/ngt-desktop/common"
)

// Signal names a message exchanged between the two contexts.
type Signal string

const (
	// RendererReady is sent by the UI once its content is ready.
	RendererReady Signal = "renderer_ready"
	// MainReady is sent by the host once the window has loaded and the UI
	// reported ready.
	MainReady Signal = "main_ready"
	// Restart asks the host to relaunch the process.
	Restart Signal = "restart"
	// RestartApp asks the host to install a downloaded update and relaunch.
	RestartApp Signal = "restart_app"
	// UpdateAvailable tells the UI an update was found.
	UpdateAvailable Signal = "update_available"
	// UpdateDownloaded tells the UI an update is ready to install.
	UpdateDownloaded Signal = "update_downloaded"
)

// ErrClosed is returned once the channel has been closed.
var ErrClosed = errors.New("ipc channel closed")

// maxLineSize bounds a single encoded message.
const maxLineSize = 1 << 20

// Message is one signal with an optional JSON payload.
type Message struct {
	Signal  Signal          `json:"signal"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("signal %s has no payload", m.Signal)
	}
	return json.Unmarshal(m.Payload, v)
}

type handler struct {
	fn func(Message)
}

// Channel is one end of a signal connection.
type Channel struct {
	w   io.Writer
	wmu sync.Mutex

	mu       sync.Mutex
	handlers map[Signal][]*handler
	waiters  map[Signal][]chan Message
	pending  map[Signal]Message
	queue    []Message
	wake     chan struct{}
	closed   bool
	done     chan struct{}
	err      error
}

// NewChannel starts reading signals from r. Outgoing signals are written to w.
func NewChannel(r io.Reader, w io.Writer) *Channel {
	c := &Channel{
		w:        w,
		handlers: make(map[Signal][]*handler),
		waiters:  make(map[Signal][]chan Message),
		pending:  make(map[Signal]Message),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go c.readLoop(r)
	go c.dispatchLoop()
	return c
}

// Pipe returns two connected channels, one per context.
func Pipe() (host, ui *Channel) {
	hostR, uiW := io.Pipe()
	uiR, hostW := io.Pipe()
	return NewChannel(hostR, hostW), NewChannel(uiR, uiW)
}

// Send writes a signal with an optional payload.
func (c *Channel) Send(sig Signal, payload interface{}) error {
	msg := Message{Signal: sig}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", sig, err)
		}
		msg.Payload = data
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(line); err != nil {
		return fmt.Errorf("send %s: %w", sig, err)
	}
	common.LogDebug("ipc: sent %s", sig)
	return nil
}

// On registers fn for every future occurrence of sig. A stashed occurrence
// that nobody handled yet is delivered to fn too. The returned function
// removes the registration.
func (c *Channel) On(sig Signal, fn func(Message)) func() {
	h := &handler{fn: fn}

	c.mu.Lock()
	c.handlers[sig] = append(c.handlers[sig], h)
	msg, stashed := c.pending[sig]
	if stashed {
		delete(c.pending, sig)
		c.queue = append(c.queue, msg)
	}
	c.mu.Unlock()

	if stashed {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.handlers[sig]
		for i, existing := range list {
			if existing == h {
				c.handlers[sig] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Wait blocks until sig is received. A signal that arrived earlier with no
// handler or waiter registered is returned immediately.
func (c *Channel) Wait(ctx context.Context, sig Signal) (Message, error) {
	c.mu.Lock()
	if msg, ok := c.pending[sig]; ok {
		delete(c.pending, sig)
		c.mu.Unlock()
		return msg, nil
	}
	if c.closed {
		c.mu.Unlock()
		return Message{}, c.closeErr()
	}
	ch := make(chan Message, 1)
	c.waiters[sig] = append(c.waiters[sig], ch)
	c.mu.Unlock()

	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		c.removeWaiter(sig, ch)
		return Message{}, ctx.Err()
	case <-c.done:
		return Message{}, c.closeErr()
	}
}

func (c *Channel) removeWaiter(sig Signal, ch chan Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.waiters[sig]
	for i, existing := range list {
		if existing == ch {
			c.waiters[sig] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Done is closed when the channel stops reading.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close stops the channel and closes the underlying writer if it can be
// closed.
func (c *Channel) Close() error {
	c.shutdown(ErrClosed)
	if closer, ok := c.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Channel) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

func (c *Channel) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
}

func (c *Channel) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			common.LogWarn("ipc: dropping malformed message: %v", err)
			continue
		}
		if msg.Signal == "" {
			continue
		}

		c.mu.Lock()
		c.queue = append(c.queue, msg)
		c.mu.Unlock()

		select {
		case c.wake <- struct{}{}:
		default:
		}
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, io.ErrClosedPipe) {
		err = ErrClosed
	}
	c.shutdown(err)
}

// dispatchLoop delivers queued messages in order, off the read goroutine,
// so a handler may Send without stalling the peer.
func (c *Channel) dispatchLoop() {
	for {
		select {
		case <-c.wake:
		case <-c.done:
			return
		}

		for {
			c.mu.Lock()
			if len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			msg := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()

			c.deliver(msg)
		}
	}
}

func (c *Channel) deliver(msg Message) {
	c.mu.Lock()
	waiters := c.waiters[msg.Signal]
	delete(c.waiters, msg.Signal)
	handlers := append([]*handler(nil), c.handlers[msg.Signal]...)
	if len(waiters) == 0 && len(handlers) == 0 {
		c.pending[msg.Signal] = msg
	}
	c.mu.Unlock()

	common.LogDebug("ipc: received %s", msg.Signal)

	for _, ch := range waiters {
		ch <- msg
	}
	for _, h := range handlers {
		h.fn(msg)
	}
}
