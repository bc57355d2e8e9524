package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to read the next frame or pong from the server.
	pongWait = 30 * time.Second

	// Maximum frame size accepted from the server.
	maxFrameSize = 1 << 20
)

// StreamFeed reads frames pushed over a WebSocket connection.
// The connection is dialled lazily and re-dialled after an error.
type StreamFeed struct {
	url    string
	dialer *websocket.Dialer
	conn   *websocket.Conn
}

// NewStreamFeed creates a feed reading from a WebSocket url.
func NewStreamFeed(url string) *StreamFeed {
	return &StreamFeed{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   4096,
		},
	}
}

func (s *StreamFeed) connect(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial telemetry stream: %w", err)
	}

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	s.conn = conn
	return nil
}

// Next reads the next frame from the stream.
func (s *StreamFeed) Next(ctx context.Context) (Frame, error) {
	if s.conn == nil {
		if err := s.connect(ctx); err != nil {
			return Frame{}, err
		}
	}

	conn := s.conn
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		conn.Close()
		s.conn = nil
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, fmt.Errorf("read telemetry stream: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	return frame, nil
}

// Close closes the current connection, if any.
func (s *StreamFeed) Close() error {
	if s.conn == nil {
		return nil
	}
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}
