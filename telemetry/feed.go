package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ngtracker/ngt-desktop/common"
)

// Feed is a source of telemetry frames.
type Feed interface {
	// Next blocks until the next frame is available or ctx is done.
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// NewFeed returns the feed selected in settings.
func NewFeed(kind, url string, interval time.Duration) Feed {
	if kind == common.FeedStream {
		return NewStreamFeed(url)
	}
	return NewPollFeed(url, interval)
}

// PollFeed fetches frames from an HTTP endpoint at a fixed interval.
type PollFeed struct {
	url      string
	interval time.Duration
	client   *http.Client
	last     time.Time
}

// NewPollFeed creates a feed polling url every interval.
func NewPollFeed(url string, interval time.Duration) *PollFeed {
	if interval <= 0 {
		interval = common.TelemetryPollInterval
	}
	return &PollFeed{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Next waits for the next poll slot and fetches a frame.
func (p *PollFeed) Next(ctx context.Context) (Frame, error) {
	if !p.last.IsZero() {
		wait := p.interval - time.Since(p.last)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Frame{}, ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Frame{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("poll telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Frame{}, fmt.Errorf("poll telemetry: unexpected status %s", resp.Status)
	}

	var frame Frame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		return Frame{}, fmt.Errorf("decode telemetry frame: %w", err)
	}
	return frame, nil
}

// Close releases idle connections.
func (p *PollFeed) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
