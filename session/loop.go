package session

import (
	"context"
	"sync"

	"github.com/ngtracker/ngt-desktop/common"
)

// Loop runs posted tasks one at a time on a single goroutine. Everything
// that touches State goes through it.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	pending sync.WaitGroup
}

// NewLoop creates a loop. Tasks are queued until Run is called.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	l.pending.Add(1)

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go runs work on its own goroutine and posts the callback it returns back
// onto the loop. A nil callback is skipped.
func (l *Loop) Go(work func() func()) {
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		if done := work(); done != nil {
			l.Post(done)
		}
	}()
}

// Wait blocks until every posted task and background work has finished.
func (l *Loop) Wait() {
	l.pending.Wait()
}

// Run executes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer l.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			common.LogError("Recovered from panic in event loop task: %v", r)
		}
	}()
	fn()
}
