// Package loop runs closures one at a time on a single goroutine. State
// owned by a Loop is only touched from its tasks and needs no locking.
package loop

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrStopped    = errors.New("loop: stopped")
	ErrNotStarted = errors.New("loop: not started")
)

// Loop is a serial executor. Tasks are queued in a buffered channel and
// executed in order by one consumer goroutine; they never overlap.
type Loop struct {
	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	started  chan struct{}
	startOne sync.Once
	stopOne  sync.Once
}

// New creates a Loop with the given queue size.
func New(bufSize int) *Loop {
	if bufSize < 1 {
		bufSize = 64
	}
	return &Loop{
		tasks:   make(chan func(), bufSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		started: make(chan struct{}),
	}
}

// Start begins the consumer goroutine. It runs until ctx is cancelled or
// Stop is called. Calling Start more than once has no effect.
func (l *Loop) Start(ctx context.Context) {
	l.startOne.Do(func() {
		close(l.started)
		go l.run(ctx)
	})
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case f := <-l.tasks:
			f()
		case <-l.quit:
			return
		case <-ctx.Done():
			l.stopOne.Do(func() { close(l.quit) })
			return
		}
	}
}

// Post queues f. It blocks while the queue is full and returns false once
// the loop is stopped. Tasks must not call Post on their own loop while the
// queue may be full.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- f:
		return true
	case <-l.quit:
		return false
	}
}

// Do queues f and waits until it has run.
func (l *Loop) Do(ctx context.Context, f func()) error {
	select {
	case <-l.started:
	default:
		return ErrNotStarted
	}
	ran := make(chan struct{})
	ok := l.Post(func() {
		defer close(ran)
		f()
	})
	if !ok {
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates the consumer goroutine and waits for it. Queued tasks that
// have not started are discarded.
func (l *Loop) Stop() {
	l.stopOne.Do(func() { close(l.quit) })
	select {
	case <-l.started:
		<-l.done
	default:
	}
}

// Stopped reports whether Stop was called or the start context ended.
func (l *Loop) Stopped() bool {
	select {
	case <-l.quit:
		return true
	default:
		return false
	}
}
