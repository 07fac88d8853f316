// Package streamtest provides a manually driven scheduler for deterministic
// debounce tests.
package streamtest

import (
	"sort"
	"sync"
	"time"

	"github.com/quiby-ai/staffdesk/pkg/stream"
)

// Scheduler implements stream.Scheduler on a virtual clock that only moves
// when Advance is called.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*timer
}

type timer struct {
	s       *Scheduler
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func New() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) stream.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &timer{s: s, at: s.now + d, seq: s.seq, f: f}
	s.seq++
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d and runs every timer that became due,
// in due order, on the caller's goroutine.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		sort.SliceStable(s.timers, func(i, j int) bool {
			if s.timers[i].at == s.timers[j].at {
				return s.timers[i].seq < s.timers[j].seq
			}
			return s.timers[i].at < s.timers[j].at
		})
		var next *timer
		for i, t := range s.timers {
			if t.stopped {
				continue
			}
			if t.at <= target {
				next = t
				s.timers = append(s.timers[:i:i], s.timers[i+1:]...)
			}
			break
		}
		if next == nil {
			s.now = target
			s.compact()
			s.mu.Unlock()
			return
		}
		next.stopped = true
		s.now = next.at
		s.mu.Unlock()

		next.f()
	}
}

// Pending reports the number of timers that are scheduled and not stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (s *Scheduler) compact() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.timers = live
}
