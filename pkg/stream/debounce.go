package stream

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period used by form validation.
const DefaultDebounce = 800 * time.Millisecond

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime timer.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debounce emits the latest value of src once d has passed without a new
// value. Each source value restarts the quiet period. A nil scheduler means
// SystemScheduler.
func Debounce[T any](src Stream[T], d time.Duration, sched Scheduler) Stream[T] {
	if sched == nil {
		sched = SystemScheduler{}
	}
	return debounced[T]{src: src, d: d, sched: sched}
}

type debounced[T any] struct {
	src   Stream[T]
	d     time.Duration
	sched Scheduler
}

func (db debounced[T]) Subscribe(fn func(T)) Subscription {
	st := &debounceState[T]{fn: fn, d: db.d, sched: db.sched}
	upstream := db.src.Subscribe(st.push)
	return newSubscription(func() {
		upstream.Unsubscribe()
		st.stop()
	})
}

type debounceState[T any] struct {
	mu      sync.Mutex
	fn      func(T)
	d       time.Duration
	sched   Scheduler
	timer   Timer
	latest  T
	gen     uint64
	stopped bool
}

func (st *debounceState[T]) push(v T) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stopped {
		return
	}
	st.latest = v
	st.gen++
	if st.timer != nil {
		st.timer.Stop()
	}
	gen := st.gen
	st.timer = st.sched.AfterFunc(st.d, func() { st.fire(gen) })
}

// fire drops callbacks whose timer was superseded or stopped while the
// callback was already on its way.
func (st *debounceState[T]) fire(gen uint64) {
	st.mu.Lock()
	if st.stopped || gen != st.gen {
		st.mu.Unlock()
		return
	}
	v := st.latest
	st.timer = nil
	st.mu.Unlock()

	st.fn(v)
}

func (st *debounceState[T]) stop() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.stopped = true
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
}
