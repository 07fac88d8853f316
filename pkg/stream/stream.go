// Package stream provides a small push-based observer abstraction: hot
// subjects, merging and trailing-edge debouncing.
package stream

import (
	"sort"
	"sync"
)

// Subscription releases a subscriber. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Stream delivers values of type T to its subscribers.
type Stream[T any] interface {
	Subscribe(fn func(T)) Subscription
}

// onceSubscription guards a release function so it runs at most once.
type onceSubscription struct {
	once    sync.Once
	release func()
}

func newSubscription(release func()) Subscription {
	return &onceSubscription{release: release}
}

func (s *onceSubscription) Unsubscribe() {
	s.once.Do(s.release)
}

// Subject is a hot stream: values emitted before a subscription are not
// replayed.
type Subject[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: make(map[int]func(T))}
}

func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return newSubscription(func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	})
}

// Emit delivers v to every current subscriber in subscription order.
// Subscribers run on the caller's goroutine.
func (s *Subject[T]) Emit(v T) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of live subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Map derives a stream that applies f to every value of src.
func Map[T, U any](src Stream[T], f func(T) U) Stream[U] {
	return mapped[T, U]{src: src, f: f}
}

type mapped[T, U any] struct {
	src Stream[T]
	f   func(T) U
}

func (m mapped[T, U]) Subscribe(fn func(U)) Subscription {
	return m.src.Subscribe(func(v T) { fn(m.f(v)) })
}
