package stream

// Merge combines several streams into one. Subscribing subscribes to every
// source; unsubscribing releases all of them.
func Merge[T any](sources ...Stream[T]) Stream[T] {
	return merged[T]{sources: sources}
}

type merged[T any] struct {
	sources []Stream[T]
}

func (m merged[T]) Subscribe(fn func(T)) Subscription {
	subs := make([]Subscription, 0, len(m.sources))
	for _, src := range m.sources {
		subs = append(subs, src.Subscribe(fn))
	}
	return newSubscription(func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	})
}
