package storage

import "sync"

// Broker fans change notifications for a key out to its subscribers.
// Publish runs the callbacks synchronously on the caller's goroutine.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]func()
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]func())}
}

// Subscribe registers fn for key and returns its unsubscribe handle
func (b *Broker) Subscribe(key string, fn func()) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[key] == nil {
		b.subs[key] = make(map[uint64]func())
	}
	b.subs[key][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[key], id)
			if len(b.subs[key]) == 0 {
				delete(b.subs, key)
			}
		})
	}
}

// Publish notifies every subscriber of key
func (b *Broker) Publish(key string) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs[key]))
	for _, fn := range b.subs[key] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	// callbacks run outside the lock so they may re-read the store or unsubscribe
	for _, fn := range fns {
		fn()
	}
}

// Subscribers returns the number of active subscriptions for key
func (b *Broker) Subscribers(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}
