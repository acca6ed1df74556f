package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory only. It backs session-only
// state and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	broker *Broker
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		broker: NewBroker(),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	m.broker.Publish(key)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	m.broker.Publish(key)
	return nil
}

func (m *MemoryStore) Subscribe(key string, fn func()) func() {
	return m.broker.Subscribe(key, fn)
}

// Subscribers returns the number of active subscriptions for key
func (m *MemoryStore) Subscribers(key string) int {
	return m.broker.Subscribers(key)
}
