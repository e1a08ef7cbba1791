// Package replay tracks consumed payment proofs for the at-most-once
// fulfilment policy. Keys are normalized transaction ids.
package replay

import (
	"context"
	"sync"
	"time"
)

// Store reserves proofs atomically: Reserve returns false when the
// proof was already consumed. Release undoes a reservation whose
// fulfilment never reached the broadcaster.
type Store interface {
	Reserve(ctx context.Context, proof string) (bool, error)
	Release(ctx context.Context, proof string) error
}

// MemoryStore keeps reservations in-process. Suitable for a single
// instance; use the redis store when running more than one replica.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]time.Time
	now  func() time.Time
	ttl  time.Duration
}

// NewMemoryStore builds a memory store. A zero ttl keeps reservations
// forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]time.Time),
		now:  time.Now,
		ttl:  ttl,
	}
}

func (m *MemoryStore) Reserve(_ context.Context, proof string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if at, ok := m.data[proof]; ok {
		if m.ttl == 0 || now.Sub(at) < m.ttl {
			return false, nil
		}
	}
	m.data[proof] = now
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, proof string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, proof)
	return nil
}
