// Package session provides the per-actor key-value storage that backs POS carts and slots.
//
// Values are JSON encoded in every implementation so that a value read back is always a
// copy of what was written, regardless of backend.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store is a key-value store scoped to a single actor (cashier terminal).
type Store interface {
	// Get decodes the value stored at key into dest. It reports false when the key is absent.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	Forget(ctx context.Context, keys ...string) error
}

// Factory hands out stores bound to an actor id.
type Factory interface {
	ForActor(actorID string) Store
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode session key %q: %w", key, err)
	}
	return true, nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session key %q: %w", key, err)
	}
	m.mu.Lock()
	m.values[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Forget(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.values, key)
	}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// MemoryFactory lazily creates one MemoryStore per actor.
type MemoryFactory struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{stores: make(map[string]*MemoryStore)}
}

func (f *MemoryFactory) ForActor(actorID string) Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	store, ok := f.stores[actorID]
	if !ok {
		store = NewMemoryStore()
		f.stores[actorID] = store
	}
	return store
}
