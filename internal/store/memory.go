package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store used when no redis address is
// configured and as the test double. Values are kept as marshalled JSON so
// Get/Set semantics match the redis-backed store exactly.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	subs map[string][]func()
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		subs: make(map[string][]func()),
	}
}

// Get decodes the stored payload into dest.
func (s *MemoryStore) Get(_ context.Context, key string, dest any) bool {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// Set stores the value and invokes subscribers for the key.
func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = data
	subs := make([]func(), len(s.subs[key]))
	copy(subs, s.subs[key])
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

// Subscribe registers fn to run on every Set of the key.
func (s *MemoryStore) Subscribe(_ context.Context, key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[key] = append(s.subs[key], fn)
}

// seed injects a raw payload, bypassing marshalling. Test hook for
// exercising corrupt-data degradation.
func (s *MemoryStore) seed(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
}
