package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps records in process memory (dev/test use).
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string][]byte{}}
}

func (m *MemoryStore) Write(_ context.Context, collection, key string, data []byte) error {
	if err := validName(collection); err != nil {
		return err
	}
	if err := validName(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.data[collection]
	if !ok {
		c = map[string][]byte{}
		m.data[collection] = c
	}
	c[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Read(_ context.Context, collection, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) ListKeys(_ context.Context, collection, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []string{}
	for k := range m.data[collection] {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
