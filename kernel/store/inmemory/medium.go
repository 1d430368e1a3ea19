// Package inmemory provides a volatile Medium used by tests and the
// ephemeral store backend.
package inmemory

import "sync"

// Medium is a thread-safe in-memory key-value medium.
type Medium struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Medium {
	return &Medium{data: map[string]string{}}
}

func (m *Medium) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *Medium) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Medium) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len reports the number of stored keys.
func (m *Medium) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
