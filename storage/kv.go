package storage

import (
	"errors"
	"sync"
)

// ErrStorageFailure wraps every read or write failure of a KV backend
var ErrStorageFailure = errors.New("storage failure")

// KV is the durable key-value port used for favorites and settings
type KV interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value
	Set(key, value string) error
	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error
	Close() error
}

// MemoryKV is an in-process KV with no durability
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }

var _ KV = (*MemoryKV)(nil)
