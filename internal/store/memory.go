package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory KV used by tests and single-process deployments.
type Memory struct {
	mu      sync.RWMutex
	values  map[string]memoryValue
	now     func() time.Time
	putN    int
	deleteN int
}

type memoryValue struct {
	data      []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]memoryValue),
		now:    time.Now,
	}
}

// Get returns the stored bytes for key, or nil when absent or expired.
func (m *Memory) Get(_ context.Context, key string, _ ValueKind) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.values[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !v.expiresAt.IsZero() && m.now().After(v.expiresAt) {
		m.mu.Lock()
		delete(m.values, key)
		m.mu.Unlock()
		return nil, nil
	}
	return v.data, nil
}

// Put stores value under key. A non-positive ttl stores without expiry.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	data := make([]byte, len(value))
	copy(data, value)

	m.values[key] = memoryValue{data: data, expiresAt: expiresAt}
	m.putN++
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	m.deleteN++
	return nil
}

// List returns every stored key with the given prefix.
func (m *Memory) List(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []Entry
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, Entry{Name: k})
		}
	}
	return entries, nil
}

// PutCount returns how many Put calls the store has committed. Tests use
// it to verify write suppression.
func (m *Memory) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.putN
}

// DeleteCount returns how many Delete calls the store has seen.
func (m *Memory) DeleteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deleteN
}
