// Package progress persists lesson completion state in a key-value layout
// namespaced per browser profile.
package progress

import (
	"context"
	"strconv"
	"sync"
)

// Backend persists string entries grouped by namespace. Incr must be atomic:
// concurrent increments of the same key never lose an update.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string) error
	Incr(ctx context.Context, namespace, key string) (int64, error)
	Ping(ctx context.Context) error
}

// MemoryBackend is an in-memory Backend.
type MemoryBackend struct {
	entries map[string]map[string]string
	mu      sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]map[string]string),
	}
}

func (m *MemoryBackend) Get(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[namespace][key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bucket(namespace)[key] = value
	return nil
}

// Incr treats a missing or non-numeric value as 0.
func (m *MemoryBackend) Incr(_ context.Context, namespace, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bucket(namespace)
	n, _ := strconv.ParseInt(b[key], 10, 64)
	n++
	b[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}

// Snapshot returns a copy of every entry in namespace.
func (m *MemoryBackend) Snapshot(namespace string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.entries[namespace]))
	for k, v := range m.entries[namespace] {
		out[k] = v
	}
	return out
}

func (m *MemoryBackend) bucket(namespace string) map[string]string {
	b, ok := m.entries[namespace]
	if !ok {
		b = make(map[string]string)
		m.entries[namespace] = b
	}
	return b
}
