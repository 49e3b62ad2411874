package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/rl1809/storefront/internal/port"
)

// MemoryAdapter keeps slots in process memory; nothing survives a restart.
type MemoryAdapter struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{slots: make(map[string][]byte)}
}

func (m *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.slots[key]
	if !ok {
		return nil, port.ErrSlotEmpty
	}
	return slices.Clone(v), nil
}

func (m *MemoryAdapter) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = slices.Clone(value)
	return nil
}

func (m *MemoryAdapter) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

func (m *MemoryAdapter) Ping(ctx context.Context) error { return nil }
