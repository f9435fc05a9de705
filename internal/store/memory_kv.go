package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"chatseal/internal/domain"
)

// MemoryKV is an in-process KVStore. A positive quota caps the total size
// of keys plus values.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64
	used  int64
}

// NewMemoryKV returns an empty store; quotaBytes <= 0 means unlimited.
func NewMemoryKV(quotaBytes int64) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), quota: quotaBytes}
}

// Get returns a copy of the value stored under key.
func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put stores a copy of value under key.
func (m *MemoryKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delta := int64(len(key) + len(value))
	if old, ok := m.data[key]; ok {
		delta -= int64(len(key) + len(old))
	}
	if m.quota > 0 && m.used+delta > m.quota {
		return fmt.Errorf("%w: put %s (%d of %d bytes used)", domain.ErrQuotaExceeded, key, m.used, m.quota)
	}
	m.data[key] = append([]byte(nil), value...)
	m.used += delta
	return nil
}

// Delete removes key; a missing key is not an error.
func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.data[key]; ok {
		m.used -= int64(len(key) + len(old))
		delete(m.data, key)
	}
	return nil
}

// Keys lists keys starting with prefix in lexical order.
func (m *MemoryKV) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Clear removes every key.
func (m *MemoryKV) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	m.used = 0
	return nil
}

// Close is a no-op.
func (m *MemoryKV) Close() error { return nil }

// Compile-time assertion that MemoryKV implements domain.KVStore.
var _ domain.KVStore = (*MemoryKV)(nil)
