package store

import (
	"sync"
)

type inMemory struct {
	mu      sync.RWMutex
	dataset Dataset
}

// NewMemoryCache returns an empty in-memory DatasetCache
func NewMemoryCache() DatasetCache {
	return &inMemory{}
}

func (m *inMemory) Get() (Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.dataset) == 0 {
		return nil, false
	}
	return m.dataset, true
}

func (m *inMemory) Set(ds Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(ds) == 0 {
		m.dataset = nil
		return
	}
	m.dataset = ds
}

func (m *inMemory) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dataset) == 0
}
