package cache

import (
	"context"
	"sync"

	"github.com/example/refurnish/internal/cart"
)

// MemoryCache implements cart.Cache and cart.SelectionStore in process
// memory. Used in tests and single-instance deployments without Redis.
type MemoryCache struct {
	mu         sync.Mutex
	snapshots  map[string][]cart.Line
	selections map[string]map[string]bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		snapshots:  make(map[string][]cart.Line),
		selections: make(map[string]map[string]bool),
	}
}

func (m *MemoryCache) Get(_ context.Context, userID string) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.snapshots[userID]
	if !ok {
		return nil, cart.ErrCacheMiss
	}
	out := make([]cart.Line, len(lines))
	copy(out, lines)
	return out, nil
}

func (m *MemoryCache) Set(_ context.Context, userID string, lines []cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]cart.Line, len(lines))
	copy(stored, lines)
	m.snapshots[userID] = stored
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, userID)
	return nil
}

func (m *MemoryCache) Selected(_ context.Context, userID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.selections[userID]))
	for id, v := range m.selections[userID] {
		out[id] = v
	}
	return out, nil
}

func (m *MemoryCache) SetSelected(_ context.Context, userID, lineID string, selected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selections[userID] == nil {
		m.selections[userID] = make(map[string]bool)
	}
	if selected {
		m.selections[userID][lineID] = true
	} else {
		delete(m.selections[userID], lineID)
	}
	return nil
}

func (m *MemoryCache) Clear(_ context.Context, userID string, lineIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range lineIDs {
		delete(m.selections[userID], id)
	}
	return nil
}
