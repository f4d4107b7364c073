package indexer

import (
	"context"
	"sync"

	"codescout/internal/store"
)

// MemorySummaryCache is an in-memory SummaryCache, useful when running
// without persistence.
type MemorySummaryCache struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemorySummaryCache() *MemorySummaryCache {
	return &MemorySummaryCache{items: make(map[string]string)}
}

func (m *MemorySummaryCache) GetChunkSummary(_ context.Context, contentHash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[contentHash]
	return s, ok, nil
}

func (m *MemorySummaryCache) PutChunkSummary(_ context.Context, contentHash, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[contentHash] = summary
	return nil
}

// MemoryEdgeCache is an in-memory EdgeCache.
type MemoryEdgeCache struct {
	mu     sync.RWMutex
	hashes map[string]string
	edges  map[string][]store.EdgeRow
}

func NewMemoryEdgeCache() *MemoryEdgeCache {
	return &MemoryEdgeCache{
		hashes: make(map[string]string),
		edges:  make(map[string][]store.EdgeRow),
	}
}

func (m *MemoryEdgeCache) GetNodeHash(_ context.Context, nodeID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hashes[nodeID], nil
}

func (m *MemoryEdgeCache) PutNodeHash(_ context.Context, nodeID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[nodeID] = hash
	return nil
}

func (m *MemoryEdgeCache) ReplaceNodeEdges(_ context.Context, nodeID string, edges []store.EdgeRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[nodeID] = append([]store.EdgeRow(nil), edges...)
	return nil
}

func (m *MemoryEdgeCache) EdgesForNode(_ context.Context, nodeID string) ([]store.EdgeRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.EdgeRow(nil), m.edges[nodeID]...), nil
}
