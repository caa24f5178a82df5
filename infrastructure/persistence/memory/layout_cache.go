package memory

import (
	"context"
	"sync"
	"time"

	"screengraph-backend/application/ports"
	"screengraph-backend/domain/core/valueobjects"
)

// LayoutCacheStore keeps one layout cache entry per collection in process
// memory. It is the default backend and the fallback when a persistent
// backend is degraded.
type LayoutCacheStore struct {
	mu      sync.RWMutex
	entries map[string]*ports.LayoutCacheEntry
}

// NewLayoutCacheStore creates an empty in-memory store
func NewLayoutCacheStore() *LayoutCacheStore {
	return &LayoutCacheStore{entries: make(map[string]*ports.LayoutCacheEntry)}
}

// Restore returns the entry only on an exact fingerprint match
func (s *LayoutCacheStore) Restore(_ context.Context, collection string, fingerprint valueobjects.Fingerprint) (*ports.LayoutCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[collection]
	if !ok || entry.Fingerprint != fingerprint {
		return nil, nil
	}
	return cloneEntry(entry), nil
}

// Store replaces the collection's single entry
func (s *LayoutCacheStore) Store(_ context.Context, collection string, entry *ports.LayoutCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneEntry(entry)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.StaleIDs = nil
	s.entries[collection] = stored
	return nil
}

// InvalidateRegion marks node ids stale on the current entry; the rest of
// the entry stays trustworthy
func (s *LayoutCacheStore) InvalidateRegion(_ context.Context, collection string, ids []valueobjects.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[collection]
	if !ok {
		return nil
	}
	stale := make(map[valueobjects.ItemID]struct{}, len(entry.StaleIDs)+len(ids))
	for _, id := range entry.StaleIDs {
		stale[id] = struct{}{}
	}
	for _, id := range ids {
		stale[id] = struct{}{}
	}
	entry.StaleIDs = entry.StaleIDs[:0]
	for id := range stale {
		entry.StaleIDs = append(entry.StaleIDs, id)
	}
	return nil
}

// Close is a no-op for the in-memory store
func (s *LayoutCacheStore) Close() error {
	return nil
}

func cloneEntry(entry *ports.LayoutCacheEntry) *ports.LayoutCacheEntry {
	positions := make(map[valueobjects.ItemID]valueobjects.Position, len(entry.Positions))
	for id, p := range entry.Positions {
		positions[id] = p
	}
	stale := make([]valueobjects.ItemID, len(entry.StaleIDs))
	copy(stale, entry.StaleIDs)
	return &ports.LayoutCacheEntry{
		Fingerprint: entry.Fingerprint,
		Positions:   positions,
		StaleIDs:    stale,
		CreatedAt:   entry.CreatedAt,
	}
}
