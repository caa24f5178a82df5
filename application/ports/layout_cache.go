package ports

import (
	"context"
	"time"

	"screengraph-backend/domain/core/valueobjects"
)

// LayoutCacheEntry is the persisted-state shape of a layout run: the graph
// fingerprint it was computed for, the node positions, and any node ids that
// were marked stale after the fact. An entry is either trusted whole or
// treated as a miss; wall-clock age alone never decides validity.
type LayoutCacheEntry struct {
	Fingerprint valueobjects.Fingerprint
	Positions   map[valueobjects.ItemID]valueobjects.Position
	StaleIDs    []valueobjects.ItemID
	CreatedAt   time.Time
}

// LayoutCacheStore persists one layout cache entry per collection.
//
// Restore returns (nil, nil) when there is no entry or the fingerprint does
// not exactly match: a mismatch is a cache miss, never an error. Errors are
// reserved for storage failures, which callers degrade around.
type LayoutCacheStore interface {
	Restore(ctx context.Context, collection string, fingerprint valueobjects.Fingerprint) (*LayoutCacheEntry, error)
	Store(ctx context.Context, collection string, entry *LayoutCacheEntry) error
	InvalidateRegion(ctx context.Context, collection string, ids []valueobjects.ItemID) error
	Close() error
}
