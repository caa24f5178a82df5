package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screengraph-backend/application/ports"
	"screengraph-backend/domain/core/valueobjects"
)

func cacheEntry(t *testing.T, fingerprint string) *ports.LayoutCacheEntry {
	t.Helper()
	pos, err := valueobjects.NewPosition(100, 200)
	require.NoError(t, err)
	return &ports.LayoutCacheEntry{
		Fingerprint: valueobjects.Fingerprint(fingerprint),
		Positions:   map[valueobjects.ItemID]valueobjects.Position{"a": pos},
	}
}

func TestLayoutCacheStore_RoundTrip(t *testing.T) {
	store := NewLayoutCacheStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "default", cacheEntry(t, "fp-1")))

	restored, err := store.Restore(ctx, "default", "fp-1")
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, valueobjects.Fingerprint("fp-1"), restored.Fingerprint)
	assert.Len(t, restored.Positions, 1)
	assert.False(t, restored.CreatedAt.IsZero(), "stored entries get a creation time")
}

func TestLayoutCacheStore_FingerprintMismatchIsAMiss(t *testing.T) {
	store := NewLayoutCacheStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "default", cacheEntry(t, "fp-1")))

	restored, err := store.Restore(ctx, "default", "fp-2")
	require.NoError(t, err, "a mismatch is a miss, never an error")
	assert.Nil(t, restored)

	restored, err = store.Restore(ctx, "other-collection", "fp-1")
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestLayoutCacheStore_InvalidateRegionAccumulates(t *testing.T) {
	store := NewLayoutCacheStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "default", cacheEntry(t, "fp-1")))
	require.NoError(t, store.InvalidateRegion(ctx, "default", []valueobjects.ItemID{"a", "b"}))
	require.NoError(t, store.InvalidateRegion(ctx, "default", []valueobjects.ItemID{"b", "c"}))

	restored, err := store.Restore(ctx, "default", "fp-1")
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.ElementsMatch(t, []valueobjects.ItemID{"a", "b", "c"}, restored.StaleIDs)

	// invalidating an absent collection is a no-op
	assert.NoError(t, store.InvalidateRegion(ctx, "missing", []valueobjects.ItemID{"x"}))
}

func TestLayoutCacheStore_StoreResetsStaleMarks(t *testing.T) {
	store := NewLayoutCacheStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "default", cacheEntry(t, "fp-1")))
	require.NoError(t, store.InvalidateRegion(ctx, "default", []valueobjects.ItemID{"a"}))
	require.NoError(t, store.Store(ctx, "default", cacheEntry(t, "fp-2")))

	restored, err := store.Restore(ctx, "default", "fp-2")
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Empty(t, restored.StaleIDs, "a fresh layout clears previous stale marks")
}

func TestLayoutCacheStore_RestoredEntryIsIsolated(t *testing.T) {
	store := NewLayoutCacheStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "default", cacheEntry(t, "fp-1")))

	first, err := store.Restore(ctx, "default", "fp-1")
	require.NoError(t, err)
	moved, _ := valueobjects.NewPosition(-1, -1)
	first.Positions["a"] = moved
	first.Fingerprint = "tampered"

	second, err := store.Restore(ctx, "default", "fp-1")
	require.NoError(t, err)
	require.NotNil(t, second, "mutating a restored copy must not affect the store")
	assert.Equal(t, 100.0, second.Positions["a"].X())
}
