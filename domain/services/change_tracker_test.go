package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
)

func TestChangeTracker_FingerprintOrderInsensitive(t *testing.T) {
	tracker := NewDefaultChangeTracker()
	at := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	a := scorerItem(t, "a", at, []entities.Entity{
		{Kind: entities.EntityKindPerson, Value: "alice", Confidence: 0.9},
		{Kind: entities.EntityKindPlace, Value: "austin", Confidence: 0.7},
	}, "trip notes")
	b := scorerItem(t, "a", at, []entities.Entity{
		{Kind: entities.EntityKindPlace, Value: "austin", Confidence: 0.7},
		{Kind: entities.EntityKindPerson, Value: "alice", Confidence: 0.9},
	}, "trip notes")

	assert.Equal(t, tracker.Fingerprint(a), tracker.Fingerprint(b),
		"re-extraction order must not change the fingerprint")
}

func TestChangeTracker_FingerprintReflectsContent(t *testing.T) {
	tracker := NewDefaultChangeTracker()
	at := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	base := scorerItem(t, "a", at, nil, "trip notes")
	textChanged := scorerItem(t, "a", at, nil, "trip notes, revised")
	timeChanged := scorerItem(t, "a", at.Add(time.Minute), nil, "trip notes")

	assert.NotEqual(t, tracker.Fingerprint(base), tracker.Fingerprint(textChanged))
	assert.NotEqual(t, tracker.Fingerprint(base), tracker.Fingerprint(timeChanged))
}

func TestChangeTracker_GraphFingerprintOrderInsensitive(t *testing.T) {
	tracker := NewDefaultChangeTracker()
	at := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	a := scorerItem(t, "a", at, nil, "first")
	b := scorerItem(t, "b", at, nil, "second")

	forward := tracker.GraphFingerprint([]*entities.ContentItem{a, b})
	reversed := tracker.GraphFingerprint([]*entities.ContentItem{b, a})
	assert.Equal(t, forward, reversed)

	changed := tracker.GraphFingerprint([]*entities.ContentItem{a, scorerItem(t, "b", at, nil, "edited")})
	assert.NotEqual(t, forward, changed)
}

func TestChangeTracker_DetectDirty(t *testing.T) {
	tracker := NewDefaultChangeTracker()
	at := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	a := scorerItem(t, "a", at, nil, "unchanged")
	b := scorerItem(t, "b", at, nil, "before")
	previous := map[valueobjects.ItemID]valueobjects.Fingerprint{
		"a":    tracker.Fingerprint(a),
		"b":    tracker.Fingerprint(b),
		"gone": "stale-fingerprint",
	}

	current := []*entities.ContentItem{
		a,
		scorerItem(t, "b", at, nil, "after"), // content changed
		scorerItem(t, "c", at, nil, "new"),   // never seen before
	}

	dirty := tracker.DetectDirty(previous, current)
	require.Len(t, dirty, 3)
	assert.Contains(t, dirty, valueobjects.ItemID("b"))
	assert.Contains(t, dirty, valueobjects.ItemID("c"))
	assert.Contains(t, dirty, valueobjects.ItemID("gone"), "removed items surface as tombstones")
	assert.NotContains(t, dirty, valueobjects.ItemID("a"))
}
