package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
)

// ChangeTracker fingerprints content items and detects which items changed
// since the last graph build, so rebuilds can be incremental.
type ChangeTracker interface {
	// Fingerprint returns a stable hash over the attributes that influence
	// scoring. Insensitive to entity ordering.
	Fingerprint(item *entities.ContentItem) valueobjects.Fingerprint

	// GraphFingerprint returns a hash over the sorted (id, fingerprint)
	// pairs of all items; identical input always yields an identical value
	GraphFingerprint(items []*entities.ContentItem) valueobjects.Fingerprint

	// DetectDirty returns the ids whose fingerprint changed, plus all new
	// ids, plus (as tombstones) ids present previously but absent now
	DetectDirty(previous map[valueobjects.ItemID]valueobjects.Fingerprint, current []*entities.ContentItem) map[valueobjects.ItemID]struct{}
}

// DefaultChangeTracker hashes a canonical serialization of each item
type DefaultChangeTracker struct{}

// NewDefaultChangeTracker creates a change tracker
func NewDefaultChangeTracker() *DefaultChangeTracker {
	return &DefaultChangeTracker{}
}

// Fingerprint returns a stable hash over timestamp, entities and text.
// Entities are canonicalized (sorted) before hashing so re-extraction that
// produces the same entities in a different order does not mark the item
// dirty.
func (t *DefaultChangeTracker) Fingerprint(item *entities.ContentItem) valueobjects.Fingerprint {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(item.CapturedAt().UnixNano(), 10))
	sb.WriteByte('\n')

	ents := item.Entities()
	lines := make([]string, 0, len(ents))
	for _, e := range ents {
		lines = append(lines,
			string(e.Kind)+"\x1f"+e.Value+"\x1f"+strconv.FormatFloat(e.Confidence, 'g', -1, 64))
	}
	sort.Strings(lines)
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(item.Text())

	sum := sha256.Sum256([]byte(sb.String()))
	return valueobjects.Fingerprint(hex.EncodeToString(sum[:]))
}

// GraphFingerprint hashes the sorted (id, item fingerprint) pairs
func (t *DefaultChangeTracker) GraphFingerprint(items []*entities.ContentItem) valueobjects.Fingerprint {
	pairs := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		pairs = append(pairs, item.ID().String()+"\x1f"+t.Fingerprint(item).String())
	}
	sort.Strings(pairs)

	h := sha256.New()
	for _, p := range pairs {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return valueobjects.Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// DetectDirty compares current items against previous fingerprints
func (t *DefaultChangeTracker) DetectDirty(
	previous map[valueobjects.ItemID]valueobjects.Fingerprint,
	current []*entities.ContentItem,
) map[valueobjects.ItemID]struct{} {
	dirty := make(map[valueobjects.ItemID]struct{})
	seen := make(map[valueobjects.ItemID]struct{}, len(current))

	for _, item := range current {
		if item == nil {
			continue
		}
		id := item.ID()
		seen[id] = struct{}{}
		prev, existed := previous[id]
		if !existed || prev != t.Fingerprint(item) {
			dirty[id] = struct{}{}
		}
	}

	// tombstones: previously known, gone now
	for id := range previous {
		if _, ok := seen[id]; !ok {
			dirty[id] = struct{}{}
		}
	}

	return dirty
}
