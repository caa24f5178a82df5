package entities

import (
	"sort"
	"strings"
	"time"

	"screengraph-backend/domain/core/valueobjects"
	pkgerrors "screengraph-backend/pkg/errors"
)

// EntityKind classifies an extracted entity
type EntityKind string

const (
	EntityKindPerson       EntityKind = "person"
	EntityKindPlace        EntityKind = "place"
	EntityKindOrganization EntityKind = "organization"
	EntityKindDate         EntityKind = "date"
	EntityKindColor        EntityKind = "color"
	EntityKindObject       EntityKind = "object"
	EntityKindDocumentType EntityKind = "document_type"
	EntityKindPhone        EntityKind = "phone"
	EntityKindEmail        EntityKind = "email"
	EntityKindURL          EntityKind = "url"
)

// Entity is a typed, normalized fact extracted from a content item by the
// upstream extraction pipeline.
type Entity struct {
	Kind       EntityKind
	Value      string  // normalized value; empty means malformed, scorer skips it
	Confidence float64 // extraction confidence in [0,1]
}

// IsWellFormed reports whether the entity can participate in overlap scoring
func (e Entity) IsWellFormed() bool {
	return strings.TrimSpace(e.Value) != "" && e.Confidence >= 0 && e.Confidence <= 1
}

// ContentItem is a unit of user content (an imported screenshot with
// extracted metadata) that participates in relationship discovery. The item
// is owned by the import pipeline; this service only reads it.
type ContentItem struct {
	id         valueobjects.ItemID
	capturedAt time.Time
	entities   []Entity
	text       string // free OCR text blob, used only for fallback text similarity
}

// NewContentItem creates a content item with validation. Entities are copied
// and stored in a canonical order so two items with the same entities compare
// and fingerprint identically regardless of extraction order.
func NewContentItem(id valueobjects.ItemID, capturedAt time.Time, ents []Entity, text string) (*ContentItem, error) {
	if id.String() == "" {
		return nil, pkgerrors.NewValidation("content item id is required")
	}
	if capturedAt.IsZero() {
		return nil, pkgerrors.NewValidation("content item timestamp is required")
	}

	sorted := make([]Entity, len(ents))
	copy(sorted, ents)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value < sorted[j].Value
		}
		return sorted[i].Confidence < sorted[j].Confidence
	})

	return &ContentItem{
		id:         id,
		capturedAt: capturedAt.UTC(),
		entities:   sorted,
		text:       text,
	}, nil
}

// ID returns the item identifier
func (c *ContentItem) ID() valueobjects.ItemID {
	return c.id
}

// CapturedAt returns the capture timestamp in UTC
func (c *ContentItem) CapturedAt() time.Time {
	return c.capturedAt
}

// Entities returns the extracted entities in canonical order
func (c *ContentItem) Entities() []Entity {
	out := make([]Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// EntitiesByKind groups well-formed entities by kind
func (c *ContentItem) EntitiesByKind() map[EntityKind][]Entity {
	grouped := make(map[EntityKind][]Entity)
	for _, e := range c.entities {
		if !e.IsWellFormed() {
			continue
		}
		grouped[e.Kind] = append(grouped[e.Kind], e)
	}
	return grouped
}

// Text returns the free text blob
func (c *ContentItem) Text() string {
	return c.text
}

// SameCalendarDay reports whether both items were captured on the same UTC day
func (c *ContentItem) SameCalendarDay(other *ContentItem) bool {
	y1, m1, d1 := c.capturedAt.Date()
	y2, m2, d2 := other.capturedAt.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
