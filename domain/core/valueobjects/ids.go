package valueobjects

import (
	"strings"

	pkgerrors "screengraph-backend/pkg/errors"
)

// ItemID identifies a content item. The id is assigned by the import pipeline
// and treated as opaque here.
type ItemID string

// NewItemID validates and creates an ItemID
func NewItemID(raw string) (ItemID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", pkgerrors.NewValidation("item id is required")
	}
	return ItemID(trimmed), nil
}

// String returns the string form of the id
func (id ItemID) String() string {
	return string(id)
}

// Fingerprint is a stable hash summarizing the scoring-relevant state of an
// item or a whole graph. Equal fingerprints mean "nothing to recompute".
type Fingerprint string

// String returns the hex form of the fingerprint
func (f Fingerprint) String() string {
	return string(f)
}

// IsZero reports whether the fingerprint is unset
func (f Fingerprint) IsZero() bool {
	return f == ""
}
