// Package dto defines the request and response shapes of the REST API.
package dto

import (
	"time"

	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
)

// EntityPayload is one extracted entity on an incoming item
type EntityPayload struct {
	Kind       string  `json:"kind" validate:"required,oneof=person place organization date color object document_type phone email url"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`
}

// ItemPayload is one content item in an upsert request
type ItemPayload struct {
	ID         string          `json:"id" validate:"required,max=128"`
	CapturedAt time.Time       `json:"capturedAt" validate:"required"`
	Entities   []EntityPayload `json:"entities,omitempty" validate:"omitempty,max=200,dive"`
	Text       string          `json:"text,omitempty"`
}

// UpsertItemsRequest is the body of POST /items
type UpsertItemsRequest struct {
	Items []ItemPayload `json:"items" validate:"required,min=1,max=1000,dive"`
}

// MoveNodeRequest is the body of PUT /graph/nodes/{itemID}/position
type MoveNodeRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// ToContentItem converts the payload into a domain content item
func (p ItemPayload) ToContentItem() (*entities.ContentItem, error) {
	id, err := valueobjects.NewItemID(p.ID)
	if err != nil {
		return nil, err
	}

	ents := make([]entities.Entity, 0, len(p.Entities))
	for _, e := range p.Entities {
		ents = append(ents, entities.Entity{
			Kind:       entities.EntityKind(e.Kind),
			Value:      e.Value,
			Confidence: e.Confidence,
		})
	}
	return entities.NewContentItem(id, p.CapturedAt, ents, p.Text)
}
