package entities

import (
	"fmt"

	"screengraph-backend/domain/core/valueobjects"
	pkgerrors "screengraph-backend/pkg/errors"
)

// RelationType labels the dominant signal behind an edge
type RelationType string

const (
	RelationEntityShared     RelationType = "entity-shared"
	RelationTemporalAdjacent RelationType = "temporal-adjacent"
	RelationContentSimilar   RelationType = "content-similar"
	RelationComposite        RelationType = "composite"
)

// SignalBreakdown records the per-signal contributions behind an edge score,
// kept for explainability in the graph view.
type SignalBreakdown struct {
	Entity   float64 `json:"entity"`
	Temporal float64 `json:"temporal"`
	Content  float64 `json:"content"`
}

// RelationshipEdge is a scored, typed connection between two content items.
// The pair is stored in canonical order (SourceID < TargetID) so mirrored
// scoring can never produce duplicate edges.
type RelationshipEdge struct {
	sourceID   valueobjects.ItemID
	targetID   valueobjects.ItemID
	relType    RelationType
	confidence float64
	breakdown  SignalBreakdown
}

// NewRelationshipEdge creates an edge, canonicalizing the id pair and
// rejecting self-edges and out-of-range confidences.
func NewRelationshipEdge(a, b valueobjects.ItemID, relType RelationType, confidence float64, breakdown SignalBreakdown) (*RelationshipEdge, error) {
	if a == b {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("self-edge not allowed for item %s", a))
	}
	if confidence < 0 || confidence > 1 {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("edge confidence %f outside [0,1]", confidence))
	}
	if a > b {
		a, b = b, a
	}
	return &RelationshipEdge{
		sourceID:   a,
		targetID:   b,
		relType:    relType,
		confidence: confidence,
		breakdown:  breakdown,
	}, nil
}

// SourceID returns the lower id of the canonical pair
func (e *RelationshipEdge) SourceID() valueobjects.ItemID {
	return e.sourceID
}

// TargetID returns the higher id of the canonical pair
func (e *RelationshipEdge) TargetID() valueobjects.ItemID {
	return e.targetID
}

// Type returns the relationship type label
func (e *RelationshipEdge) Type() RelationType {
	return e.relType
}

// Confidence returns the fused score in [0,1]
func (e *RelationshipEdge) Confidence() float64 {
	return e.confidence
}

// Breakdown returns the contributing signal scores
func (e *RelationshipEdge) Breakdown() SignalBreakdown {
	return e.breakdown
}

// Touches reports whether the edge is incident to the given item
func (e *RelationshipEdge) Touches(id valueobjects.ItemID) bool {
	return e.sourceID == id || e.targetID == id
}

// Other returns the opposite endpoint of the edge, or "" if id is not an endpoint
func (e *RelationshipEdge) Other(id valueobjects.ItemID) valueobjects.ItemID {
	switch id {
	case e.sourceID:
		return e.targetID
	case e.targetID:
		return e.sourceID
	default:
		return ""
	}
}

// PairKey returns the canonical "source|target" key for the edge
func (e *RelationshipEdge) PairKey() string {
	return e.sourceID.String() + "|" + e.targetID.String()
}
