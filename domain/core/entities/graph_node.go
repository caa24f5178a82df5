package entities

import (
	"screengraph-backend/domain/core/valueobjects"
)

// GraphNode is a content item's presence in the relationship graph. Velocity
// lives in the layout engine's arena, not here; the node only carries the
// state the presentation layer needs between simulation runs.
type GraphNode struct {
	id       valueobjects.ItemID
	position valueobjects.Position
	pinned   bool
	degree   int
}

// NewGraphNode creates a node for the given item
func NewGraphNode(id valueobjects.ItemID) *GraphNode {
	return &GraphNode{id: id}
}

// ID returns the content item id
func (n *GraphNode) ID() valueobjects.ItemID {
	return n.id
}

// Position returns the last known layout position
func (n *GraphNode) Position() valueobjects.Position {
	return n.position
}

// SetPosition updates the last known layout position
func (n *GraphNode) SetPosition(p valueobjects.Position) {
	n.position = p
}

// Pinned reports whether the user is actively positioning the node.
// Pinned nodes are excluded from physics integration but still push others.
func (n *GraphNode) Pinned() bool {
	return n.pinned
}

// SetPinned updates the pinned flag
func (n *GraphNode) SetPinned(pinned bool) {
	n.pinned = pinned
}

// Degree returns the cached edge count, used for render/LOD decisions
func (n *GraphNode) Degree() int {
	return n.degree
}

// SetDegree is called by the graph aggregate when edges are indexed
func (n *GraphNode) SetDegree(d int) {
	n.degree = d
}

// Clone returns a copy of the node, used for snapshot isolation
func (n *GraphNode) Clone() *GraphNode {
	clone := *n
	return &clone
}
