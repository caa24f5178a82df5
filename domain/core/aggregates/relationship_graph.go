package aggregates

import (
	"sort"
	"time"

	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
	pkgerrors "screengraph-backend/pkg/errors"
)

// RelationshipGraph is an immutable snapshot of the discovered relationship
// network. A build produces a complete new graph which the orchestrator swaps
// in atomically; readers never observe a partially built graph. Mutating
// accessors return copies.
type RelationshipGraph struct {
	nodes       map[valueobjects.ItemID]*entities.GraphNode
	edges       []*entities.RelationshipEdge
	adjacency   map[valueobjects.ItemID][]*entities.RelationshipEdge
	fingerprint valueobjects.Fingerprint
	version     uint64
	builtAt     time.Time
}

// NewRelationshipGraph assembles a snapshot from nodes and edges. Edges are
// validated against the node set, deduplicated by canonical pair, sorted for
// deterministic iteration, and node degrees are indexed.
func NewRelationshipGraph(
	nodes []*entities.GraphNode,
	edges []*entities.RelationshipEdge,
	fingerprint valueobjects.Fingerprint,
	version uint64,
) (*RelationshipGraph, error) {
	nodeIndex := make(map[valueobjects.ItemID]*entities.GraphNode, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, exists := nodeIndex[n.ID()]; exists {
			return nil, pkgerrors.NewConflict("duplicate node " + n.ID().String())
		}
		nodeIndex[n.ID()] = n
	}

	seen := make(map[string]struct{}, len(edges))
	kept := make([]*entities.RelationshipEdge, 0, len(edges))
	adjacency := make(map[valueobjects.ItemID][]*entities.RelationshipEdge)
	for _, e := range edges {
		if e == nil {
			continue
		}
		if _, ok := nodeIndex[e.SourceID()]; !ok {
			return nil, pkgerrors.NewValidation("edge references unknown node " + e.SourceID().String())
		}
		if _, ok := nodeIndex[e.TargetID()]; !ok {
			return nil, pkgerrors.NewValidation("edge references unknown node " + e.TargetID().String())
		}
		if _, dup := seen[e.PairKey()]; dup {
			return nil, pkgerrors.NewConflict("duplicate edge " + e.PairKey())
		}
		seen[e.PairKey()] = struct{}{}
		kept = append(kept, e)
		adjacency[e.SourceID()] = append(adjacency[e.SourceID()], e)
		adjacency[e.TargetID()] = append(adjacency[e.TargetID()], e)
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].PairKey() < kept[j].PairKey()
	})
	for id, node := range nodeIndex {
		node.SetDegree(len(adjacency[id]))
	}

	return &RelationshipGraph{
		nodes:       nodeIndex,
		edges:       kept,
		adjacency:   adjacency,
		fingerprint: fingerprint,
		version:     version,
		builtAt:     time.Now().UTC(),
	}, nil
}

// EmptyRelationshipGraph returns a zero-node snapshot
func EmptyRelationshipGraph(version uint64) *RelationshipGraph {
	g, _ := NewRelationshipGraph(nil, nil, "", version)
	return g
}

// Fingerprint returns the graph fingerprint used for cache invalidation
func (g *RelationshipGraph) Fingerprint() valueobjects.Fingerprint {
	return g.fingerprint
}

// Version returns the monotonic build version
func (g *RelationshipGraph) Version() uint64 {
	return g.version
}

// BuiltAt returns when the snapshot was assembled
func (g *RelationshipGraph) BuiltAt() time.Time {
	return g.builtAt
}

// NodeCount returns the number of nodes
func (g *RelationshipGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *RelationshipGraph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node for an item id, or nil
func (g *RelationshipGraph) Node(id valueobjects.ItemID) *entities.GraphNode {
	return g.nodes[id]
}

// HasNode reports whether the item participates in the graph
func (g *RelationshipGraph) HasNode(id valueobjects.ItemID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes sorted by id
func (g *RelationshipGraph) Nodes() []*entities.GraphNode {
	out := make([]*entities.GraphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// NodeIDs returns all item ids sorted
func (g *RelationshipGraph) NodeIDs() []valueobjects.ItemID {
	out := make([]valueobjects.ItemID, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Edges returns all edges in canonical order
func (g *RelationshipGraph) Edges() []*entities.RelationshipEdge {
	out := make([]*entities.RelationshipEdge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesOf returns the edges incident to an item
func (g *RelationshipGraph) EdgesOf(id valueobjects.ItemID) []*entities.RelationshipEdge {
	edges := g.adjacency[id]
	out := make([]*entities.RelationshipEdge, len(edges))
	copy(out, edges)
	return out
}

// Neighbors returns the ids adjacent to an item, sorted
func (g *RelationshipGraph) Neighbors(id valueobjects.ItemID) []valueobjects.ItemID {
	edges := g.adjacency[id]
	out := make([]valueobjects.ItemID, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Other(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WithNodeState returns a copy of the graph with per-node position and pin
// state applied. The edge set and fingerprint are shared; nodes are cloned so
// the receiver stays immutable.
func (g *RelationshipGraph) WithNodeState(
	positions map[valueobjects.ItemID]valueobjects.Position,
	pinned map[valueobjects.ItemID]bool,
) *RelationshipGraph {
	clone := &RelationshipGraph{
		nodes:       make(map[valueobjects.ItemID]*entities.GraphNode, len(g.nodes)),
		edges:       g.edges,
		adjacency:   g.adjacency,
		fingerprint: g.fingerprint,
		version:     g.version,
		builtAt:     g.builtAt,
	}
	for id, node := range g.nodes {
		c := node.Clone()
		if pos, ok := positions[id]; ok {
			c.SetPosition(pos)
		}
		if pin, ok := pinned[id]; ok {
			c.SetPinned(pin)
		}
		clone.nodes[id] = c
	}
	return clone
}
