package aggregates

import (
	"testing"

	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
)

func testNodes(ids ...valueobjects.ItemID) []*entities.GraphNode {
	nodes := make([]*entities.GraphNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, entities.NewGraphNode(id))
	}
	return nodes
}

func testEdge(t *testing.T, a, b valueobjects.ItemID, confidence float64) *entities.RelationshipEdge {
	t.Helper()
	edge, err := entities.NewRelationshipEdge(a, b, entities.RelationEntityShared, confidence, entities.SignalBreakdown{})
	if err != nil {
		t.Fatalf("NewRelationshipEdge(%s, %s) error = %v", a, b, err)
	}
	return edge
}

func TestRelationshipGraph_New(t *testing.T) {
	nodes := testNodes("a", "b", "c")
	edges := []*entities.RelationshipEdge{
		testEdge(t, "a", "b", 0.8),
		testEdge(t, "b", "c", 0.5),
	}

	graph, err := NewRelationshipGraph(nodes, edges, "fp-1", 3)
	if err != nil {
		t.Fatalf("NewRelationshipGraph() error = %v", err)
	}

	if graph.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", graph.NodeCount())
	}
	if graph.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", graph.EdgeCount())
	}
	if graph.Version() != 3 {
		t.Errorf("Version() = %d, want 3", graph.Version())
	}
	if graph.Node("b").Degree() != 2 {
		t.Errorf("degree of b = %d, want 2", graph.Node("b").Degree())
	}
	if graph.Node("a").Degree() != 1 {
		t.Errorf("degree of a = %d, want 1", graph.Node("a").Degree())
	}
}

func TestRelationshipGraph_RejectsInvalidInput(t *testing.T) {
	nodes := testNodes("a", "b")

	_, err := NewRelationshipGraph(nodes, []*entities.RelationshipEdge{testEdge(t, "a", "ghost", 0.5)}, "fp", 1)
	if err == nil {
		t.Error("edge referencing an unknown node should be rejected")
	}

	_, err = NewRelationshipGraph(nodes, []*entities.RelationshipEdge{
		testEdge(t, "a", "b", 0.5),
		testEdge(t, "b", "a", 0.6), // same canonical pair
	}, "fp", 1)
	if err == nil {
		t.Error("duplicate canonical pair should be rejected")
	}

	_, err = NewRelationshipGraph(testNodes("a", "a"), nil, "fp", 1)
	if err == nil {
		t.Error("duplicate node should be rejected")
	}
}

func TestRelationshipGraph_Neighbors(t *testing.T) {
	graph, err := NewRelationshipGraph(testNodes("a", "b", "c", "d"), []*entities.RelationshipEdge{
		testEdge(t, "a", "b", 0.8),
		testEdge(t, "a", "c", 0.6),
	}, "fp", 1)
	if err != nil {
		t.Fatalf("NewRelationshipGraph() error = %v", err)
	}

	neighbors := graph.Neighbors("a")
	if len(neighbors) != 2 || neighbors[0] != "b" || neighbors[1] != "c" {
		t.Errorf("Neighbors(a) = %v, want [b c]", neighbors)
	}
	if len(graph.Neighbors("d")) != 0 {
		t.Errorf("Neighbors(d) should be empty")
	}
}

func TestRelationshipGraph_WithNodeState(t *testing.T) {
	graph, err := NewRelationshipGraph(testNodes("a", "b"), []*entities.RelationshipEdge{
		testEdge(t, "a", "b", 0.8),
	}, "fp", 1)
	if err != nil {
		t.Fatalf("NewRelationshipGraph() error = %v", err)
	}

	pos, _ := valueobjects.NewPosition(42, 17)
	projected := graph.WithNodeState(
		map[valueobjects.ItemID]valueobjects.Position{"a": pos},
		map[valueobjects.ItemID]bool{"a": true},
	)

	if !projected.Node("a").Position().Equals(pos) {
		t.Error("projected node should carry the applied position")
	}
	if !projected.Node("a").Pinned() {
		t.Error("projected node should carry the applied pin state")
	}

	// the receiver must stay untouched
	if graph.Node("a").Pinned() {
		t.Error("WithNodeState must not mutate the original graph")
	}
	if graph.EdgeCount() != projected.EdgeCount() {
		t.Error("projection should share the edge set")
	}
}
