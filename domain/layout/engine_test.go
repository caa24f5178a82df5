package layout

import (
	"math"
	"testing"

	"screengraph-backend/domain/core/aggregates"
	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
)

func layoutBounds(t *testing.T) valueobjects.Bounds {
	t.Helper()
	bounds, err := valueobjects.NewBounds(0, 0, 1000, 1000)
	if err != nil {
		t.Fatalf("NewBounds() error = %v", err)
	}
	return bounds
}

func layoutGraph(t *testing.T, ids []valueobjects.ItemID, links [][2]valueobjects.ItemID) *aggregates.RelationshipGraph {
	t.Helper()
	nodes := make([]*entities.GraphNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, entities.NewGraphNode(id))
	}
	edges := make([]*entities.RelationshipEdge, 0, len(links))
	for _, link := range links {
		edge, err := entities.NewRelationshipEdge(link[0], link[1], entities.RelationEntityShared, 0.9, entities.SignalBreakdown{})
		if err != nil {
			t.Fatalf("NewRelationshipEdge(%s, %s) error = %v", link[0], link[1], err)
		}
		edges = append(edges, edge)
	}
	graph, err := aggregates.NewRelationshipGraph(nodes, edges, "fp", 1)
	if err != nil {
		t.Fatalf("NewRelationshipGraph() error = %v", err)
	}
	return graph
}

func TestEngine_EmptyAndSingleNode(t *testing.T) {
	engine := NewEngine(nil)
	bounds := layoutBounds(t)

	if got := engine.Layout(nil, nil, bounds); len(got) != 0 {
		t.Errorf("Layout(nil) = %d positions, want 0", len(got))
	}

	single := layoutGraph(t, []valueobjects.ItemID{"only"}, nil)
	positions := engine.Layout(single, nil, bounds)
	if len(positions) != 1 {
		t.Fatalf("Layout() = %d positions, want 1", len(positions))
	}
	if !positions["only"].Equals(bounds.Center()) {
		t.Errorf("single node should sit at the bounds center, got (%v, %v)",
			positions["only"].X(), positions["only"].Y())
	}
}

func TestEngine_ConnectedPairSettlesNearIdealLength(t *testing.T) {
	engine := NewEngine(nil)
	bounds := layoutBounds(t)
	graph := layoutGraph(t,
		[]valueobjects.ItemID{"a", "b"},
		[][2]valueobjects.ItemID{{"a", "b"}},
	)

	positions := engine.Layout(graph, nil, bounds)
	dist := positions["a"].DistanceTo(positions["b"])
	if math.Abs(dist-120) > 30 {
		t.Errorf("connected pair settled at distance %v, want within 30 of the ideal 120", dist)
	}
}

func TestEngine_PositionsStayWithinPaddedBounds(t *testing.T) {
	engine := NewEngine(nil)
	bounds := layoutBounds(t)
	graph := layoutGraph(t,
		[]valueobjects.ItemID{"a", "b", "c", "d", "e", "f"},
		[][2]valueobjects.ItemID{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"d", "e"}, {"e", "f"}},
	)

	positions := engine.Layout(graph, nil, bounds)
	if len(positions) != 6 {
		t.Fatalf("Layout() = %d positions, want 6", len(positions))
	}
	for id, p := range positions {
		if p.X() < 20 || p.X() > 980 || p.Y() < 20 || p.Y() > 980 {
			t.Errorf("node %s at (%v, %v) escaped the padded bounds", id, p.X(), p.Y())
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	engine := NewEngine(nil)
	bounds := layoutBounds(t)
	graph := layoutGraph(t,
		[]valueobjects.ItemID{"a", "b", "c", "d"},
		[][2]valueobjects.ItemID{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"a", "d"}},
	)

	first := engine.Layout(graph, nil, bounds)
	second := engine.Layout(graph, nil, bounds)
	for id := range first {
		if !first[id].Equals(second[id]) {
			t.Errorf("node %s moved between identical runs: (%v, %v) vs (%v, %v)",
				id, first[id].X(), first[id].Y(), second[id].X(), second[id].Y())
		}
	}
}

func TestEngine_PinnedNodeDoesNotMove(t *testing.T) {
	engine := NewEngine(nil)
	bounds := layoutBounds(t)
	graph := layoutGraph(t,
		[]valueobjects.ItemID{"a", "b", "c"},
		[][2]valueobjects.ItemID{{"a", "b"}, {"b", "c"}},
	)

	anchor, _ := valueobjects.NewPosition(300, 400)
	pinned := graph.WithNodeState(
		map[valueobjects.ItemID]valueobjects.Position{"a": anchor},
		map[valueobjects.ItemID]bool{"a": true},
	)

	positions := engine.Layout(pinned, map[valueobjects.ItemID]valueobjects.Position{"a": anchor}, bounds)
	if !positions["a"].Equals(anchor) {
		t.Errorf("pinned node moved to (%v, %v), want (300, 400)",
			positions["a"].X(), positions["a"].Y())
	}
}

func TestEngine_RelayoutRegionHoldsDistantAnchors(t *testing.T) {
	engine := NewEngine(nil) // RegionHops 2
	bounds := layoutBounds(t)
	graph := layoutGraph(t,
		[]valueobjects.ItemID{"a", "b", "c", "d", "e"},
		[][2]valueobjects.ItemID{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"d", "e"}},
	)

	current := engine.Layout(graph, nil, bounds)
	changed := map[valueobjects.ItemID]struct{}{"a": {}}

	relaid := engine.RelayoutRegion(graph, changed, current, bounds)
	if len(relaid) != 5 {
		t.Fatalf("RelayoutRegion() = %d positions, want 5", len(relaid))
	}

	// a, b, c fall within two hops of the change; d and e are anchors
	for _, id := range []valueobjects.ItemID{"d", "e"} {
		if !relaid[id].Equals(current[id]) {
			t.Errorf("anchor %s moved during regional relayout: (%v, %v) vs (%v, %v)",
				id, current[id].X(), current[id].Y(), relaid[id].X(), relaid[id].Y())
		}
	}
}

func TestEngine_RelayoutRegionPlacesUnpositionedNodes(t *testing.T) {
	engine := NewEngine(nil)
	bounds := layoutBounds(t)
	graph := layoutGraph(t,
		[]valueobjects.ItemID{"a", "b", "c"},
		[][2]valueobjects.ItemID{{"a", "b"}},
	)

	// c has no position yet; a regional relayout around b must still place it
	partial := map[valueobjects.ItemID]valueobjects.Position{}
	full := engine.Layout(graph, nil, bounds)
	partial["a"] = full["a"]
	partial["b"] = full["b"]

	relaid := engine.RelayoutRegion(graph, map[valueobjects.ItemID]struct{}{"b": {}}, partial, bounds)
	if _, ok := relaid["c"]; !ok {
		t.Error("regional relayout should place nodes that had no position")
	}
}
