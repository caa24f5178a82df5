package layout

import (
	"screengraph-backend/domain/core/aggregates"
	"screengraph-backend/domain/core/valueobjects"
)

// RelayoutRegion re-runs the simulation for the neighborhood of the changed
// nodes only. Everything outside the region is held fixed as an anchor, so
// the cost is bounded by the region size and the rest of the map does not
// shift under the user.
func (e *Engine) RelayoutRegion(
	graph *aggregates.RelationshipGraph,
	changed map[valueobjects.ItemID]struct{},
	current map[valueobjects.ItemID]valueobjects.Position,
	bounds valueobjects.Bounds,
) map[valueobjects.ItemID]valueobjects.Position {
	if graph == nil || graph.NodeCount() == 0 {
		return map[valueobjects.ItemID]valueobjects.Position{}
	}
	if len(changed) == 0 {
		// nothing changed: pass positions through, filling in any gaps
		return e.Layout(graph, current, bounds)
	}

	region := e.expandRegion(graph, changed)

	// anchors are all nodes outside the region that already have a position;
	// nodes without one (brand new, far from the change) still get placed
	frozen := make(map[valueobjects.ItemID]struct{})
	for _, id := range graph.NodeIDs() {
		if _, inRegion := region[id]; inRegion {
			continue
		}
		if _, positioned := current[id]; positioned {
			frozen[id] = struct{}{}
		}
	}

	arena, edges := e.buildArena(graph, current, bounds, frozen)
	e.simulate(arena, edges, bounds, e.config.MaxIterations)
	return collectPositions(arena)
}

// expandRegion grows the changed set by RegionHops breadth-first steps
func (e *Engine) expandRegion(
	graph *aggregates.RelationshipGraph,
	changed map[valueobjects.ItemID]struct{},
) map[valueobjects.ItemID]struct{} {
	region := make(map[valueobjects.ItemID]struct{}, len(changed))
	frontier := make([]valueobjects.ItemID, 0, len(changed))
	for id := range changed {
		if graph.HasNode(id) {
			region[id] = struct{}{}
			frontier = append(frontier, id)
		}
	}

	for hop := 0; hop < e.config.RegionHops; hop++ {
		var next []valueobjects.ItemID
		for _, id := range frontier {
			for _, neighbor := range graph.Neighbors(id) {
				if _, seen := region[neighbor]; seen {
					continue
				}
				region[neighbor] = struct{}{}
				next = append(next, neighbor)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return region
}
