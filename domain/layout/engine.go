// Package layout implements the force-directed placement of relationship
// graph nodes. The simulation runs over an explicit arena of node structs
// indexed by position, with edges referencing arena indices; no pointers
// between simulation nodes, no aliasing.
package layout

import (
	"math"

	"screengraph-backend/domain/core/aggregates"
	"screengraph-backend/domain/core/valueobjects"
)

// Config holds the physics constants for the simulation. Defaults are tuned
// for readability of mid-sized mind maps and are overridable through the
// runtime tuning file.
type Config struct {
	// IdealEdgeLength is the rest length attraction pulls connected nodes toward
	IdealEdgeLength float64

	// AttractionStrength scales the spring force along edges
	AttractionStrength float64

	// RepulsionStrength scales the inverse-square push between all node pairs
	RepulsionStrength float64

	// CenteringStrength is the weak global pull toward the bounds center that
	// keeps disconnected components from drifting apart
	CenteringStrength float64

	// Damping multiplies velocity each step; below 1 the system loses energy
	Damping float64

	// MaxIterations bounds wall-clock cost regardless of graph pathology
	MaxIterations int

	// EnergyEpsilon stops iteration early once total kinetic energy falls
	// below it (convergence)
	EnergyEpsilon float64

	// MinDistance clamps pair distances to avoid force singularities
	MinDistance float64

	// Padding keeps nodes away from the bounds edges
	Padding float64

	// RegionHops is the neighborhood radius used by incremental relayout
	RegionHops int
}

// DefaultConfig returns the default simulation constants
func DefaultConfig() *Config {
	return &Config{
		IdealEdgeLength:    120,
		AttractionStrength: 0.1,
		RepulsionStrength:  1000,
		CenteringStrength:  0.005,
		Damping:            0.85,
		MaxIterations:      300,
		EnergyEpsilon:      1e-3,
		MinDistance:        1.0,
		Padding:            20,
		RegionHops:         2,
	}
}

// Engine runs force-directed layout. It is stateless between calls; all
// simulation state lives in a per-call arena.
type Engine struct {
	config *Config
}

// NewEngine creates a layout engine
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// simNode is one arena slot. Velocity exists only during simulation.
type simNode struct {
	id     valueobjects.ItemID
	x, y   float64
	vx, vy float64
	pinned bool
}

// simEdge references arena slots by index
type simEdge struct {
	a, b   int
	weight float64
}

// Layout computes positions for every node in the graph. Previously
// positioned nodes start from their last known position so the map stays
// visually continuous; new nodes are seeded deterministically on a circle.
func (e *Engine) Layout(
	graph *aggregates.RelationshipGraph,
	initial map[valueobjects.ItemID]valueobjects.Position,
	bounds valueobjects.Bounds,
) map[valueobjects.ItemID]valueobjects.Position {
	if graph == nil || graph.NodeCount() == 0 {
		return map[valueobjects.ItemID]valueobjects.Position{}
	}
	if graph.NodeCount() == 1 {
		id := graph.NodeIDs()[0]
		return map[valueobjects.ItemID]valueobjects.Position{id: bounds.Center()}
	}

	arena, edges := e.buildArena(graph, initial, bounds, nil)
	e.simulate(arena, edges, bounds, e.config.MaxIterations)
	return collectPositions(arena)
}

// buildArena assembles simulation state. frozen marks ids held fixed as
// anchors on top of user-pinned nodes (used by incremental relayout).
func (e *Engine) buildArena(
	graph *aggregates.RelationshipGraph,
	initial map[valueobjects.ItemID]valueobjects.Position,
	bounds valueobjects.Bounds,
	frozen map[valueobjects.ItemID]struct{},
) ([]simNode, []simEdge) {
	ids := graph.NodeIDs()
	index := make(map[valueobjects.ItemID]int, len(ids))
	arena := make([]simNode, len(ids))

	center := bounds.Center()
	radius := math.Min(bounds.Width(), bounds.Height()) * 0.35
	unseeded := 0
	for _, id := range ids {
		if _, ok := initial[id]; !ok {
			unseeded++
		}
	}

	seedSlot := 0
	for i, id := range ids {
		node := graph.Node(id)
		pinned := node.Pinned()
		if frozen != nil {
			if _, hold := frozen[id]; hold {
				pinned = true
			}
		}

		var pos valueobjects.Position
		if p, ok := initial[id]; ok {
			pos = bounds.Clamp(p, e.config.Padding)
		} else {
			// deterministic circular seeding in sorted id order
			angle := 2 * math.Pi * float64(seedSlot) / float64(maxInt(unseeded, 1))
			seedSlot++
			pos = bounds.Clamp(mustPosition(
				center.X()+radius*math.Cos(angle),
				center.Y()+radius*math.Sin(angle),
			), e.config.Padding)
		}

		arena[i] = simNode{id: id, x: pos.X(), y: pos.Y(), pinned: pinned}
		index[id] = i
	}

	graphEdges := graph.Edges()
	edges := make([]simEdge, 0, len(graphEdges))
	for _, edge := range graphEdges {
		a, okA := index[edge.SourceID()]
		b, okB := index[edge.TargetID()]
		if !okA || !okB {
			continue
		}
		edges = append(edges, simEdge{a: a, b: b, weight: edge.Confidence()})
	}
	return arena, edges
}

// simulate runs the iterative force loop until the iteration budget is spent
// or kinetic energy drops below the convergence epsilon
func (e *Engine) simulate(arena []simNode, edges []simEdge, bounds valueobjects.Bounds, iterations int) {
	cfg := e.config
	n := len(arena)
	fx := make([]float64, n)
	fy := make([]float64, n)
	center := bounds.Center()

	for iter := 0; iter < iterations; iter++ {
		for i := range fx {
			fx[i] = 0
			fy[i] = 0
		}

		// pairwise repulsion; pinned nodes still push others
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := arena[j].x - arena[i].x
				dy := arena[j].y - arena[i].y
				dist := math.Hypot(dx, dy)
				if dist < 1e-12 {
					// coincident nodes: separate along a deterministic angle
					angle := float64(i*31+j) * 0.7
					dx = math.Cos(angle)
					dy = math.Sin(angle)
					dist = 1
				}
				if dist < cfg.MinDistance {
					dist = cfg.MinDistance
				}
				force := cfg.RepulsionStrength / (dist * dist)
				ux := dx / dist
				uy := dy / dist
				fx[i] -= force * ux
				fy[i] -= force * uy
				fx[j] += force * ux
				fy[j] += force * uy
			}
		}

		// attraction along edges, proportional to confidence and stretch
		for _, edge := range edges {
			dx := arena[edge.b].x - arena[edge.a].x
			dy := arena[edge.b].y - arena[edge.a].y
			dist := math.Hypot(dx, dy)
			if dist < cfg.MinDistance {
				dist = cfg.MinDistance
			}
			force := cfg.AttractionStrength * edge.weight * (dist - cfg.IdealEdgeLength)
			ux := dx / dist
			uy := dy / dist
			fx[edge.a] += force * ux
			fy[edge.a] += force * uy
			fx[edge.b] -= force * ux
			fy[edge.b] -= force * uy
		}

		// weak centering keeps disconnected components in frame
		for i := 0; i < n; i++ {
			fx[i] += cfg.CenteringStrength * (center.X() - arena[i].x)
			fy[i] += cfg.CenteringStrength * (center.Y() - arena[i].y)
		}

		// integrate, damp, clamp; pinned nodes do not move
		energy := 0.0
		for i := 0; i < n; i++ {
			if arena[i].pinned {
				arena[i].vx = 0
				arena[i].vy = 0
				continue
			}
			arena[i].vx = (arena[i].vx + fx[i]) * cfg.Damping
			arena[i].vy = (arena[i].vy + fy[i]) * cfg.Damping
			arena[i].x += arena[i].vx
			arena[i].y += arena[i].vy

			clamped := bounds.Clamp(mustPosition(arena[i].x, arena[i].y), cfg.Padding)
			if clamped.X() != arena[i].x {
				arena[i].vx = 0
			}
			if clamped.Y() != arena[i].y {
				arena[i].vy = 0
			}
			arena[i].x = clamped.X()
			arena[i].y = clamped.Y()

			energy += arena[i].vx*arena[i].vx + arena[i].vy*arena[i].vy
		}

		if energy < cfg.EnergyEpsilon {
			break
		}
	}
}

func collectPositions(arena []simNode) map[valueobjects.ItemID]valueobjects.Position {
	out := make(map[valueobjects.ItemID]valueobjects.Position, len(arena))
	for i := range arena {
		out[arena[i].id] = mustPosition(arena[i].x, arena[i].y)
	}
	return out
}

// mustPosition builds a position from simulation coordinates, which are kept
// finite by clamping on every step
func mustPosition(x, y float64) valueobjects.Position {
	p, err := valueobjects.NewPosition(x, y)
	if err != nil {
		p, _ = valueobjects.NewPosition(0, 0)
	}
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
