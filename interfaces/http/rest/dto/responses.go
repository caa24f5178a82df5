package dto

import (
	"time"

	appservices "screengraph-backend/application/services"
	"screengraph-backend/domain/core/aggregates"
	"screengraph-backend/domain/core/valueobjects"
)

// NodeDTO is one laid-out graph node
type NodeDTO struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
	Degree int     `json:"degree"`
}

// SignalsDTO exposes the per-signal score breakdown of an edge
type SignalsDTO struct {
	Entity   float64 `json:"entity"`
	Temporal float64 `json:"temporal"`
	Content  float64 `json:"content"`
}

// EdgeDTO is one relationship edge
type EdgeDTO struct {
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Type       string     `json:"type"`
	Confidence float64    `json:"confidence"`
	Signals    SignalsDTO `json:"signals"`
}

// GraphResponse is the body of GET /graph
type GraphResponse struct {
	Version     uint64    `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	BuiltAt     time.Time `json:"builtAt"`
	Nodes       []NodeDTO `json:"nodes"`
	Edges       []EdgeDTO `json:"edges"`
}

// PositionDTO is one node coordinate pair
type PositionDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PositionsResponse is the body of GET /graph/positions
type PositionsResponse struct {
	Positions map[string]PositionDTO `json:"positions"`
}

// StatusResponse is the body of GET /graph/status
type StatusResponse struct {
	Collection  string `json:"collection"`
	State       string `json:"state"`
	Version     uint64 `json:"version"`
	Fingerprint string `json:"fingerprint,omitempty"`
	NodeCount   int    `json:"nodeCount"`
	EdgeCount   int    `json:"edgeCount"`
	DirtyCount  int    `json:"dirtyCount"`
	LastBuild   struct {
		Items       int    `json:"items"`
		PairsScored int    `json:"pairsScored"`
		EdgesTotal  int    `json:"edgesTotal"`
		Incremental bool   `json:"incremental"`
		Duration    string `json:"duration"`
	} `json:"lastBuild"`
}

// UpsertItemsResponse is the body of POST /items
type UpsertItemsResponse struct {
	Accepted int    `json:"accepted"`
	State    string `json:"state"`
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewGraphResponse projects a graph snapshot onto the wire shape
func NewGraphResponse(graph *aggregates.RelationshipGraph) GraphResponse {
	nodes := make([]NodeDTO, 0, graph.NodeCount())
	for _, n := range graph.Nodes() {
		nodes = append(nodes, NodeDTO{
			ID:     n.ID().String(),
			X:      n.Position().X(),
			Y:      n.Position().Y(),
			Pinned: n.Pinned(),
			Degree: n.Degree(),
		})
	}

	edges := make([]EdgeDTO, 0, graph.EdgeCount())
	for _, e := range graph.Edges() {
		breakdown := e.Breakdown()
		edges = append(edges, EdgeDTO{
			Source:     e.SourceID().String(),
			Target:     e.TargetID().String(),
			Type:       string(e.Type()),
			Confidence: e.Confidence(),
			Signals: SignalsDTO{
				Entity:   breakdown.Entity,
				Temporal: breakdown.Temporal,
				Content:  breakdown.Content,
			},
		})
	}

	return GraphResponse{
		Version:     graph.Version(),
		Fingerprint: graph.Fingerprint().String(),
		BuiltAt:     graph.BuiltAt(),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// NewPositionsResponse projects a positions map onto the wire shape
func NewPositionsResponse(positions map[valueobjects.ItemID]valueobjects.Position) PositionsResponse {
	out := make(map[string]PositionDTO, len(positions))
	for id, p := range positions {
		out[id.String()] = PositionDTO{X: p.X(), Y: p.Y()}
	}
	return PositionsResponse{Positions: out}
}

// NewStatusResponse projects orchestrator status onto the wire shape
func NewStatusResponse(status appservices.OrchestratorStatus) StatusResponse {
	resp := StatusResponse{
		Collection:  status.Collection,
		State:       string(status.State),
		Version:     status.Version,
		Fingerprint: status.Fingerprint.String(),
		NodeCount:   status.NodeCount,
		EdgeCount:   status.EdgeCount,
		DirtyCount:  status.DirtyCount,
	}
	resp.LastBuild.Items = status.LastBuild.Items
	resp.LastBuild.PairsScored = status.LastBuild.PairsScored
	resp.LastBuild.EdgesTotal = status.LastBuild.EdgesTotal
	resp.LastBuild.Incremental = status.LastBuild.Incremental
	resp.LastBuild.Duration = status.LastBuild.Duration.String()
	return resp
}
