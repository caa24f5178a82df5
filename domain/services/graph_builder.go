package services

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"screengraph-backend/domain/core/aggregates"
	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
	pkgerrors "screengraph-backend/pkg/errors"
)

// GraphBuilder turns a collection of content items into a relationship graph
type GraphBuilder interface {
	// Build scores item pairs and assembles a new graph snapshot. When an
	// existing graph and a dirty set are supplied, only pairs touching a
	// dirty item are rescored; edges entirely among clean items carry over.
	// Cancellation via ctx is cooperative and returns a Cancelled error.
	Build(
		ctx context.Context,
		items []*entities.ContentItem,
		existing *aggregates.RelationshipGraph,
		dirty map[valueobjects.ItemID]struct{},
		version uint64,
	) (*aggregates.RelationshipGraph, BuildStats, error)
}

// BuildStats reports what a build actually did, for status and metrics
type BuildStats struct {
	Items        int
	PairsScored  int
	EdgesCarried int
	EdgesTotal   int
	Incremental  bool
	Prefiltered  bool
	Duration     time.Duration
}

// BuilderConfig configures graph building
type BuilderConfig struct {
	// PrefilterThreshold is the collection size at which the builder stops
	// scoring all pairs and applies the blocking pre-filter instead
	PrefilterThreshold int

	// CandidateWindowDays is the temporal window used by the pre-filter;
	// pairs outside it must share an entity value to become candidates
	CandidateWindowDays float64

	// MaxCandidatePairs caps pre-filtered candidates; when exceeded, the
	// candidate window shrinks rather than the build failing
	MaxCandidatePairs int

	// Parallelism bounds concurrent scoring workers; 0 means GOMAXPROCS
	Parallelism int
}

// DefaultBuilderConfig returns default build configuration
func DefaultBuilderConfig() *BuilderConfig {
	return &BuilderConfig{
		PrefilterThreshold:  200,
		CandidateWindowDays: 14,
		MaxCandidatePairs:   250_000,
		Parallelism:         0,
	}
}

// DefaultGraphBuilder builds graphs with a relationship scorer and change tracker
type DefaultGraphBuilder struct {
	config  *BuilderConfig
	scorer  RelationshipScorer
	tracker ChangeTracker
}

// NewDefaultGraphBuilder creates a graph builder
func NewDefaultGraphBuilder(config *BuilderConfig, scorer RelationshipScorer, tracker ChangeTracker) *DefaultGraphBuilder {
	if config == nil {
		config = DefaultBuilderConfig()
	}
	if scorer == nil {
		scorer = NewDefaultRelationshipScorer(nil, nil)
	}
	if tracker == nil {
		tracker = NewDefaultChangeTracker()
	}
	return &DefaultGraphBuilder{config: config, scorer: scorer, tracker: tracker}
}

// pair is an unordered candidate pair, canonical i < j over sorted items
type pair struct {
	i, j int
}

// Build scores item pairs and assembles a new graph snapshot
func (b *DefaultGraphBuilder) Build(
	ctx context.Context,
	items []*entities.ContentItem,
	existing *aggregates.RelationshipGraph,
	dirty map[valueobjects.ItemID]struct{},
	version uint64,
) (*aggregates.RelationshipGraph, BuildStats, error) {
	started := time.Now()
	stats := BuildStats{}

	kept := make([]*entities.ContentItem, 0, len(items))
	for _, item := range items {
		if item == nil || item.ID().String() == "" {
			continue
		}
		kept = append(kept, item)
	}
	// sorted item order makes candidate enumeration and pair canonicalization
	// deterministic regardless of input order
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID() < kept[j].ID() })
	stats.Items = len(kept)

	fingerprint := b.tracker.GraphFingerprint(kept)

	nodes := make([]*entities.GraphNode, len(kept))
	present := make(map[valueobjects.ItemID]int, len(kept))
	for i, item := range kept {
		nodes[i] = entities.NewGraphNode(item.ID())
		present[item.ID()] = i
	}

	incremental := existing != nil && len(dirty) > 0
	stats.Incremental = incremental

	var carried []*entities.RelationshipEdge
	if incremental {
		for _, e := range existing.Edges() {
			if _, d := dirty[e.SourceID()]; d {
				continue
			}
			if _, d := dirty[e.TargetID()]; d {
				continue
			}
			// both endpoints clean; drop the edge anyway if either item left
			// the collection without being flagged
			if _, ok := present[e.SourceID()]; !ok {
				continue
			}
			if _, ok := present[e.TargetID()]; !ok {
				continue
			}
			carried = append(carried, e)
		}
	}
	stats.EdgesCarried = len(carried)

	pairs, prefiltered := b.candidatePairs(kept, dirty, incremental)
	stats.Prefiltered = prefiltered

	scored, err := b.scorePairs(ctx, kept, pairs)
	if err != nil {
		return nil, stats, err
	}
	stats.PairsScored = len(pairs)

	edges := append(carried, scored...)
	stats.EdgesTotal = len(edges)

	graph, err := aggregates.NewRelationshipGraph(nodes, edges, fingerprint, version)
	if err != nil {
		return nil, stats, pkgerrors.Wrap(err, "assembling relationship graph")
	}
	stats.Duration = time.Since(started)
	return graph, stats, nil
}

// candidatePairs enumerates the unordered pairs worth scoring. Small
// collections score every pair; large ones go through the blocking
// pre-filter. In incremental mode only pairs touching a dirty item survive.
func (b *DefaultGraphBuilder) candidatePairs(
	items []*entities.ContentItem,
	dirty map[valueobjects.ItemID]struct{},
	incremental bool,
) ([]pair, bool) {
	n := len(items)
	if n < 2 {
		return nil, false
	}

	touchesDirty := func(i, j int) bool {
		if !incremental {
			return true
		}
		if _, ok := dirty[items[i].ID()]; ok {
			return true
		}
		_, ok := dirty[items[j].ID()]
		return ok
	}

	if n <= b.config.PrefilterThreshold {
		pairs := make([]pair, 0, n*(n-1)/2)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if touchesDirty(i, j) {
					pairs = append(pairs, pair{i, j})
				}
			}
		}
		return pairs, false
	}

	window := b.config.CandidateWindowDays
	pairs := b.blockedPairs(items, window, touchesDirty)
	// resource pressure: shrink the candidate window instead of failing
	for len(pairs) > b.config.MaxCandidatePairs && window > 1 {
		window /= 2
		pairs = b.blockedPairs(items, window, touchesDirty)
	}
	return pairs, true
}

// blockedPairs generates candidates that share at least one entity value or
// fall within the temporal window
func (b *DefaultGraphBuilder) blockedPairs(
	items []*entities.ContentItem,
	windowDays float64,
	touchesDirty func(i, j int) bool,
) []pair {
	seen := make(map[pair]struct{})
	add := func(i, j int) {
		if i == j {
			return
		}
		if i > j {
			i, j = j, i
		}
		p := pair{i, j}
		if _, dup := seen[p]; dup {
			return
		}
		if touchesDirty(i, j) {
			seen[p] = struct{}{}
		}
	}

	// block on shared entity values
	byValue := make(map[string][]int)
	for i, item := range items {
		for _, e := range item.Entities() {
			if !e.IsWellFormed() {
				continue
			}
			key := string(e.Kind) + "\x1f" + normalizeEntityValue(e.Value)
			byValue[key] = append(byValue[key], i)
		}
	}
	for _, indices := range byValue {
		for x := 0; x < len(indices); x++ {
			for y := x + 1; y < len(indices); y++ {
				add(indices[x], indices[y])
			}
		}
	}

	// block on temporal adjacency: items are sorted by id, so sort an index
	// view by capture time and sweep the window
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool {
		return items[order[x]].CapturedAt().Before(items[order[y]].CapturedAt())
	})
	window := time.Duration(windowDays * 24 * float64(time.Hour))
	lo := 0
	for hi := 1; hi < len(order); hi++ {
		t := items[order[hi]].CapturedAt()
		for lo < hi && t.Sub(items[order[lo]].CapturedAt()) > window {
			lo++
		}
		for k := lo; k < hi; k++ {
			add(order[k], order[hi])
		}
	}

	pairs := make([]pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].i != pairs[y].i {
			return pairs[x].i < pairs[y].i
		}
		return pairs[x].j < pairs[y].j
	})
	return pairs
}

// scorePairs runs the scorer over candidate pairs with bounded parallelism,
// checking for cancellation between pairs
func (b *DefaultGraphBuilder) scorePairs(
	ctx context.Context,
	items []*entities.ContentItem,
	pairs []pair,
) ([]*entities.RelationshipEdge, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	workers := b.config.Parallelism
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	var mu sync.Mutex
	var edges []*entities.RelationshipEdge

	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(pairs) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > len(pairs) {
			end = len(pairs)
		}
		if start >= end {
			break
		}
		part := pairs[start:end]
		g.Go(func() error {
			local := make([]*entities.RelationshipEdge, 0, len(part)/8+1)
			for _, p := range part {
				select {
				case <-gctx.Done():
					return pkgerrors.NewCancelled("graph build cancelled")
				default:
				}
				if edge := b.scorer.Score(items[p.i], items[p.j]); edge != nil {
					local = append(local, edge)
				}
			}
			mu.Lock()
			edges = append(edges, local...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return edges, nil
}
