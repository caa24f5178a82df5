package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"screengraph-backend/application/ports"
	"screengraph-backend/domain/core/aggregates"
	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
	"screengraph-backend/domain/layout"
	domainservices "screengraph-backend/domain/services"
	pkgerrors "screengraph-backend/pkg/errors"
	"screengraph-backend/pkg/observability"
)

const tracerName = "screengraph-backend/orchestrator"

// OrchestratorConfig configures the graph orchestrator
type OrchestratorConfig struct {
	// Collection names the item collection; it keys the layout cache
	Collection string

	// DebounceWindow batches bursts of item changes into one rebuild
	DebounceWindow time.Duration

	// Bounds is the layout rectangle, sized from viewport hints
	Bounds valueobjects.Bounds
}

// DefaultOrchestratorConfig returns default orchestration settings
func DefaultOrchestratorConfig() *OrchestratorConfig {
	bounds, _ := valueobjects.NewBounds(0, 0, 1600, 1200)
	return &OrchestratorConfig{
		Collection:     "default",
		DebounceWindow: 2 * time.Second,
		Bounds:         bounds,
	}
}

// OrchestratorStatus is a point-in-time view of the collection state
type OrchestratorStatus struct {
	Collection  string
	State       GraphState
	Version     uint64
	Fingerprint valueobjects.Fingerprint
	NodeCount   int
	EdgeCount   int
	DirtyCount  int
	LastBuild   domainservices.BuildStats
}

// GraphOrchestrator owns the relationship graph for one collection. It is
// the single writer: builds are serialized and monotonically versioned, an
// in-flight build superseded by newer dirty items is cancelled and its
// result discarded, and the snapshot swap is atomic so readers always see a
// fully formed graph.
type GraphOrchestrator struct {
	config   *OrchestratorConfig
	builder  domainservices.GraphBuilder
	tracker  domainservices.ChangeTracker
	engine   *layout.Engine
	cache    ports.LayoutCacheStore
	notifier *Notifier
	logger   *zap.Logger
	metrics  *observability.Collector

	snapshot atomic.Pointer[aggregates.RelationshipGraph]

	mu             sync.Mutex
	items          map[valueobjects.ItemID]*entities.ContentItem
	fingerprints   map[valueobjects.ItemID]valueobjects.Fingerprint
	dirty          map[valueobjects.ItemID]struct{}
	pinned         map[valueobjects.ItemID]bool
	positions      map[valueobjects.ItemID]valueobjects.Position
	state          GraphState
	version        uint64
	buildSeq       uint64
	inflightCancel context.CancelFunc
	debounce       *time.Timer
	lastStats      domainservices.BuildStats

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// NewGraphOrchestrator creates an orchestrator for one collection
func NewGraphOrchestrator(
	config *OrchestratorConfig,
	builder domainservices.GraphBuilder,
	tracker domainservices.ChangeTracker,
	engine *layout.Engine,
	cache ports.LayoutCacheStore,
	notifier *Notifier,
	logger *zap.Logger,
	metrics *observability.Collector,
) *GraphOrchestrator {
	if config == nil {
		config = DefaultOrchestratorConfig()
	}
	if notifier == nil {
		notifier = NewNotifier()
	}
	if metrics == nil {
		metrics = observability.NewCollector("screengraph")
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())

	o := &GraphOrchestrator{
		config:       config,
		builder:      builder,
		tracker:      tracker,
		engine:       engine,
		cache:        cache,
		notifier:     notifier,
		logger:       logger,
		metrics:      metrics,
		items:        make(map[valueobjects.ItemID]*entities.ContentItem),
		fingerprints: make(map[valueobjects.ItemID]valueobjects.Fingerprint),
		dirty:        make(map[valueobjects.ItemID]struct{}),
		pinned:       make(map[valueobjects.ItemID]bool),
		positions:    make(map[valueobjects.ItemID]valueobjects.Position),
		state:        GraphStateIdle,
		baseCtx:      baseCtx,
		baseCancel:   baseCancel,
	}
	o.snapshot.Store(aggregates.EmptyRelationshipGraph(0))
	return o
}

// Notifier returns the staleness notifier for subscribers
func (o *GraphOrchestrator) Notifier() *Notifier {
	return o.notifier
}

// UpsertItems registers created or updated content items. Unchanged items
// (same fingerprint) are not marked dirty, so re-imports of identical data
// do not trigger rebuilds.
func (o *GraphOrchestrator) UpsertItems(items []*entities.ContentItem) error {
	if len(items) == 0 {
		return pkgerrors.NewValidation("no items supplied")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	kept := make([]*entities.ContentItem, 0, len(items))
	for _, item := range items {
		if item == nil || item.ID().String() == "" {
			o.logger.Warn("skipping malformed content item")
			continue
		}
		kept = append(kept, item)
	}

	// previous fingerprints restricted to the incoming ids; items absent from
	// this batch are not tombstones, they just were not re-imported
	previous := make(map[valueobjects.ItemID]valueobjects.Fingerprint, len(kept))
	for _, item := range kept {
		if fp, ok := o.fingerprints[item.ID()]; ok {
			previous[item.ID()] = fp
		}
	}
	changed := o.tracker.DetectDirty(previous, kept)

	for _, item := range kept {
		o.items[item.ID()] = item
	}
	for id := range changed {
		o.dirty[id] = struct{}{}
	}

	if len(changed) > 0 {
		o.scheduleRebuildLocked()
	}
	return nil
}

// DeleteItem tombstones an item; its edges disappear on the next build
func (o *GraphOrchestrator) DeleteItem(id valueobjects.ItemID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, known := o.items[id]; !known {
		if _, tracked := o.fingerprints[id]; !tracked {
			return pkgerrors.NewNotFound("item " + id.String() + " not found")
		}
	}
	delete(o.items, id)
	o.dirty[id] = struct{}{}
	o.scheduleRebuildLocked()
	return nil
}

// Snapshot returns the current graph with live position and pin state
// applied. The underlying snapshot is immutable and swapped atomically.
func (o *GraphOrchestrator) Snapshot() *aggregates.RelationshipGraph {
	graph := o.snapshot.Load()

	o.mu.Lock()
	positions := make(map[valueobjects.ItemID]valueobjects.Position, len(o.positions))
	for id, p := range o.positions {
		positions[id] = p
	}
	pinned := make(map[valueobjects.ItemID]bool, len(o.pinned))
	for id, p := range o.pinned {
		pinned[id] = p
	}
	o.mu.Unlock()

	return graph.WithNodeState(positions, pinned)
}

// Status reports the collection's build state
func (o *GraphOrchestrator) Status() OrchestratorStatus {
	graph := o.snapshot.Load()
	o.mu.Lock()
	defer o.mu.Unlock()
	return OrchestratorStatus{
		Collection:  o.config.Collection,
		State:       o.state,
		Version:     o.version,
		Fingerprint: graph.Fingerprint(),
		NodeCount:   graph.NodeCount(),
		EdgeCount:   graph.EdgeCount(),
		DirtyCount:  len(o.dirty),
		LastBuild:   o.lastStats,
	}
}

// RebuildNow is the eager path for foreground-triggered views: it runs any
// pending rebuild synchronously instead of waiting for the debounce window.
func (o *GraphOrchestrator) RebuildNow(ctx context.Context) error {
	o.mu.Lock()
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.mu.Unlock()
	return o.runBuild(ctx, "eager")
}

// Positions returns the current layout, restoring from cache when the
// fingerprint matches and recomputing otherwise. Pending item changes are
// flushed through the eager build path first.
func (o *GraphOrchestrator) Positions(ctx context.Context) (map[valueobjects.ItemID]valueobjects.Position, error) {
	o.mu.Lock()
	pending := len(o.dirty) > 0
	o.mu.Unlock()

	if pending {
		if err := o.RebuildNow(ctx); err != nil && !pkgerrors.IsCancelled(err) {
			return nil, err
		}
	}

	graph := o.snapshot.Load()
	if graph.NodeCount() == 0 {
		return map[valueobjects.ItemID]valueobjects.Position{}, nil
	}

	o.mu.Lock()
	covered := true
	for _, id := range graph.NodeIDs() {
		if _, ok := o.positions[id]; !ok {
			covered = false
			break
		}
	}
	o.mu.Unlock()

	if covered {
		return o.copyPositions(), nil
	}

	positions := o.computeLayout(ctx, graph, o.copyPositions(), nil)
	o.mu.Lock()
	o.positions = positions
	o.mu.Unlock()
	return o.copyPositions(), nil
}

// PinNode marks a node as user-held; it stops moving but keeps pushing others
func (o *GraphOrchestrator) PinNode(id valueobjects.ItemID) error {
	graph := o.snapshot.Load()
	if !graph.HasNode(id) {
		return pkgerrors.NewNotFound("node " + id.String() + " not in graph")
	}
	o.mu.Lock()
	o.pinned[id] = true
	o.mu.Unlock()
	return nil
}

// UnpinNode releases a dragged node and invalidates its cache region so the
// neighborhood resettles around the new position on the next layout read
func (o *GraphOrchestrator) UnpinNode(ctx context.Context, id valueobjects.ItemID) error {
	graph := o.snapshot.Load()
	if !graph.HasNode(id) {
		return pkgerrors.NewNotFound("node " + id.String() + " not in graph")
	}

	o.mu.Lock()
	delete(o.pinned, id)
	o.mu.Unlock()

	if err := o.cache.InvalidateRegion(ctx, o.config.Collection, []valueobjects.ItemID{id}); err != nil {
		o.logger.Warn("layout cache invalidation failed",
			zap.String("collection", o.config.Collection),
			zap.Error(err))
	}

	changed := map[valueobjects.ItemID]struct{}{id: {}}
	positions := o.relayoutRegion(ctx, graph, changed)
	o.mu.Lock()
	o.positions = positions
	o.mu.Unlock()
	return nil
}

// MoveNode records a drag update for a pinned node
func (o *GraphOrchestrator) MoveNode(id valueobjects.ItemID, pos valueobjects.Position) error {
	graph := o.snapshot.Load()
	if !graph.HasNode(id) {
		return pkgerrors.NewNotFound("node " + id.String() + " not in graph")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.pinned[id] {
		return pkgerrors.NewConflict("node " + id.String() + " is not pinned")
	}
	o.positions[id] = o.config.Bounds.Clamp(pos, 0)
	return nil
}

// ApplyTuning swaps in a rebuilt scorer/builder and layout engine after a
// tuning change. Item fingerprints do not change when weights do, so every
// item is marked dirty to force a full rescore on the next build.
func (o *GraphOrchestrator) ApplyTuning(builder domainservices.GraphBuilder, engine *layout.Engine) {
	o.mu.Lock()
	o.builder = builder
	o.engine = engine
	for id := range o.items {
		o.dirty[id] = struct{}{}
	}
	scheduled := len(o.items) > 0
	if scheduled {
		o.scheduleRebuildLocked()
	}
	o.mu.Unlock()

	if scheduled {
		o.logger.Info("tuning applied, full rescore scheduled",
			zap.String("collection", o.config.Collection))
	}
}

// Close stops background work. In-flight builds are cancelled.
func (o *GraphOrchestrator) Close() {
	o.mu.Lock()
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.mu.Unlock()
	o.baseCancel()
}

// scheduleRebuildLocked arms (or re-arms) the debounce timer. Caller holds mu.
func (o *GraphOrchestrator) scheduleRebuildLocked() {
	if o.debounce != nil {
		o.debounce.Reset(o.config.DebounceWindow)
		return
	}
	o.debounce = time.AfterFunc(o.config.DebounceWindow, func() {
		o.mu.Lock()
		o.debounce = nil
		o.mu.Unlock()
		if err := o.runBuild(o.baseCtx, "background"); err != nil && !pkgerrors.IsCancelled(err) {
			o.logger.Error("background graph build failed", zap.Error(err))
		}
	})
}

// runBuild executes one serialized build. A newer call supersedes an older
// in-flight one by cancelling it; a superseded build's result is discarded
// even if it completes, so an older rebuild can never clobber newer state.
func (o *GraphOrchestrator) runBuild(ctx context.Context, trigger string) error {
	o.mu.Lock()
	if len(o.dirty) == 0 && o.version > 0 {
		o.mu.Unlock()
		return nil
	}
	if o.inflightCancel != nil {
		o.inflightCancel()
	}
	buildCtx, cancel := context.WithCancel(ctx)
	o.inflightCancel = cancel
	o.buildSeq++
	seq := o.buildSeq

	itemsCopy := make([]*entities.ContentItem, 0, len(o.items))
	for _, item := range o.items {
		itemsCopy = append(itemsCopy, item)
	}
	dirtyCopy := make(map[valueobjects.ItemID]struct{}, len(o.dirty))
	for id := range o.dirty {
		dirtyCopy[id] = struct{}{}
	}
	prev := o.snapshot.Load()
	prevPositions := make(map[valueobjects.ItemID]valueobjects.Position, len(o.positions))
	for id, p := range o.positions {
		prevPositions[id] = p
	}
	o.state = GraphStateOrganizing
	o.mu.Unlock()

	o.notifier.Publish(StatusEvent{Collection: o.config.Collection, State: GraphStateOrganizing, Version: seq})

	buildID := uuid.New().String()
	tracer := otel.Tracer(tracerName)
	buildCtx, span := tracer.Start(buildCtx, "graph.build")
	span.SetAttributes(
		attribute.String("build.id", buildID),
		attribute.String("trigger", trigger),
		attribute.Int("items", len(itemsCopy)),
		attribute.Int("dirty", len(dirtyCopy)),
	)
	defer span.End()

	graph, stats, err := o.builder.Build(buildCtx, itemsCopy, prev, dirtyCopy, seq)
	if err != nil {
		mode := buildMode(stats)
		if pkgerrors.IsCancelled(err) || buildCtx.Err() != nil {
			o.metrics.ObserveBuild("cancelled", mode, stats.PairsScored, stats.Duration)
			o.logger.Debug("graph build superseded",
				zap.Uint64("version", seq),
				zap.String("trigger", trigger))
			return pkgerrors.NewCancelled("build superseded")
		}
		o.metrics.ObserveBuild("error", mode, stats.PairsScored, stats.Duration)
		return pkgerrors.Wrap(err, "graph build failed")
	}

	o.mu.Lock()
	if seq != o.buildSeq {
		// a newer build started while this one ran; discard
		o.mu.Unlock()
		return pkgerrors.NewCancelled("build superseded")
	}
	o.snapshot.Store(graph)
	o.version = seq
	o.lastStats = stats
	for _, item := range itemsCopy {
		o.fingerprints[item.ID()] = o.tracker.Fingerprint(item)
	}
	for id := range dirtyCopy {
		current, exists := o.items[id]
		if !exists {
			// tombstone fully applied
			delete(o.fingerprints, id)
			delete(o.positions, id)
			delete(o.pinned, id)
			delete(o.dirty, id)
			continue
		}
		if o.tracker.Fingerprint(current) == o.fingerprints[id] {
			delete(o.dirty, id)
		}
	}
	o.mu.Unlock()

	o.metrics.ObserveBuild("success", buildMode(stats), stats.PairsScored, stats.Duration)
	o.metrics.NodesCurrent.Set(float64(graph.NodeCount()))
	o.metrics.EdgesCurrent.Set(float64(graph.EdgeCount()))

	positions := o.computeLayout(buildCtx, graph, prevPositions, dirtyCopy)

	o.mu.Lock()
	if seq == o.buildSeq {
		o.positions = positions
		o.state = GraphStateReady
	}
	o.mu.Unlock()

	o.notifier.Publish(StatusEvent{Collection: o.config.Collection, State: GraphStateReady, Version: seq})
	o.logger.Info("graph build applied",
		zap.String("collection", o.config.Collection),
		zap.String("buildId", buildID),
		zap.Uint64("version", seq),
		zap.String("trigger", trigger),
		zap.Int("nodes", graph.NodeCount()),
		zap.Int("edges", graph.EdgeCount()),
		zap.Bool("incremental", stats.Incremental),
		zap.Duration("duration", stats.Duration))
	return nil
}

// computeLayout restores cached positions when the fingerprint matches,
// relayouts the stale or changed region when it can, and falls back to a
// full layout seeded from previous positions otherwise. The cache is only
// written after an uncancelled run.
func (o *GraphOrchestrator) computeLayout(
	ctx context.Context,
	graph *aggregates.RelationshipGraph,
	seed map[valueobjects.ItemID]valueobjects.Position,
	changed map[valueobjects.ItemID]struct{},
) map[valueobjects.ItemID]valueobjects.Position {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "graph.layout")
	defer span.End()

	entry, err := o.cache.Restore(ctx, o.config.Collection, graph.Fingerprint())
	if err != nil {
		o.logger.Warn("layout cache restore failed, recomputing",
			zap.String("collection", o.config.Collection),
			zap.Error(err))
		entry = nil
	}
	if entry != nil {
		if len(entry.StaleIDs) == 0 {
			o.metrics.CacheHits.Inc()
			return entry.Positions
		}
		// entry is trustworthy except for the stale region
		o.metrics.CacheHits.Inc()
		stale := make(map[valueobjects.ItemID]struct{}, len(entry.StaleIDs))
		for _, id := range entry.StaleIDs {
			stale[id] = struct{}{}
		}
		started := time.Now()
		positions := o.engine.RelayoutRegion(o.withPinState(graph), stale, entry.Positions, o.config.Bounds)
		o.metrics.ObserveLayout("region", time.Since(started))
		o.storeCache(ctx, graph, positions)
		return positions
	}

	o.metrics.CacheMisses.Inc()

	var positions map[valueobjects.ItemID]valueobjects.Position
	started := time.Now()
	if len(changed) > 0 && o.seedCovers(graph, seed, changed) {
		positions = o.engine.RelayoutRegion(o.withPinState(graph), changed, seed, o.config.Bounds)
		o.metrics.ObserveLayout("region", time.Since(started))
	} else {
		positions = o.engine.Layout(o.withPinState(graph), seed, o.config.Bounds)
		o.metrics.ObserveLayout("full", time.Since(started))
	}

	o.storeCache(ctx, graph, positions)
	return positions
}

// relayoutRegion resettles the neighborhood of the given ids
func (o *GraphOrchestrator) relayoutRegion(
	ctx context.Context,
	graph *aggregates.RelationshipGraph,
	changed map[valueobjects.ItemID]struct{},
) map[valueobjects.ItemID]valueobjects.Position {
	started := time.Now()
	positions := o.engine.RelayoutRegion(o.withPinState(graph), changed, o.copyPositions(), o.config.Bounds)
	o.metrics.ObserveLayout("region", time.Since(started))
	o.storeCache(ctx, graph, positions)
	return positions
}

// seedCovers reports whether every node outside the changed set already has
// a seed position, which is what region relayout needs for its anchors
func (o *GraphOrchestrator) seedCovers(
	graph *aggregates.RelationshipGraph,
	seed map[valueobjects.ItemID]valueobjects.Position,
	changed map[valueobjects.ItemID]struct{},
) bool {
	for _, id := range graph.NodeIDs() {
		if _, isChanged := changed[id]; isChanged {
			continue
		}
		if _, ok := seed[id]; !ok {
			return false
		}
	}
	return true
}

func (o *GraphOrchestrator) storeCache(
	ctx context.Context,
	graph *aggregates.RelationshipGraph,
	positions map[valueobjects.ItemID]valueobjects.Position,
) {
	if ctx.Err() != nil {
		return
	}
	entry := &ports.LayoutCacheEntry{
		Fingerprint: graph.Fingerprint(),
		Positions:   positions,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.cache.Store(ctx, o.config.Collection, entry); err != nil {
		o.logger.Warn("layout cache store failed",
			zap.String("collection", o.config.Collection),
			zap.Error(err))
	}
}

// withPinState projects live pin flags onto the immutable snapshot so the
// engine sees which nodes are user-held
func (o *GraphOrchestrator) withPinState(graph *aggregates.RelationshipGraph) *aggregates.RelationshipGraph {
	o.mu.Lock()
	pinned := make(map[valueobjects.ItemID]bool, len(o.pinned))
	for id, p := range o.pinned {
		pinned[id] = p
	}
	o.mu.Unlock()
	return graph.WithNodeState(nil, pinned)
}

func (o *GraphOrchestrator) copyPositions() map[valueobjects.ItemID]valueobjects.Position {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[valueobjects.ItemID]valueobjects.Position, len(o.positions))
	for id, p := range o.positions {
		out[id] = p
	}
	return out
}

func buildMode(stats domainservices.BuildStats) string {
	if stats.Incremental {
		return "incremental"
	}
	return "full"
}
