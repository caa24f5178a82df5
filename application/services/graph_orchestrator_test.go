package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"screengraph-backend/domain/core/entities"
	"screengraph-backend/domain/core/valueobjects"
	"screengraph-backend/domain/layout"
	domainservices "screengraph-backend/domain/services"
	"screengraph-backend/infrastructure/persistence/memory"
	pkgerrors "screengraph-backend/pkg/errors"
)

func newTestOrchestrator(t *testing.T, debounce time.Duration) *GraphOrchestrator {
	t.Helper()
	bounds, err := valueobjects.NewBounds(0, 0, 1600, 1200)
	require.NoError(t, err)
	cfg := &OrchestratorConfig{
		Collection:     "default",
		DebounceWindow: debounce,
		Bounds:         bounds,
	}
	o := NewGraphOrchestrator(
		cfg,
		domainservices.NewDefaultGraphBuilder(nil, nil, nil),
		domainservices.NewDefaultChangeTracker(),
		layout.NewEngine(nil),
		memory.NewLayoutCacheStore(),
		nil,
		zap.NewNop(),
		nil,
	)
	t.Cleanup(o.Close)
	return o
}

func orchestratorItems(t *testing.T) []*entities.ContentItem {
	t.Helper()
	day := time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC)
	make := func(id string, at time.Time, org string) *entities.ContentItem {
		item, err := entities.NewContentItem(valueobjects.ItemID(id), at, []entities.Entity{
			{Kind: entities.EntityKindOrganization, Value: org, Confidence: 0.9},
		}, "")
		require.NoError(t, err)
		return item
	}
	return []*entities.ContentItem{
		make("receipt", day, "marriott"),
		make("confirmation", day.Add(time.Hour), "marriott"),
		make("boarding-pass", day.Add(2*time.Hour), "delta"),
	}
}

func TestOrchestrator_EagerRebuild(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour) // debounce never fires on its own
	items := orchestratorItems(t)

	require.NoError(t, o.UpsertItems(items))
	require.NoError(t, o.RebuildNow(context.Background()))

	status := o.Status()
	assert.Equal(t, GraphStateReady, status.State)
	assert.Equal(t, uint64(1), status.Version)
	assert.Equal(t, 3, status.NodeCount)
	assert.GreaterOrEqual(t, status.EdgeCount, 1, "the two marriott items should connect")
	assert.Equal(t, 0, status.DirtyCount)

	positions, err := o.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 3)
	for id, p := range positions {
		assert.GreaterOrEqual(t, p.X(), 0.0, "node %s out of bounds", id)
		assert.LessOrEqual(t, p.X(), 1600.0, "node %s out of bounds", id)
	}
}

func TestOrchestrator_UnchangedUpsertDoesNotDirty(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)
	items := orchestratorItems(t)

	require.NoError(t, o.UpsertItems(items))
	require.NoError(t, o.RebuildNow(context.Background()))
	require.Equal(t, uint64(1), o.Status().Version)

	// re-importing identical data must not schedule another build
	require.NoError(t, o.UpsertItems(items))
	assert.Equal(t, 0, o.Status().DirtyCount)

	require.NoError(t, o.RebuildNow(context.Background()))
	assert.Equal(t, uint64(1), o.Status().Version, "a clean rebuild request is a no-op")
}

func TestOrchestrator_UpsertMarksOnlyChangedAndNew(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)
	items := orchestratorItems(t)

	require.NoError(t, o.UpsertItems(items))
	require.NoError(t, o.RebuildNow(context.Background()))
	require.Equal(t, 0, o.Status().DirtyCount)

	modified, err := entities.NewContentItem("receipt", items[0].CapturedAt(), []entities.Entity{
		{Kind: entities.EntityKindOrganization, Value: "hilton", Confidence: 0.9},
	}, "")
	require.NoError(t, err)
	fresh, err := entities.NewContentItem("itinerary", items[0].CapturedAt(), nil, "day one plan")
	require.NoError(t, err)

	// a mixed batch: one changed, one brand new, one identical re-import
	require.NoError(t, o.UpsertItems([]*entities.ContentItem{modified, fresh, items[1]}))
	assert.Equal(t, 2, o.Status().DirtyCount, "only the changed and new items are dirty")
}

func TestOrchestrator_UpsertValidation(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)

	err := o.UpsertItems(nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestOrchestrator_DeleteItem(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)
	items := orchestratorItems(t)

	require.NoError(t, o.UpsertItems(items))
	require.NoError(t, o.RebuildNow(context.Background()))

	require.NoError(t, o.DeleteItem("receipt"))
	require.NoError(t, o.RebuildNow(context.Background()))

	graph := o.Snapshot()
	assert.Equal(t, 2, graph.NodeCount())
	assert.False(t, graph.HasNode("receipt"))

	err := o.DeleteItem("never-existed")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestOrchestrator_PinMoveUnpin(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, o.UpsertItems(orchestratorItems(t)))
	require.NoError(t, o.RebuildNow(ctx))

	target, err := valueobjects.NewPosition(800, 600)
	require.NoError(t, err)

	// moving an unpinned node is a conflict
	err = o.MoveNode("receipt", target)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	require.NoError(t, o.PinNode("receipt"))
	require.NoError(t, o.MoveNode("receipt", target))

	snapshot := o.Snapshot()
	assert.True(t, snapshot.Node("receipt").Pinned())
	assert.True(t, snapshot.Node("receipt").Position().Equals(target))

	require.NoError(t, o.UnpinNode(ctx, "receipt"))
	assert.False(t, o.Snapshot().Node("receipt").Pinned())

	// unknown nodes are rejected on every hold operation
	assert.True(t, pkgerrors.IsNotFound(o.PinNode("ghost")))
	assert.True(t, pkgerrors.IsNotFound(o.UnpinNode(ctx, "ghost")))
	assert.True(t, pkgerrors.IsNotFound(o.MoveNode("ghost", target)))
}

func TestOrchestrator_MoveClampsToBounds(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, o.UpsertItems(orchestratorItems(t)))
	require.NoError(t, o.RebuildNow(ctx))
	require.NoError(t, o.PinNode("receipt"))

	outside, err := valueobjects.NewPosition(5000, -100)
	require.NoError(t, err)
	require.NoError(t, o.MoveNode("receipt", outside))

	p := o.Snapshot().Node("receipt").Position()
	assert.Equal(t, 1600.0, p.X())
	assert.Equal(t, 0.0, p.Y())
}

func TestOrchestrator_DebouncedBackgroundBuild(t *testing.T) {
	o := newTestOrchestrator(t, 20*time.Millisecond)

	require.NoError(t, o.UpsertItems(orchestratorItems(t)))
	assert.Equal(t, uint64(0), o.Status().Version, "build waits for the debounce window")

	require.Eventually(t, func() bool {
		return o.Status().Version == 1 && o.Status().State == GraphStateReady
	}, 2*time.Second, 10*time.Millisecond, "debounced build should land on its own")
}

func TestOrchestrator_NotifierPublishesLifecycle(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)
	events, unsubscribe := o.Notifier().Subscribe()
	defer unsubscribe()

	require.NoError(t, o.UpsertItems(orchestratorItems(t)))
	require.NoError(t, o.RebuildNow(context.Background()))

	var states []GraphState
	deadline := time.After(time.Second)
	for len(states) < 2 {
		select {
		case ev := <-events:
			states = append(states, ev.State)
		case <-deadline:
			t.Fatalf("timed out waiting for status events, got %v", states)
		}
	}
	assert.Equal(t, GraphStateOrganizing, states[0])
	assert.Equal(t, GraphStateReady, states[1])
}

func TestOrchestrator_ApplyTuningForcesRescore(t *testing.T) {
	o := newTestOrchestrator(t, time.Hour)
	require.NoError(t, o.UpsertItems(orchestratorItems(t)))
	require.NoError(t, o.RebuildNow(context.Background()))
	require.Equal(t, 0, o.Status().DirtyCount)

	o.ApplyTuning(
		domainservices.NewDefaultGraphBuilder(nil, nil, nil),
		layout.NewEngine(nil),
	)
	assert.Equal(t, 3, o.Status().DirtyCount, "weights changed, every item needs rescoring")

	require.NoError(t, o.RebuildNow(context.Background()))
	assert.Equal(t, uint64(2), o.Status().Version)
	assert.Equal(t, 0, o.Status().DirtyCount)
}
