package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealposter/internal/model"
)

func TestMemoryRunStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore(10)

	run := &model.Run{ID: "run-1", TriggeredBy: "schedule", Status: model.RunStatusRunning, StartedAt: time.Now()}
	require.NoError(t, store.Create(ctx, run))

	run.Brands = model.BrandOutcomes{{Brand: "肯德基", Rendered: true, Delivered: 2}}
	run.Finish(model.RunStatusCompleted, run.StartedAt.Add(1500*time.Millisecond))
	require.NoError(t, store.Complete(ctx, run))

	found, err := store.FindByID(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.RunStatusCompleted, found.Status)
	require.NotNil(t, found.Duration)
	assert.Equal(t, int64(1500), *found.Duration)
	assert.Len(t, found.Brands, 1)

	missing, err := store.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryRunStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore(3)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("run-%d", i)
		require.NoError(t, store.Create(ctx, &model.Run{ID: id}))
		require.NoError(t, store.AddDelivery(ctx, model.DeliveryRecord{RunID: id, Destination: "g1"}))
	}

	runs, err := store.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-2", runs[2].ID)

	evicted, err := store.FindDeliveries(ctx, "run-0")
	require.NoError(t, err)
	assert.Empty(t, evicted)

	kept, err := store.FindDeliveries(ctx, "run-4")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestMemoryRunStore_FindRecentLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore(0)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Create(ctx, &model.Run{ID: fmt.Sprintf("run-%d", i)}))
	}

	runs, err := store.FindRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunFail(t *testing.T) {
	start := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	run := &model.Run{StartedAt: start}

	run.Fail(fmt.Errorf("source down"), start.Add(time.Second))

	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, "source down", *run.Error)
}

func TestMigrationsCoverRunTables(t *testing.T) {
	var joined string
	for _, m := range migrations {
		joined += m
	}
	assert.Contains(t, joined, "report_runs")
	assert.Contains(t, joined, "report_deliveries")
}
