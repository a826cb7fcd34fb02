package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aigovern/app"
	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/run"
	"aigovern/internal/testkit"
)

func newQueueFixture(t *testing.T) (*Queue, *testkit.Kit, asset.ModelAsset) {
	t.Helper()
	kit := testkit.NewKit()
	modelAsset := asset.ModelAsset{
		ID:                 core.AssetID(core.NewID()),
		OrgID:              core.OrgID(core.NewID()),
		ModelType:          asset.ModelTabular,
		DataClassification: asset.ClassificationInternal,
	}
	kit.Assets.PutModelAsset(modelAsset)
	kit.Models.Put(modelAsset.ID, &testkit.ThresholdModel{Threshold: 0.5})

	executor := app.NewExecutor(app.NewRegistry(), nil)
	dispatcher := app.NewDispatcher(executor, kit.Runs, kit.Results, kit.Assets,
		kit.Models, kit.Datasets, kit.Notifier, nil, app.DispatcherConfig{
			WorkerID:       "queue-test",
			MaxAttempts:    1,
			InitialBackoff: time.Millisecond,
		})
	q := New(dispatcher, 2, 8, nil)
	return q, kit, modelAsset
}

func TestQueue_ExecutesEnqueuedRun(t *testing.T) {
	q, kit, modelAsset := newQueueFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := run.New(modelAsset, nil, nil, map[string]any{
		"test_categories": []any{"privacy_test"},
	})
	require.NoError(t, kit.Runs.SaveRun(ctx, r))
	require.NoError(t, q.Enqueue(ctx, r.ID))

	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	// The dispatcher marks the run terminal once the battery finishes
	deadline := time.After(5 * time.Second)
	for {
		stored, err := kit.Runs.GetRun(ctx, r.ID)
		require.NoError(t, err)
		if stored.Status.IsTerminal() {
			assert.Equal(t, run.StatusCompleted, stored.Status)
			break
		}
		select {
		case <-deadline:
			t.Fatalf("run never reached a terminal state, status = %s", stored.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestQueue_EnqueueFullBuffer(t *testing.T) {
	q, _, _ := newQueueFixture(t)
	q.jobs = make(chan core.RunID, 1)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, core.RunID(core.NewID())))
	err := q.Enqueue(ctx, core.RunID(core.NewID()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}

func TestQueue_RunStopsOnCancel(t *testing.T) {
	q, _, _ := newQueueFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
