package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/govtest"
	"aigovern/domain/plan"
	"aigovern/domain/run"
	"aigovern/internal/testkit"
)

func newServiceFixture(t *testing.T) (*RunService, *testkit.Kit, asset.ModelAsset) {
	t.Helper()
	kit := testkit.NewKit()
	modelAsset := asset.ModelAsset{
		ID:                 core.AssetID(core.NewID()),
		OrgID:              core.OrgID(core.NewID()),
		Name:               "credit-scorer",
		ModelType:          asset.ModelTabular,
		ContainsPII:        true,
		DataClassification: asset.ClassificationConfidential,
	}
	kit.Assets.PutModelAsset(modelAsset)
	svc := NewRunService(kit.Runs, kit.Assets, kit.Plans, kit.Queue, nil)
	return svc, kit, modelAsset
}

func TestCreateRun_PersistsAndEnqueues(t *testing.T) {
	svc, kit, modelAsset := newServiceFixture(t)
	ctx := context.Background()

	r, err := svc.CreateRun(ctx, modelAsset.ID, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, run.StatusPending, r.Status)
	assert.True(t, r.ContainsPII)

	stored, err := kit.Runs.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)

	require.Len(t, kit.Queue.Enqueued, 1)
	assert.Equal(t, r.ID, kit.Queue.Enqueued[0])
}

func TestCreateRun_SnapshotsPlan(t *testing.T) {
	svc, kit, modelAsset := newServiceFixture(t)
	ctx := context.Background()

	testPlan := &plan.TestPlan{
		ID:        core.PlanID(core.NewID()),
		OrgID:     modelAsset.OrgID,
		Name:      "tabular-standard",
		ModelType: asset.ModelTabular,
		Config: plan.BatteryConfig{
			govtest.TestFairness: {
				Enabled:    true,
				Parameters: map[string]any{"sensitive_attribute": "group"},
			},
		},
	}
	require.NoError(t, kit.Plans.SavePlan(ctx, testPlan))

	r, err := svc.CreateRun(ctx, modelAsset.ID, nil, &testPlan.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, r.PlanID)
	assert.Equal(t, testPlan.ID, *r.PlanID)

	// The run holds its own copy of the plan config
	testPlan.Config[govtest.TestFairness].Parameters["sensitive_attribute"] = "edited"
	assert.Equal(t, "group", r.Config[govtest.TestFairness].Parameters["sensitive_attribute"])
}

func TestCreateRun_UnknownModelAsset(t *testing.T) {
	svc, _, _ := newServiceFixture(t)
	_, err := svc.CreateRun(context.Background(), core.AssetID(core.NewID()), nil, nil, nil)
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}

func TestCreateRun_UnknownPlan(t *testing.T) {
	svc, _, modelAsset := newServiceFixture(t)
	missing := core.PlanID(core.NewID())
	_, err := svc.CreateRun(context.Background(), modelAsset.ID, nil, &missing, nil)
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}

func TestCancelRun_Pending(t *testing.T) {
	svc, kit, modelAsset := newServiceFixture(t)
	ctx := context.Background()

	r, err := svc.CreateRun(ctx, modelAsset.ID, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.CancelRun(ctx, r.ID))

	stored, _ := kit.Runs.GetRun(ctx, r.ID)
	assert.Equal(t, run.StatusCancelled, stored.Status)
}

func TestCancelRun_RunningRejected(t *testing.T) {
	svc, kit, modelAsset := newServiceFixture(t)
	ctx := context.Background()

	r, err := svc.CreateRun(ctx, modelAsset.ID, nil, nil, nil)
	require.NoError(t, err)

	loaded, _ := kit.Runs.GetRun(ctx, r.ID)
	require.NoError(t, loaded.Start())
	require.NoError(t, kit.Runs.SaveRun(ctx, loaded))

	err = svc.CancelRun(ctx, r.ID)
	require.Error(t, err)
	assert.True(t, core.IsLifecycleError(err))

	stored, _ := kit.Runs.GetRun(ctx, r.ID)
	assert.Equal(t, run.StatusRunning, stored.Status, "rejected cancellation must not change state")
}
