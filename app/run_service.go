package app

import (
	"context"

	"aigovern/domain/core"
	"aigovern/domain/plan"
	"aigovern/domain/run"
	"aigovern/internal"
	"aigovern/internal/errors"
	"aigovern/ports"
)

// RunService creates and administers test runs. Execution itself belongs
// to the Dispatcher; this service only owns the pre-dispatch lifecycle.
type RunService struct {
	runs   ports.RunRepository
	assets ports.AssetRepository
	plans  ports.PlanRepository
	queue  ports.JobQueue
	logger *internal.Logger
}

// NewRunService wires a run service over its ports
func NewRunService(runs ports.RunRepository, assets ports.AssetRepository, plans ports.PlanRepository, queue ports.JobQueue, logger *internal.Logger) *RunService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &RunService{runs: runs, assets: assets, plans: plans, queue: queue, logger: logger}
}

// CreateRun builds a pending run for a model asset, snapshotting the plan
// config and copying the asset's sensitivity tags, then enqueues it.
func (s *RunService) CreateRun(ctx context.Context, modelAssetID core.AssetID, datasetAssetID *core.AssetID, planID *core.PlanID, params map[string]any) (*run.TestRun, error) {
	modelAsset, err := s.assets.GetModelAsset(ctx, modelAssetID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve model asset %s", modelAssetID)
	}

	var testPlan *plan.TestPlan
	if planID != nil {
		testPlan, err = s.plans.GetPlan(ctx, *planID)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve test plan %s", *planID)
		}
	}

	r := run.New(*modelAsset, datasetAssetID, testPlan, params)
	if err := s.runs.SaveRun(ctx, r); err != nil {
		return nil, errors.Wrap(err, "persist test run")
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, r.ID); err != nil {
			return nil, errors.Wrapf(err, "enqueue test run %s", r.ID)
		}
	}
	s.logger.Info("created run %s for model %s", r.ID, modelAssetID)
	return r, nil
}

// CancelRun cancels a pending run. Cancellation is only effective before a
// worker claims the run; a running battery cannot be interrupted.
func (s *RunService) CancelRun(ctx context.Context, runID core.RunID) error {
	r, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return errors.Wrapf(err, "load test run %s", runID)
	}
	if err := r.Cancel(); err != nil {
		return err
	}
	if err := s.runs.SaveRun(ctx, r); err != nil {
		return errors.Wrapf(err, "persist cancelled state for %s", runID)
	}
	s.logger.Info("run %s cancelled", runID)
	return nil
}

// GetRun loads a run by id
func (s *RunService) GetRun(ctx context.Context, runID core.RunID) (*run.TestRun, error) {
	return s.runs.GetRun(ctx, runID)
}
