package app

import (
	"context"
	"fmt"
	"time"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/domain/run"
	"aigovern/internal"
	"aigovern/internal/errors"
	"aigovern/ports"
)

// DispatcherConfig tunes the run retry policy
type DispatcherConfig struct {
	WorkerID       string
	MaxAttempts    int           // total attempts per run, including the first
	InitialBackoff time.Duration // doubled after each failed attempt
	MaxBackoff     time.Duration
}

// DefaultDispatcherConfig returns the standard retry policy
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerID:       "worker-1",
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     time.Minute,
	}
}

// Dispatcher bridges the job queue and the test executor. One invocation
// owns exactly one test run; parallelism exists only across runs.
type Dispatcher struct {
	executor *Executor
	runs     ports.RunRepository
	results  ports.ResultRepository
	assets   ports.AssetRepository
	models   ports.ModelResolver
	datasets ports.DatasetResolver
	notifier ports.CompletionNotifier
	logger   *internal.Logger
	cfg      DispatcherConfig
}

// NewDispatcher wires a dispatcher over its collaborating ports
func NewDispatcher(
	executor *Executor,
	runs ports.RunRepository,
	results ports.ResultRepository,
	assets ports.AssetRepository,
	models ports.ModelResolver,
	datasets ports.DatasetResolver,
	notifier ports.CompletionNotifier,
	logger *internal.Logger,
	cfg DispatcherConfig,
) *Dispatcher {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	return &Dispatcher{
		executor: executor,
		runs:     runs,
		results:  results,
		assets:   assets,
		models:   models,
		datasets: datasets,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// ExecuteTestRun loads a test run, executes its battery and persists the
// outcome. It is the single orchestration core behind both the queued and
// the direct-call entry points. Returns true iff the run reached completed
// with at least one passed test.
//
// The whole battery is retried on run-level failure with exponential
// backoff; the run stays in running until retries are exhausted, then is
// left failed. Individual failing tests never trigger a retry.
func (d *Dispatcher) ExecuteTestRun(ctx context.Context, runID core.RunID) (bool, error) {
	r, err := d.runs.GetRun(ctx, runID)
	if err != nil {
		return false, errors.Wrapf(err, "load test run %s", runID)
	}
	if r.Status == run.StatusCancelled {
		d.logger.Info("run %s was cancelled before dispatch, skipping", runID)
		return false, nil
	}
	if err := r.Start(); err != nil {
		return false, errors.Wrapf(err, "start test run %s", runID)
	}
	r.RecordWorker(d.cfg.WorkerID, 1)
	if err := d.runs.SaveRun(ctx, r); err != nil {
		return false, errors.Wrapf(err, "persist running state for %s", runID)
	}
	d.logger.Info("run %s started on %s", runID, d.cfg.WorkerID)

	var lastErr error
	backoff := d.cfg.InitialBackoff
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		summary, err := d.runBattery(ctx, r)
		if err == nil {
			if err := r.Complete(); err != nil {
				return false, err
			}
			if saveErr := d.runs.SaveRun(ctx, r); saveErr != nil {
				return false, errors.Wrapf(saveErr, "persist completed state for %s", runID)
			}
			d.logger.Info("run %s completed: %d/%d tests passed", runID, summary.PassedTests, summary.TotalTests)
			d.notify(ctx, r, summary)
			return summary.PassedTests > 0, nil
		}

		lastErr = err
		d.logger.Error("run %s attempt %d/%d failed: %v", runID, attempt, d.cfg.MaxAttempts, err)
		if attempt == d.cfg.MaxAttempts {
			break
		}
		if err := sleepContext(ctx, backoff); err != nil {
			lastErr = err
			break
		}
		backoff *= 2
		if d.cfg.MaxBackoff > 0 && backoff > d.cfg.MaxBackoff {
			backoff = d.cfg.MaxBackoff
		}
		r.RecordWorker(d.cfg.WorkerID, attempt+1)
		if err := d.runs.SaveRun(ctx, r); err != nil {
			lastErr = errors.Wrapf(err, "persist retry state for %s", runID)
			break
		}
	}

	if err := r.Fail(lastErr.Error()); err != nil {
		return false, err
	}
	if err := d.runs.SaveRun(ctx, r); err != nil {
		return false, errors.Wrapf(err, "persist failed state for %s", runID)
	}
	d.logger.Error("run %s left failed after %d attempts: %v", runID, d.cfg.MaxAttempts, lastErr)
	d.notify(ctx, r, govtest.Summary{})
	return false, lastErr
}

// runBattery resolves the run's references and executes the effective test
// set sequentially, persisting each result as it arrives so partial
// progress survives a crash. Any error returned here is a run-level
// failure; per-test failures are absorbed into failed results.
func (d *Dispatcher) runBattery(ctx context.Context, r *run.TestRun) (govtest.Summary, error) {
	modelAsset, err := d.assets.GetModelAsset(ctx, r.ModelAssetID)
	if err != nil {
		return govtest.Summary{}, errors.Wrapf(err, "resolve model asset %s", r.ModelAssetID)
	}
	model, err := d.models.Resolve(*modelAsset)
	if err != nil {
		return govtest.Summary{}, errors.Wrapf(err, "load model %s", modelAsset.ID)
	}

	table := dataset.NewTable("empty")
	if r.DatasetAssetID != nil {
		datasetAsset, err := d.assets.GetDatasetAsset(ctx, *r.DatasetAssetID)
		if err != nil {
			return govtest.Summary{}, errors.Wrapf(err, "resolve dataset asset %s", *r.DatasetAssetID)
		}
		table, err = d.datasets.Resolve(*datasetAsset)
		if err != nil {
			return govtest.Summary{}, errors.Wrapf(err, "load dataset %s", datasetAsset.ID)
		}
		// Sensitivity may only escalate as data flows into the run
		r.ContainsPII = r.ContainsPII || datasetAsset.ContainsPII
		r.DataClassification = asset.Escalate(r.DataClassification, datasetAsset.DataClassification)
	}

	tests := d.effectiveTests(r, modelAsset.ModelType)
	if len(tests) == 0 {
		return govtest.Summary{}, fmt.Errorf("no applicable tests for model type %s", modelAsset.ModelType)
	}

	results := make([]govtest.TestResult, 0, len(tests))
	for _, name := range tests {
		cfg := r.Config.ConfigFor(name)
		result := d.executor.ExecuteSingle(ctx, name, model, table, cfg)
		result.RunID = r.ID
		result.Inherit(r.ContainsPII, r.DataClassification)
		if err := d.results.SaveResult(ctx, &result); err != nil {
			return govtest.Summary{}, errors.Wrapf(err, "persist result for test %s", name)
		}
		d.logger.Debug("run %s test %s: passed=%t", r.ID, name, result.Passed)
		results = append(results, result)
	}
	return d.executor.Summarize(results), nil
}

// effectiveTests determines which tests run: the explicit test_categories
// parameter, else the snapshotted plan config, filtered by the static
// compatibility table. Unknown or incompatible names are skipped with a
// logged warning, not a hard failure.
func (d *Dispatcher) effectiveTests(r *run.TestRun, modelType asset.ModelType) []govtest.TestName {
	var requested []govtest.TestName
	if categories := r.TestCategories(); len(categories) > 0 {
		for _, c := range categories {
			requested = append(requested, govtest.TestName(c))
		}
	} else {
		requested = r.Config.EnabledTests()
	}

	var out []govtest.TestName
	for _, name := range requested {
		if _, ok := d.executor.Registry().Adapter(name); !ok {
			d.logger.Warn("run %s: unknown test %q in configuration, skipping", r.ID, name)
			continue
		}
		if !d.executor.Registry().IsCompatible(name, modelType) {
			d.logger.Warn("run %s: test %s does not apply to model type %s, skipping", r.ID, name, modelType)
			continue
		}
		out = append(out, name)
	}
	return out
}

// notify triggers the completion notification; delivery failures are
// logged, never allowed to fail the run.
func (d *Dispatcher) notify(ctx context.Context, r *run.TestRun, summary govtest.Summary) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.NotifyCompletion(ctx, r, summary); err != nil {
		d.logger.Warn("completion notification for run %s failed: %v", r.ID, err)
	}
}

// sleepContext waits for the backoff duration or context cancellation
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
