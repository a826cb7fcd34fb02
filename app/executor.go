package app

import (
	"context"
	"fmt"
	"time"

	"aigovern/domain/asset"
	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/internal"
	"aigovern/ports"
)

// Executor runs individual tests through the registry with per-test
// isolation: an adapter error or panic becomes a failed TestResult and
// never aborts the rest of the run.
type Executor struct {
	registry *Registry
	logger   *internal.Logger
}

// NewExecutor creates a test executor over a registry
func NewExecutor(registry *Registry, logger *internal.Logger) *Executor {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Executor{registry: registry, logger: logger}
}

// Registry exposes the underlying registry (compatibility lookups)
func (e *Executor) Registry() *Registry { return e.registry }

// AvailableTests returns the test names applicable to a model type
func (e *Executor) AvailableTests(modelType asset.ModelType) []govtest.TestName {
	return e.registry.AvailableTests(modelType)
}

// ExecuteSingle resolves the adapter by name and invokes it. Adapter-level
// failures (including panics) are converted into a TestResult with
// passed=false and an error summary rather than propagated.
func (e *Executor) ExecuteSingle(ctx context.Context, name govtest.TestName, model ports.Model, ds *dataset.Table, cfg govtest.TestConfig) govtest.TestResult {
	adapter, ok := e.registry.Adapter(name)
	if !ok {
		e.logger.Warn("no adapter registered for test %s", name)
		return govtest.NewErrorResult(name, fmt.Errorf("unknown test %q", name))
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.executeIsolated(ctx, adapter, model, ds, cfg)
	duration := time.Since(start)

	if err != nil {
		e.logger.Warn("test %s failed to execute: %v", name, err)
		result = govtest.NewErrorResult(name, err)
	}
	result.RunID = "" // stamped by the dispatcher
	result.TestName = name
	result.Duration = duration
	result.Summary["execution_time_ms"] = duration.Milliseconds()
	result.Summary["status"] = string(result.Status)
	return result
}

// executeIsolated invokes the adapter, recovering panics into errors
func (e *Executor) executeIsolated(ctx context.Context, adapter ports.TestAdapter, model ports.Model, ds *dataset.Table, cfg govtest.TestConfig) (result govtest.TestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return adapter.ExecuteTest(ctx, model, ds, cfg)
}

// Summarize aggregates a result list. The overall score is the mean of
// individual scores; results with no numeric score are excluded from the
// mean rather than treated as zero. Summarize is pure and idempotent.
func (e *Executor) Summarize(results []govtest.TestResult) govtest.Summary {
	s := govtest.Summary{TotalTests: len(results)}
	var sum float64
	var scored int
	for _, r := range results {
		if r.Passed {
			s.PassedTests++
		} else {
			s.FailedTests++
		}
		if r.Score != nil {
			sum += *r.Score
			scored++
		}
	}
	if scored > 0 {
		mean := sum / float64(scored)
		s.OverallScore = &mean
	}
	return s
}
