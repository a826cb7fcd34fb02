package ports

import (
	"context"

	"aigovern/domain/core"
	"aigovern/domain/govtest"
	"aigovern/domain/plan"
	"aigovern/domain/run"
)

// RunRepository persists test runs. A run's records are exclusively owned
// by the single worker executing it, so no locking is layered on top.
type RunRepository interface {
	SaveRun(ctx context.Context, r *run.TestRun) error
	GetRun(ctx context.Context, id core.RunID) (*run.TestRun, error)
	ListRuns(ctx context.Context, orgID core.OrgID, limit int) ([]*run.TestRun, error)
}

// ResultRepository persists test results and their metrics. Results are
// written one at a time as they arrive so partial progress survives a
// worker crash.
type ResultRepository interface {
	SaveResult(ctx context.Context, result *govtest.TestResult) error
	ListResults(ctx context.Context, runID core.RunID) ([]govtest.TestResult, error)
}

// PlanRepository reads and writes test plans
type PlanRepository interface {
	SavePlan(ctx context.Context, p *plan.TestPlan) error
	GetPlan(ctx context.Context, id core.PlanID) (*plan.TestPlan, error)
}
