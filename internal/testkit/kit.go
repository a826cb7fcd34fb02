// Package testkit provides in-memory port implementations and synthetic
// fixtures used by tests and by the CLI demo mode.
package testkit

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/dataset"
	"aigovern/domain/govtest"
	"aigovern/domain/plan"
	"aigovern/domain/run"
	"aigovern/ports"
)

// Kit bundles the in-memory fakes behind every port the engine needs
type Kit struct {
	Runs     *RunRepo
	Results  *ResultRepo
	Assets   *AssetRepo
	Plans    *PlanRepo
	Models   *ModelResolver
	Datasets *DatasetResolver
	Notifier *Notifier
	Queue    *Queue
}

// NewKit creates a kit with empty stores
func NewKit() *Kit {
	return &Kit{
		Runs:     NewRunRepo(),
		Results:  NewResultRepo(),
		Assets:   NewAssetRepo(),
		Plans:    NewPlanRepo(),
		Models:   NewModelResolver(),
		Datasets: NewDatasetResolver(),
		Notifier: &Notifier{},
		Queue:    &Queue{},
	}
}

var (
	_ ports.RunRepository      = (*RunRepo)(nil)
	_ ports.ResultRepository   = (*ResultRepo)(nil)
	_ ports.AssetRepository    = (*AssetRepo)(nil)
	_ ports.PlanRepository     = (*PlanRepo)(nil)
	_ ports.ModelResolver      = (*ModelResolver)(nil)
	_ ports.DatasetResolver    = (*DatasetResolver)(nil)
	_ ports.CompletionNotifier = (*Notifier)(nil)
	_ ports.JobQueue           = (*Queue)(nil)
	_ ports.Model              = (*ThresholdModel)(nil)
	_ ports.Model              = (*FuncModel)(nil)
)

// RunRepo is an in-memory ports.RunRepository
type RunRepo struct {
	mu   sync.Mutex
	runs map[core.RunID]run.TestRun
}

func NewRunRepo() *RunRepo {
	return &RunRepo{runs: make(map[core.RunID]run.TestRun)}
}

func (r *RunRepo) SaveRun(_ context.Context, tr *run.TestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[tr.ID] = *tr
	return nil
}

func (r *RunRepo) GetRun(_ context.Context, id core.RunID) (*run.TestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.runs[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	copied := tr
	return &copied, nil
}

func (r *RunRepo) ListRuns(_ context.Context, orgID core.OrgID, limit int) ([]*run.TestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*run.TestRun
	for _, tr := range r.runs {
		if tr.OrgID != orgID {
			continue
		}
		copied := tr
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ResultRepo is an in-memory ports.ResultRepository. Results are keyed by
// (run, test name) so a retried battery replaces rather than duplicates.
type ResultRepo struct {
	mu      sync.Mutex
	results map[core.RunID][]govtest.TestResult
}

func NewResultRepo() *ResultRepo {
	return &ResultRepo{results: make(map[core.RunID][]govtest.TestResult)}
}

func (r *ResultRepo) SaveResult(_ context.Context, result *govtest.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.results[result.RunID]
	for i := range existing {
		if existing[i].TestName == result.TestName {
			existing[i] = *result
			return nil
		}
	}
	r.results[result.RunID] = append(existing, *result)
	return nil
}

func (r *ResultRepo) ListResults(_ context.Context, runID core.RunID) ([]govtest.TestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]govtest.TestResult, len(r.results[runID]))
	copy(out, r.results[runID])
	return out, nil
}

// AssetRepo is an in-memory ports.AssetRepository
type AssetRepo struct {
	mu       sync.Mutex
	models   map[core.AssetID]asset.ModelAsset
	datasets map[core.AssetID]asset.DatasetAsset
}

func NewAssetRepo() *AssetRepo {
	return &AssetRepo{
		models:   make(map[core.AssetID]asset.ModelAsset),
		datasets: make(map[core.AssetID]asset.DatasetAsset),
	}
}

func (r *AssetRepo) PutModelAsset(a asset.ModelAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[a.ID] = a
}

func (r *AssetRepo) DeleteModelAsset(id core.AssetID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, id)
}

func (r *AssetRepo) PutDatasetAsset(a asset.DatasetAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[a.ID] = a
}

func (r *AssetRepo) GetModelAsset(_ context.Context, id core.AssetID) (*asset.ModelAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.models[id]
	if !ok {
		return nil, core.NewNotFoundError("model asset", id.String())
	}
	return &a, nil
}

func (r *AssetRepo) GetDatasetAsset(_ context.Context, id core.AssetID) (*asset.DatasetAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.datasets[id]
	if !ok {
		return nil, core.NewNotFoundError("dataset asset", id.String())
	}
	return &a, nil
}

// PlanRepo is an in-memory ports.PlanRepository
type PlanRepo struct {
	mu    sync.Mutex
	plans map[core.PlanID]plan.TestPlan
}

func NewPlanRepo() *PlanRepo {
	return &PlanRepo{plans: make(map[core.PlanID]plan.TestPlan)}
}

func (r *PlanRepo) SavePlan(_ context.Context, p *plan.TestPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = *p
	return nil
}

func (r *PlanRepo) GetPlan(_ context.Context, id core.PlanID) (*plan.TestPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, core.ErrPlanNotFound
	}
	return &p, nil
}

// ModelResolver maps asset ids to callable models
type ModelResolver struct {
	mu     sync.Mutex
	models map[core.AssetID]ports.Model
}

func NewModelResolver() *ModelResolver {
	return &ModelResolver{models: make(map[core.AssetID]ports.Model)}
}

func (r *ModelResolver) Put(id core.AssetID, m ports.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[id] = m
}

func (r *ModelResolver) Resolve(a asset.ModelAsset) (ports.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[a.ID]
	if !ok {
		return nil, core.NewNotFoundError("model", a.ID.String())
	}
	return m, nil
}

// DatasetResolver maps dataset asset ids to loaded tables
type DatasetResolver struct {
	mu     sync.Mutex
	tables map[core.AssetID]*dataset.Table
}

func NewDatasetResolver() *DatasetResolver {
	return &DatasetResolver{tables: make(map[core.AssetID]*dataset.Table)}
}

func (r *DatasetResolver) Put(id core.AssetID, t *dataset.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[id] = t
}

func (r *DatasetResolver) Resolve(a asset.DatasetAsset) (*dataset.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[a.ID]
	if !ok {
		return nil, core.NewNotFoundError("dataset", a.ID.String())
	}
	return t, nil
}

// Notifier records completion notifications
type Notifier struct {
	mu    sync.Mutex
	Calls []NotificationCall
}

type NotificationCall struct {
	Run     run.TestRun
	Summary govtest.Summary
}

func (n *Notifier) NotifyCompletion(_ context.Context, r *run.TestRun, summary govtest.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, NotificationCall{Run: *r, Summary: summary})
	return nil
}

// Queue records enqueued run ids without executing anything
type Queue struct {
	mu       sync.Mutex
	Enqueued []core.RunID
}

func (q *Queue) Enqueue(_ context.Context, runID core.RunID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Enqueued = append(q.Enqueued, runID)
	return nil
}

// ThresholdModel predicts 1 when the mean of the feature row exceeds the
// threshold. Deterministic and cheap; the workhorse fixture.
type ThresholdModel struct {
	Threshold float64
	ModelKind asset.ModelType
}

func (m *ThresholdModel) Type() asset.ModelType {
	if m.ModelKind == "" {
		return asset.ModelTabular
	}
	return m.ModelKind
}

func (m *ThresholdModel) Predict(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		mean := 0.0
		if len(row) > 0 {
			mean = sum / float64(len(row))
		}
		// Squash distance from the threshold into (0,1)
		out[i] = 1 / (1 + math.Exp(-(mean-m.Threshold)*4))
	}
	return out, nil
}

// FuncModel delegates prediction to an arbitrary function; useful for
// injecting errors and panics.
type FuncModel struct {
	Kind asset.ModelType
	Fn   func(features [][]float64) ([]float64, error)
}

func (m *FuncModel) Type() asset.ModelType {
	if m.Kind == "" {
		return asset.ModelTabular
	}
	return m.Kind
}

func (m *FuncModel) Predict(features [][]float64) ([]float64, error) {
	return m.Fn(features)
}

// SyntheticCreditTable builds a deterministic credit-scoring style table
// with numeric features, a binary target correlated with them, and a
// categorical group column. Group "B" rows get an income penalty so
// fairness disparity is controllable via penalty.
func SyntheticCreditTable(n int, seed int64, penalty float64) *dataset.Table {
	rng := rand.New(rand.NewSource(seed))
	income := make([]float64, n)
	debt := make([]float64, n)
	group := make([]string, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			group[i] = "A"
		} else {
			group[i] = "B"
		}
		income[i] = rng.NormFloat64()*0.5 + 1.0
		if group[i] == "B" {
			income[i] -= penalty
		}
		debt[i] = rng.NormFloat64() * 0.5
		score := income[i] - debt[i]
		if score > 1.0 {
			target[i] = 1
		}
	}
	t := dataset.NewTable("synthetic_credit")
	_ = t.AddNumeric("income", income)
	_ = t.AddNumeric("debt", debt)
	_ = t.AddCategorical("group", group)
	_ = t.AddNumeric("target", target)
	return t
}
