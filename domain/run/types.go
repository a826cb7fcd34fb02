package run

import (
	"time"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/plan"
)

// Status is the lifecycle state of a test run
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TestRun is the execution aggregate root: one run of a test battery
// against a model (and optional dataset), with its own lifecycle and
// persisted evidence.
type TestRun struct {
	ID             core.RunID    `json:"id"`
	OrgID          core.OrgID    `json:"org_id"`
	ModelAssetID   core.AssetID  `json:"model_asset_id"`
	DatasetAssetID *core.AssetID `json:"dataset_asset_id,omitempty"`
	PlanID         *core.PlanID  `json:"plan_id,omitempty"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Config is the plan's battery configuration snapshotted at creation,
	// so a plan edited while the run is in flight cannot change it.
	Config plan.BatteryConfig `json:"config"`

	Parameters map[string]any `json:"parameters,omitempty"`
	WorkerInfo map[string]any `json:"worker_info,omitempty"`

	// Sensitivity tags copied from the model asset at creation; drive
	// retention cleanup and propagate onto every derived record.
	ContainsPII        bool                     `json:"contains_pii"`
	DataClassification asset.DataClassification `json:"data_classification"`
	RetentionDate      *time.Time               `json:"retention_date,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// New creates a pending run for a model asset, snapshotting the plan config
// and copying the asset's sensitivity tags.
func New(model asset.ModelAsset, datasetID *core.AssetID, testPlan *plan.TestPlan, params map[string]any) *TestRun {
	r := &TestRun{
		ID:                 core.RunID(core.NewID()),
		OrgID:              model.OrgID,
		ModelAssetID:       model.ID,
		DatasetAssetID:     datasetID,
		Status:             StatusPending,
		Parameters:         params,
		ContainsPII:        model.ContainsPII,
		DataClassification: model.DataClassification,
		RetentionDate:      model.RetentionDate,
		CreatedAt:          time.Now(),
	}
	if testPlan != nil {
		planID := testPlan.ID
		r.PlanID = &planID
		r.Config = testPlan.Config.Clone()
	} else {
		r.Config = plan.DefaultConfig()
	}
	return r
}

// Start transitions pending -> running and stamps StartedAt
func (r *TestRun) Start() error {
	if r.Status != StatusPending {
		return core.NewTransitionError(string(r.Status), string(StatusRunning))
	}
	now := time.Now()
	r.Status = StatusRunning
	r.StartedAt = &now
	return nil
}

// Complete transitions running -> completed. All configured tests were
// attempted, regardless of individual pass/fail.
func (r *TestRun) Complete() error {
	if r.Status != StatusRunning {
		return core.NewTransitionError(string(r.Status), string(StatusCompleted))
	}
	now := time.Now()
	r.Status = StatusCompleted
	r.CompletedAt = &now
	return nil
}

// Fail transitions running -> failed with an error message. Used when an
// exception escaped the per-test isolation boundary.
func (r *TestRun) Fail(msg string) error {
	if r.Status != StatusRunning {
		return core.NewTransitionError(string(r.Status), string(StatusFailed))
	}
	now := time.Now()
	r.Status = StatusFailed
	r.ErrorMessage = msg
	r.CompletedAt = &now
	return nil
}

// Cancel transitions pending -> cancelled. Cancellation is administrative
// and only effective before a worker claims the run; there is no
// cooperative mid-flight cancellation.
func (r *TestRun) Cancel() error {
	if r.Status != StatusPending {
		return core.ErrRunNotPending
	}
	now := time.Now()
	r.Status = StatusCancelled
	r.CompletedAt = &now
	return nil
}

// RecordWorker notes which worker/attempt claimed the run
func (r *TestRun) RecordWorker(workerID string, attempt int) {
	if r.WorkerInfo == nil {
		r.WorkerInfo = make(map[string]any)
	}
	r.WorkerInfo["worker_id"] = workerID
	r.WorkerInfo["attempt"] = attempt
	r.WorkerInfo["claimed_at"] = time.Now().Format(time.RFC3339)
}

// TestCategories returns the explicit test subset requested at creation,
// if any. An empty slice means "use the plan's configured tests".
func (r *TestRun) TestCategories() []string {
	raw, ok := r.Parameters["test_categories"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
