package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"aigovern/domain/core"
	"aigovern/domain/plan"
	"aigovern/domain/run"
	"aigovern/ports"
)

// RunRepositoryImpl implements ports.RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// SaveRun upserts a test run. The config snapshot and the parameter and
// worker maps are stored as JSONB.
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, tr *run.TestRun) error {
	configJSON, err := json.Marshal(tr.Config)
	if err != nil {
		return err
	}
	parametersJSON, _ := json.Marshal(tr.Parameters)
	workerInfoJSON, _ := json.Marshal(tr.WorkerInfo)

	var datasetAssetID, planID *string
	if tr.DatasetAssetID != nil {
		s := tr.DatasetAssetID.String()
		datasetAssetID = &s
	}
	if tr.PlanID != nil {
		s := tr.PlanID.String()
		planID = &s
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO test_runs (
			id, org_id, model_asset_id, dataset_asset_id, plan_id,
			status, error_message, config, parameters, worker_info,
			contains_pii, data_classification, retention_date,
			created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			worker_info = EXCLUDED.worker_info,
			contains_pii = EXCLUDED.contains_pii,
			data_classification = EXCLUDED.data_classification,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		tr.ID.String(), tr.OrgID.String(), tr.ModelAssetID.String(), datasetAssetID, planID,
		string(tr.Status), nullIfEmpty(tr.ErrorMessage), configJSON, parametersJSON, workerInfoJSON,
		tr.ContainsPII, string(tr.DataClassification), tr.RetentionDate,
		tr.CreatedAt, tr.StartedAt, tr.CompletedAt)
	return err
}

// GetRun loads a test run by id
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.TestRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, model_asset_id, dataset_asset_id, plan_id,
			   status, error_message, config, parameters, worker_info,
			   contains_pii, data_classification, retention_date,
			   created_at, started_at, completed_at
		FROM test_runs
		WHERE id = $1`, id.String())
	tr, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrRunNotFound
		}
		return nil, err
	}
	return tr, nil
}

// ListRuns returns an organization's runs, newest first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, orgID core.OrgID, limit int) ([]*run.TestRun, error) {
	query := `
		SELECT id, org_id, model_asset_id, dataset_asset_id, plan_id,
			   status, error_message, config, parameters, worker_info,
			   contains_pii, data_classification, retention_date,
			   created_at, started_at, completed_at
		FROM test_runs
		WHERE org_id = $1
		ORDER BY created_at DESC`
	args := []interface{}{orgID.String()}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*run.TestRun
	for rows.Next() {
		tr, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*run.TestRun, error) {
	var tr run.TestRun
	var id, orgID, modelAssetID, status, classification string
	var datasetAssetID, planID, errorMessage *string
	var configJSON, parametersJSON, workerInfoJSON []byte

	err := row.Scan(
		&id, &orgID, &modelAssetID, &datasetAssetID, &planID,
		&status, &errorMessage, &configJSON, &parametersJSON, &workerInfoJSON,
		&tr.ContainsPII, &classification, &tr.RetentionDate,
		&tr.CreatedAt, &tr.StartedAt, &tr.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	tr.ID = core.RunID(id)
	tr.OrgID = core.OrgID(orgID)
	tr.ModelAssetID = core.AssetID(modelAssetID)
	if datasetAssetID != nil {
		dsID := core.AssetID(*datasetAssetID)
		tr.DatasetAssetID = &dsID
	}
	if planID != nil {
		pID := core.PlanID(*planID)
		tr.PlanID = &pID
	}
	tr.Status = run.Status(status)
	if errorMessage != nil {
		tr.ErrorMessage = *errorMessage
	}
	tr.DataClassification = classificationFromString(classification)

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &tr.Config); err != nil {
			return nil, err
		}
	}
	if tr.Config == nil {
		tr.Config = plan.BatteryConfig{}
	}
	if len(parametersJSON) > 0 {
		json.Unmarshal(parametersJSON, &tr.Parameters)
	}
	if len(workerInfoJSON) > 0 {
		json.Unmarshal(workerInfoJSON, &tr.WorkerInfo)
	}
	return &tr, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
