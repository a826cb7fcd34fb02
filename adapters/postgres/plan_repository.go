package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"aigovern/domain/asset"
	"aigovern/domain/core"
	"aigovern/domain/plan"
	"aigovern/ports"
)

// PlanRepositoryImpl implements ports.PlanRepository for PostgreSQL
type PlanRepositoryImpl struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new PostgreSQL plan repository
func NewPlanRepository(db *sqlx.DB) ports.PlanRepository {
	return &PlanRepositoryImpl{db: db}
}

// SavePlan upserts a test plan
func (r *PlanRepositoryImpl) SavePlan(ctx context.Context, p *plan.TestPlan) error {
	configJSON, err := json.Marshal(p.Config)
	if err != nil {
		return err
	}
	alertRulesJSON, _ := json.Marshal(p.AlertRules)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO test_plans (
			id, org_id, name, model_type, config, alert_rules, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			model_type = EXCLUDED.model_type,
			config = EXCLUDED.config,
			alert_rules = EXCLUDED.alert_rules,
			updated_at = NOW()`,
		p.ID.String(), p.OrgID.String(), p.Name, string(p.ModelType),
		configJSON, alertRulesJSON, p.CreatedAt.Time())
	return err
}

// GetPlan loads a test plan by id
func (r *PlanRepositoryImpl) GetPlan(ctx context.Context, id core.PlanID) (*plan.TestPlan, error) {
	var p plan.TestPlan
	var planID, orgID, modelType string
	var configJSON, alertRulesJSON []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, model_type, config, alert_rules, created_at, updated_at
		FROM test_plans
		WHERE id = $1`, id.String()).Scan(
		&planID, &orgID, &p.Name, &modelType, &configJSON, &alertRulesJSON,
		(*timeScanner)(&p.CreatedAt), (*timeScanner)(&p.UpdatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrPlanNotFound
		}
		return nil, err
	}

	p.ID = core.PlanID(planID)
	p.OrgID = core.OrgID(orgID)
	p.ModelType = asset.ModelType(modelType)
	if err := json.Unmarshal(configJSON, &p.Config); err != nil {
		return nil, err
	}
	if len(alertRulesJSON) > 0 {
		json.Unmarshal(alertRulesJSON, &p.AlertRules)
	}
	return &p, nil
}
