// Package migrations creates the evidence-store schema. Statements are
// idempotent so repeated runs are safe.
package migrations

import (
	"context"

	"github.com/jmoiron/sqlx"

	"aigovern/internal/errors"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS model_assets (
		id UUID PRIMARY KEY,
		org_id UUID NOT NULL,
		name TEXT NOT NULL,
		model_type TEXT NOT NULL,
		contains_pii BOOLEAN NOT NULL DEFAULT FALSE,
		data_classification TEXT NOT NULL DEFAULT 'internal',
		retention_date TIMESTAMPTZ,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_assets (
		id UUID PRIMARY KEY,
		org_id UUID NOT NULL,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		contains_pii BOOLEAN NOT NULL DEFAULT FALSE,
		data_classification TEXT NOT NULL DEFAULT 'internal',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS test_plans (
		id UUID PRIMARY KEY,
		org_id UUID NOT NULL,
		name TEXT NOT NULL,
		model_type TEXT NOT NULL,
		config JSONB NOT NULL DEFAULT '{}',
		alert_rules JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS test_runs (
		id UUID PRIMARY KEY,
		org_id UUID NOT NULL,
		model_asset_id UUID NOT NULL,
		dataset_asset_id UUID,
		plan_id UUID,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		config JSONB NOT NULL DEFAULT '{}',
		parameters JSONB,
		worker_info JSONB,
		contains_pii BOOLEAN NOT NULL DEFAULT FALSE,
		data_classification TEXT NOT NULL DEFAULT 'internal',
		retention_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_runs_org_created
		ON test_runs (org_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_test_runs_status
		ON test_runs (status)`,
	`CREATE TABLE IF NOT EXISTS test_results (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES test_runs(id) ON DELETE CASCADE,
		test_name TEXT NOT NULL,
		status TEXT NOT NULL,
		passed BOOLEAN NOT NULL DEFAULT FALSE,
		score DOUBLE PRECISION,
		summary JSONB,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		contains_pii BOOLEAN NOT NULL DEFAULT FALSE,
		data_classification TEXT NOT NULL DEFAULT 'internal',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (run_id, test_name)
	)`,
	`CREATE TABLE IF NOT EXISTS test_metrics (
		id UUID PRIMARY KEY,
		result_id UUID NOT NULL REFERENCES test_results(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		threshold DOUBLE PRECISION NOT NULL,
		direction TEXT NOT NULL,
		passed BOOLEAN NOT NULL DEFAULT FALSE,
		slice_key TEXT,
		slice_value TEXT,
		contains_pii BOOLEAN NOT NULL DEFAULT FALSE,
		data_classification TEXT NOT NULL DEFAULT 'internal'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_metrics_result
		ON test_metrics (result_id)`,
}

// Run applies the schema
func Run(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply schema migration")
		}
	}
	return nil
}
